package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/roadrunner-server/errors"
)

const (
	envPrefix string = "LOGTEST_"
	delim     string = "."

	maxConfigFileSize = 1024 * 1024
)

// Configurer reads sections of a loaded configuration.
type Configurer struct {
	k *koanf.Koanf
}

// Load reads the YAML file at path. A missing file yields an empty
// configuration, so environment overrides still apply.
func Load(path string) (*Configurer, error) {
	const op = errors.Op("config_load")

	var content []byte
	if path != "" {
		info, err := os.Stat(path)
		switch {
		case err == nil:
			if info.Size() > maxConfigFileSize {
				return nil, errors.E(op, errors.Errorf("config file %s is too large: %d bytes", path, info.Size()))
			}
			content, err = os.ReadFile(path)
			if err != nil {
				return nil, errors.E(op, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.E(op, err)
		}
	}

	return FromBytes(content)
}

// FromBytes parses YAML content and applies environment overrides.
func FromBytes(content []byte) (*Configurer, error) {
	const op = errors.Op("config_from_bytes")
	k := koanf.New(delim)

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, errors.E(op, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, delim, envKey), nil); err != nil {
		return nil, errors.E(op, err)
	}

	return &Configurer{k: k}, nil
}

// UnmarshalKey decodes the section name into out using mapstructure tags.
func (c *Configurer) UnmarshalKey(name string, out any) error {
	const op = errors.Op("config_unmarshal_key")
	if err := c.k.UnmarshalWithConf(name, out, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Has reports whether the section or key is present.
func (c *Configurer) Has(name string) bool {
	return c.k.Exists(name)
}

// envKey maps LOGTEST_CONSOLE_LEVEL to logtest.console_level.
func envKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + delim + parts[1]
}
