package logtest

import (
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/wu-yy/logtest/lifecycle"
	"go.uber.org/zap/zapcore"
)

const defaultConsoleLevel string = "error"

// Config is the logtest section of the configuration.
type Config struct {
	// Replace the console status listener for the whole session.
	DisableConsoleStatusListener bool `mapstructure:"disable_console_status_listener"`

	// Minimum level of status messages printed on the console. Defaults to
	// error.
	ConsoleLevel string `mapstructure:"console_level"`

	// Default stop deadline for sources that do not declare one.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	level zapcore.Level
}

func (c *Config) InitDefault() error {
	const op = errors.Op("logtest_config_init_default")
	if c.ConsoleLevel == "" {
		c.ConsoleLevel = defaultConsoleLevel
	}

	lvl, err := zapcore.ParseLevel(c.ConsoleLevel)
	if err != nil {
		return errors.E(op, err)
	}
	c.level = lvl

	if c.ShutdownTimeout < 0 {
		c.ShutdownTimeout = 0
	}

	return nil
}

// source applies the session defaults to src.
func (c *Config) source(src lifecycle.Source) lifecycle.Source {
	if src.ShutdownTimeout <= 0 && c.ShutdownTimeout > 0 {
		src.ShutdownTimeout = max(c.ShutdownTimeout.Milliseconds(), 1)
		src.ShutdownUnit = time.Millisecond
	}
	src.InitDefault()
	return src
}
