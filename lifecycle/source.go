package lifecycle

import (
	"os"
	"time"

	"github.com/roadrunner-server/errors"
)

const (
	defaultShutdownTimeout int64         = 10
	defaultShutdownUnit    time.Duration = time.Second
	shutdownTimeoutEnv     string        = "LOGTEST_SHUTDOWN_TIMEOUT"
)

// Source declares the managed runtime of a suite or unit.
type Source struct {
	// Configuration handed to the Factory. Empty means the runtime defaults.
	ConfigLocation string `mapstructure:"config_location"`

	// When to reconfigure the runtime around nested units. Defaults to never.
	Reconfigure Policy `mapstructure:"reconfigure"`

	// Stopping the runtime may take at most ShutdownTimeout * ShutdownUnit.
	// Defaults to 10 seconds.
	ShutdownTimeout int64         `mapstructure:"shutdown_timeout"`
	ShutdownUnit    time.Duration `mapstructure:"shutdown_unit"`
}

func (s *Source) InitDefault() {
	if s.Reconfigure == "" {
		s.Reconfigure = Never
	} else if p, err := ParsePolicy(string(s.Reconfigure)); err == nil {
		s.Reconfigure = p
	}

	if s.ShutdownUnit <= 0 {
		s.ShutdownUnit = defaultShutdownUnit
	}

	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = defaultShutdownTimeout
	}

	// slow CI hosts override every shutdown bound at once
	if str := os.Getenv(shutdownTimeoutEnv); str != "" {
		if d, err := time.ParseDuration(str); err == nil && d > 0 {
			s.ShutdownUnit = time.Millisecond
			s.ShutdownTimeout = max(d.Milliseconds(), 1)
		}
	}
}

func (s *Source) Validate() error {
	const op = errors.Op("lifecycle_source_validate")
	if !s.Reconfigure.Valid() {
		return errors.E(op, errors.Errorf("unknown reconfiguration policy: %q", string(s.Reconfigure)))
	}
	if s.ShutdownTimeout <= 0 || s.ShutdownUnit <= 0 {
		return errors.E(op, errors.Errorf("shutdown timeout must be positive, got %d x %s", s.ShutdownTimeout, s.ShutdownUnit))
	}
	return nil
}

// Deadline is the upper bound for stopping the runtime.
func (s *Source) Deadline() time.Duration {
	return time.Duration(s.ShutdownTimeout) * s.ShutdownUnit
}
