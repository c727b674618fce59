package logtest

import (
	"context"
	"testing"

	"github.com/wu-yy/logtest/anchor"
	"github.com/wu-yy/logtest/lifecycle"
)

// Suite is the outer scope of a test function. Units started with Run are
// nested in it.
type Suite struct {
	p     *Plugin
	t     *testing.T
	scope *anchor.Scope
}

// Suite enters a scope for t and sets up the runtime declared by src, if any.
// Everything is torn down when t completes.
func (p *Plugin) Suite(t *testing.T, src *lifecycle.Source) *Suite {
	t.Helper()

	scope, err := p.BeforeAll(t.Context(), t, t.Name(), src)
	if err != nil {
		t.Fatalf("logtest: suite set up failed: %v", err)
	}

	t.Cleanup(func() {
		if err := p.AfterAll(context.Background(), scope); err != nil {
			t.Errorf("logtest: suite tear down failed: %v", err)
		}
	})

	return &Suite{p: p, t: t, scope: scope}
}

func (s *Suite) Scope() *anchor.Scope {
	return s.scope
}

// Managed returns the suite runtime.
func (s *Suite) Managed() (*lifecycle.Managed, bool) {
	return anchor.Local(s.p.reg, s.scope, lifecycle.ManagedKey)
}

func (s *Suite) SetProperty(key, value string) {
	s.t.Helper()
	if err := s.p.SetProperty(s.scope, key, value); err != nil {
		s.t.Fatalf("logtest: %v", err)
	}
}

type runConfig struct {
	source   *lifecycle.Source
	parallel bool
}

type RunOption func(c *runConfig)

// WithSource declares a runtime for the unit itself.
func WithSource(src lifecycle.Source) RunOption {
	return func(c *runConfig) {
		c.source = &src
	}
}

// Parallel runs the unit in parallel with its siblings.
func Parallel() RunOption {
	return func(c *runConfig) {
		c.parallel = true
	}
}

// Run runs fn as a subtest in its own unit scope.
func (s *Suite) Run(name string, fn func(t *testing.T, env *Env), opts ...RunOption) bool {
	rc := &runConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	return s.t.Run(name, func(t *testing.T) {
		if rc.parallel {
			t.Parallel()
		}

		scope, err := s.p.BeforeEach(t.Context(), t, s.scope, name, rc.source)
		if err != nil {
			t.Fatalf("logtest: unit set up failed: %v", err)
		}

		t.Cleanup(func() {
			if err := s.p.AfterEach(context.Background(), scope, t.Failed()); err != nil {
				t.Errorf("logtest: unit tear down failed: %v", err)
			}
		})

		fn(t, newEnv(t, s.p, scope))
	})
}
