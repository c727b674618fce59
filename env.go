package logtest

import (
	"context"
	stderr "errors"
	"iter"
	"os"
	"testing"

	"github.com/roadrunner-server/errors"
	"github.com/wu-yy/logtest/anchor"
	"github.com/wu-yy/logtest/lifecycle"
	"github.com/wu-yy/logtest/status"
	"go.uber.org/zap/zapcore"
)

// Env is what a unit sees of its scope.
type Env struct {
	t     testing.TB
	p     *Plugin
	scope *anchor.Scope
	ctx   context.Context
}

func newEnv(t testing.TB, p *Plugin, scope *anchor.Scope) *Env {
	return &Env{
		t:     t,
		p:     p,
		scope: scope,
		ctx:   anchor.WithScope(t.Context(), scope),
	}
}

// Context carries the unit scope. It is canceled when the unit ends.
func (e *Env) Context() context.Context {
	return e.ctx
}

func (e *Env) Scope() *anchor.Scope {
	return e.scope
}

func (e *Env) Bus() *status.Bus {
	return e.p.bus
}

// Emit publishes a status message under the unit scope.
func (e *Env) Emit(level zapcore.Level, format string, args ...any) {
	e.p.bus.Emit(e.ctx, level, e.t.Name(), format, args...)
}

// Resource returns the runtime the unit logs to: its own, or the one
// inherited from the suite. The unit fails when there is none.
func (e *Env) Resource() lifecycle.Resource {
	e.t.Helper()
	res, err := e.p.selector.Context(e.ctx)
	if err != nil {
		e.t.Fatalf("logtest: %v", err)
	}
	return res
}

// Managed returns the managed runtime visible from the unit.
func (e *Env) Managed() (*lifecycle.Managed, bool) {
	return anchor.Get(e.p.reg, e.scope, lifecycle.ManagedKey)
}

// Collector returns the status collector of the unit. The unit fails when
// none is attached.
func (e *Env) Collector() *status.Collector {
	e.t.Helper()
	c, ok := anchor.Local(e.p.reg, e.scope, status.CollectorKey)
	if !ok || c == nil {
		e.t.Fatalf("logtest: no status collector attached to %s", e.scope)
	}
	return c
}

// StatusMessages yields the status messages emitted under the unit so far.
func (e *Env) StatusMessages() iter.Seq[status.Message] {
	e.t.Helper()
	return e.Collector().Messages()
}

func (e *Env) SetProperty(key, value string) {
	e.t.Helper()
	if err := e.p.SetProperty(e.scope, key, value); err != nil {
		e.t.Fatalf("logtest: %v", err)
	}
}

func (e *Env) Property(key string) (string, bool) {
	return e.p.Property(e.scope, key)
}

// CleanUpFiles removes paths now and again when the unit exits.
func (e *Env) CleanUpFiles(paths ...string) {
	e.t.Helper()
	if err := removeAll(paths); err != nil {
		e.t.Fatalf("logtest: %v", err)
	}

	_, err := e.p.reg.Register(e.scope, "logtest.cleanup_files", func(context.Context) error {
		return removeAll(paths)
	})
	if err != nil {
		e.t.Fatalf("logtest: %v", err)
	}
}

func removeAll(paths []string) error {
	const op = errors.Op("logtest_cleanup_files")

	var errs []error
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.E(op, stderr.Join(errs...))
	}
	return nil
}
