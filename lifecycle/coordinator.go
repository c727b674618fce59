package lifecycle

import (
	"context"
	stderr "errors"
	"fmt"
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/wu-yy/logtest/anchor"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const tracerName string = "logtest"

// ErrMissingResource is returned when a unit expects a runtime that its suite
// declared but never set up.
var ErrMissingResource = stderr.New("no managed resource in scope")

// Coordinator sets up managed runtimes for scopes and applies the
// reconfiguration policy around nested units.
type Coordinator struct {
	reg     *anchor.Registry
	factory Factory
	log     *zap.Logger
	tracer  *sdktrace.TracerProvider

	// fail the first unit of a suite that declared a runtime it does not have
	requireInherited bool
}

type Option func(c *Coordinator)

func WithTracerProvider(tp *sdktrace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// RequireInherited makes BeforeEach fail with ErrMissingResource when an
// ancestor declared a Source but holds no managed runtime.
func RequireInherited() Option {
	return func(c *Coordinator) {
		c.requireInherited = true
	}
}

func NewCoordinator(reg *anchor.Registry, factory Factory, opts ...Option) *Coordinator {
	c := &Coordinator{
		reg:     reg,
		factory: factory,
		log:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tracer == nil {
		c.tracer = sdktrace.NewTracerProvider()
	}

	return c
}

// Registry returns the registry the coordinator attaches runtimes to.
func (c *Coordinator) Registry() *anchor.Registry {
	return c.reg
}

// SetUp creates and starts the runtime declared by src for scope. The runtime
// is stopped when scope exits. Errors from the factory are returned as is and
// leave nothing registered.
func (c *Coordinator) SetUp(ctx context.Context, scope *anchor.Scope, src Source) (*Managed, error) {
	const op = errors.Op("lifecycle_setup")
	start := time.Now().UTC()

	ctx, span := startSpan(anchor.WithScope(ctx, scope), c.tracer, "lifecycle_setup", scope.DisplayName())
	defer span.End()

	if _, ok := c.reg.Lookup(scope.ID()); !ok {
		err := fmt.Errorf("%w: %s", anchor.ErrScopeNotLive, scope)
		span.RecordError(err)
		return nil, errors.E(op, err)
	}

	src.InitDefault()
	if err := src.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	anchor.Set(c.reg, scope, SourceKey, src)

	res, err := c.factory.Create(scope.DisplayName(), src.ConfigLocation)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	m := &Managed{
		name:   scope.DisplayName(),
		res:    res,
		source: src,
		log:    c.log,
		tracer: c.tracer,
	}

	if _, err = anchor.Attach(c.reg, scope, ManagedKey, m, m.stop); err != nil {
		// the scope exited concurrently, nothing else will stop the runtime
		_ = m.stop(ctx)
		anchor.Remove(c.reg, scope, SourceKey)
		span.RecordError(err)
		return nil, errors.E(op, err)
	}
	anchor.Set(c.reg, scope, PolicyKey, src.Reconfigure)

	if err = m.start(ctx); err != nil {
		span.RecordError(err)
		return nil, errors.E(op, err)
	}

	c.log.Debug("managed resource was started", zap.String("resource", m.name), zap.String("config", src.ConfigLocation), zap.String("policy", src.Reconfigure.String()), zap.Time("start", start), zap.Duration("elapsed", time.Since(start)))
	return m, nil
}

// BeforeEach runs before a nested unit. An inherited runtime with the
// before_each policy is reconfigured. When method is not nil, a runtime is set
// up for the unit itself and reconfigured if its own policy asks for it.
func (c *Coordinator) BeforeEach(ctx context.Context, unit *anchor.Scope, method *Source) error {
	const op = errors.Op("lifecycle_before_each")
	ctx = anchor.WithScope(ctx, unit)

	m, err := c.inherited(unit)
	if err != nil {
		return errors.E(op, err)
	}

	if m != nil && m.source.Reconfigure == BeforeEach {
		if err = m.Reconfigure(ctx); err != nil {
			return errors.E(op, err)
		}
	}

	if method == nil {
		return nil
	}

	own, err := c.SetUp(ctx, unit, *method)
	if err != nil {
		return err
	}

	if own.source.Reconfigure == BeforeEach {
		if err = own.Reconfigure(ctx); err != nil {
			return errors.E(op, err)
		}
	}

	return nil
}

// AfterEach runs after a nested unit and reconfigures an inherited runtime
// with the after_each policy.
func (c *Coordinator) AfterEach(ctx context.Context, unit *anchor.Scope) error {
	const op = errors.Op("lifecycle_after_each")

	m, err := c.inherited(unit)
	if err != nil {
		return errors.E(op, err)
	}

	if m == nil || m.source.Reconfigure != AfterEach {
		return nil
	}

	if err = m.Reconfigure(anchor.WithScope(ctx, unit)); err != nil {
		return errors.E(op, err)
	}

	return nil
}

// inherited returns the runtime declared by the nearest strict ancestor of
// unit. It returns nil without error when no ancestor declared one.
func (c *Coordinator) inherited(unit *anchor.Scope) (*Managed, error) {
	parent := unit.Parent()
	if parent == nil {
		return nil, nil
	}

	_, owner, ok := anchor.GetFrom(c.reg, parent, SourceKey)
	if !ok {
		return nil, nil
	}

	m, ok := anchor.Local(c.reg, owner, ManagedKey)
	if !ok {
		if c.requireInherited {
			return nil, fmt.Errorf("%w: %s declared a runtime that was never set up", ErrMissingResource, owner)
		}
		return nil, nil
	}

	return m, nil
}
