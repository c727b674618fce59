package logtest

import (
	"context"
	stderr "errors"
	"sync"
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/wu-yy/logtest/anchor"
	"github.com/wu-yy/logtest/lifecycle"
	"github.com/wu-yy/logtest/status"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const pluginName string = "logtest"

type Plugin struct {
	mu  sync.Mutex
	log *zap.Logger
	cfg *Config

	bus         *status.Bus
	tracer      *sdktrace.TracerProvider
	reg         *anchor.Registry
	coordinator *lifecycle.Coordinator
	selector    *lifecycle.Selector

	requireInherited bool
	unsubscribe      func()
}

type Configurer interface {
	// UnmarshalKey takes a single key and unmarshal it into a Struct.
	UnmarshalKey(name string, out any) error
	// Has checks if config section exists.
	Has(name string) bool
}

type Logger interface {
	NamedLogger(name string) *zap.Logger
}

type Option func(p *Plugin)

// WithBus replaces the process-wide status bus.
func WithBus(bus *status.Bus) Option {
	return func(p *Plugin) {
		if bus != nil {
			p.bus = bus
		}
	}
}

func WithTracerProvider(tp *sdktrace.TracerProvider) Option {
	return func(p *Plugin) {
		if tp != nil {
			p.tracer = tp
		}
	}
}

// RequireInherited fails a unit whose suite declared a runtime that could not
// be set up.
func RequireInherited() Option {
	return func(p *Plugin) {
		p.requireInherited = true
	}
}

// Init reads the logtest section and sets up the session: the console status
// listener is installed, or replaced when the configuration disables it.
func (p *Plugin) Init(log Logger, cfg Configurer, factory lifecycle.Factory, opts ...Option) error {
	const op = errors.Op("logtest_plugin_init")
	if factory == nil {
		return errors.E(op, errors.Str("no runtime factory provided"))
	}

	p.cfg = &Config{}
	if cfg.Has(pluginName) {
		if err := cfg.UnmarshalKey(pluginName, p.cfg); err != nil {
			return errors.E(op, err)
		}
	}
	if err := p.cfg.InitDefault(); err != nil {
		return errors.E(op, err)
	}

	p.log = log.NamedLogger(pluginName)
	p.bus = status.Default()
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = sdktrace.NewTracerProvider()
	}

	// scopes travel with the trace context across queues and goroutines
	otel.SetTextMapPropagator(anchor.Propagator())

	p.reg = anchor.NewRegistry(p.log)
	p.selector = lifecycle.NewSelector(p.reg)

	copts := []lifecycle.Option{lifecycle.WithLogger(p.log), lifecycle.WithTracerProvider(p.tracer)}
	if p.requireInherited {
		copts = append(copts, lifecycle.RequireInherited())
	}
	p.coordinator = lifecycle.NewCoordinator(p.reg, factory, copts...)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.DisableConsoleStatusListener {
		n := status.DisableConsole(p.bus)
		p.log.Debug("console status listener was disabled", zap.Int("replaced", n))
		return nil
	}

	p.unsubscribe = p.bus.Subscribe(status.NewConsoleListener(p.log.Named("status"), p.cfg.level))
	return nil
}

func (p *Plugin) Name() string {
	return pluginName
}

// Stop removes the session console listener.
func (p *Plugin) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}

	if p.reg == nil {
		return nil
	}

	if live := p.reg.Live(); live > 0 {
		p.log.Warn("scopes are still live at session end", zap.Int("live", live))
	}

	return nil
}

func (p *Plugin) Registry() *anchor.Registry {
	return p.reg
}

func (p *Plugin) Bus() *status.Bus {
	return p.bus
}

func (p *Plugin) Selector() *lifecycle.Selector {
	return p.selector
}

// BeforeAll enters the scope of a suite bound to runner and sets up the suite
// runtime when src is not nil.
func (p *Plugin) BeforeAll(ctx context.Context, runner anchor.Runner, name string, src *lifecycle.Source) (*anchor.Scope, error) {
	const op = errors.Op("logtest_before_all")
	start := time.Now().UTC()

	scope := anchor.NewScope(name, nil)
	if err := p.reg.Enter(runner, scope); err != nil {
		return nil, err
	}

	if src != nil {
		if _, err := p.coordinator.SetUp(ctx, scope, p.cfg.source(*src)); err != nil {
			return nil, stderr.Join(errors.E(op, err), p.reg.Exit(ctx, scope))
		}
	}

	p.log.Debug("suite was set up", zap.String("suite", name), zap.Time("start", start), zap.Duration("elapsed", time.Since(start)))
	return scope, nil
}

// BeforeEach enters the scope of a unit nested in parent, attaches its status
// collector and applies the reconfiguration policy. method declares a runtime
// for the unit itself.
func (p *Plugin) BeforeEach(ctx context.Context, runner anchor.Runner, parent *anchor.Scope, name string, method *lifecycle.Source) (*anchor.Scope, error) {
	const op = errors.Op("logtest_before_each")

	scope := anchor.NewScope(name, parent)
	if err := p.reg.Enter(runner, scope); err != nil {
		return nil, err
	}

	if _, err := status.Attach(p.reg, p.bus, scope); err != nil {
		return nil, stderr.Join(errors.E(op, err), p.reg.Exit(ctx, scope))
	}

	var src *lifecycle.Source
	if method != nil {
		s := p.cfg.source(*method)
		src = &s
	}

	if err := p.coordinator.BeforeEach(ctx, scope, src); err != nil {
		return nil, stderr.Join(errors.E(op, err), p.reg.Exit(ctx, scope))
	}

	return scope, nil
}

// AfterEach applies the reconfiguration policy and exits the unit scope. The
// captured status messages are printed when the unit failed.
func (p *Plugin) AfterEach(ctx context.Context, scope *anchor.Scope, failed bool) error {
	const op = errors.Op("logtest_after_each")

	var errs []error
	if err := p.coordinator.AfterEach(ctx, scope); err != nil {
		errs = append(errs, errors.E(op, err))
	}

	if failed {
		if c, ok := anchor.Local(p.reg, scope, status.CollectorKey); ok {
			n := status.Replay(p.log.Named("status"), c.Messages())
			p.log.Debug("status messages of a failed unit were replayed", zap.String("unit", scope.DisplayName()), zap.Int("count", n))
		}
	}

	if err := p.reg.Exit(ctx, scope); err != nil {
		errs = append(errs, err)
	}

	return stderr.Join(errs...)
}

// AfterAll exits the suite scope, which stops the suite runtime.
func (p *Plugin) AfterAll(ctx context.Context, scope *anchor.Scope) error {
	start := time.Now().UTC()
	err := p.reg.Exit(ctx, scope)
	p.log.Debug("suite was torn down", zap.String("suite", scope.DisplayName()), zap.Time("start", start), zap.Duration("elapsed", time.Since(start)))
	return err
}
