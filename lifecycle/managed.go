package lifecycle

import (
	"context"
	stderr "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/wu-yy/logtest/anchor"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State of a managed runtime.
type State uint32

const (
	Created State = iota
	Started
	Reconfigured
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Started:
		return "STARTED"
	case Reconfigured:
		return "RECONFIGURED"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrInvalidState is returned for transitions the state machine forbids.
	ErrInvalidState = stderr.New("invalid lifecycle state")
	// ErrShutdownTimeout is recorded on the span of a stop that ran out of time.
	ErrShutdownTimeout = stderr.New("shutdown timed out")
)

var (
	// ManagedKey resolves the runtime managed for a scope.
	ManagedKey = anchor.NewKey[*Managed]("lifecycle.managed")
	// PolicyKey resolves the reconfiguration policy of that runtime.
	PolicyKey = anchor.NewKey[Policy]("lifecycle.policy")
	// SourceKey marks a scope that declared a runtime, even if creating it
	// failed.
	SourceKey = anchor.NewKey[Source]("lifecycle.source")
)

// Managed wraps a Resource with its lifecycle state.
type Managed struct {
	name   string
	res    Resource
	source Source
	log    *zap.Logger
	tracer *sdktrace.TracerProvider

	// serializes transitions
	mu           sync.Mutex
	state        atomic.Uint32
	reconfigured atomic.Uint64
	timedOut     atomic.Bool
}

func (m *Managed) Name() string {
	return m.name
}

func (m *Managed) Resource() Resource {
	return m.res
}

func (m *Managed) Source() Source {
	return m.source
}

func (m *Managed) State() State {
	return State(m.state.Load())
}

// Reconfigurations counts successful Reconfigure calls.
func (m *Managed) Reconfigurations() uint64 {
	return m.reconfigured.Load()
}

// TimedOut reports whether the last stop did not finish cleanly in time.
func (m *Managed) TimedOut() bool {
	return m.timedOut.Load()
}

func (m *Managed) start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st := m.State(); st != Created {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, st)
	}

	if err := m.res.Start(withStarting(ctx, m)); err != nil {
		return err
	}

	m.state.Store(uint32(Started))
	return nil
}

// Reconfigure asks the runtime to reload its configuration. Only a started
// runtime can be reconfigured.
func (m *Managed) Reconfigure(ctx context.Context) error {
	const op = errors.Op("lifecycle_reconfigure")
	start := time.Now().UTC()

	ctx, span := startSpan(ctx, m.tracer, "lifecycle_reconfigure", m.name)
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch st := m.State(); st {
	case Started, Reconfigured:
	default:
		err := fmt.Errorf("%w: reconfigure in state %s", ErrInvalidState, st)
		span.RecordError(err)
		return err
	}

	if err := m.res.Reconfigure(ctx); err != nil {
		span.RecordError(err)
		return errors.E(op, err)
	}

	m.state.Store(uint32(Reconfigured))
	m.reconfigured.Add(1)

	m.log.Debug("managed resource was reconfigured", zap.String("resource", m.name), zap.Uint64("count", m.reconfigured.Load()), zap.Time("start", start), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// stop is the release action of the runtime. It never returns an error: a
// runtime that does not stop in time is still considered stopped.
func (m *Managed) stop(ctx context.Context) error {
	start := time.Now().UTC()

	// only the deadline bounds the stop, not the caller's cancellation
	ctx, span := startSpan(context.WithoutCancel(ctx), m.tracer, "lifecycle_stop", m.name)
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == Stopped {
		return nil
	}

	deadline := m.source.Deadline()
	ctxT, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- m.res.Stop(ctxT)
	}()

	clean := false
	select {
	case clean = <-done:
	case <-ctxT.Done():
	}

	m.state.Store(uint32(Stopped))

	if !clean {
		m.timedOut.Store(true)
		span.RecordError(ErrShutdownTimeout)
		m.log.Warn("managed resource did not stop in time, marked as stopped", zap.String("resource", m.name), zap.Duration("timeout", deadline), zap.Time("start", start), zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	m.log.Debug("managed resource was stopped", zap.String("resource", m.name), zap.Time("start", start), zap.Duration("elapsed", time.Since(start)))
	return nil
}

type startingCtxKey struct{}

func withStarting(ctx context.Context, m *Managed) context.Context {
	return context.WithValue(ctx, startingCtxKey{}, m)
}

func startingFrom(ctx context.Context) (*Managed, bool) {
	m, ok := ctx.Value(startingCtxKey{}).(*Managed)
	return m, ok && m != nil
}

func startSpan(ctx context.Context, tp *sdktrace.TracerProvider, name, resource string) (context.Context, trace.Span) {
	return tp.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("logtest.resource", resource)),
	)
}
