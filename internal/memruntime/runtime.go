package memruntime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/wu-yy/logtest/lifecycle"
	"github.com/wu-yy/logtest/status"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	statusLogger = "memruntime"

	// locations with this suffix cannot be loaded at all
	invalidSuffix = ".invalid"
	// locations containing this marker load but report a broken element
	incompatibleMarker = "incompatible"
)

var (
	_ lifecycle.Factory  = (*Factory)(nil)
	_ lifecycle.Resource = (*Runtime)(nil)
)

// Factory creates in-memory runtimes that report on a status bus.
type Factory struct {
	bus *status.Bus
	log *zap.Logger

	// StopDelay is how long Stop takes. A delay beyond the stop deadline makes
	// Stop report an unclean shutdown.
	StopDelay time.Duration

	mu      sync.Mutex
	created []*Runtime
}

func NewFactory(bus *status.Bus, log *zap.Logger) *Factory {
	if bus == nil {
		bus = status.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Factory{bus: bus, log: log}
}

func (f *Factory) Create(name, configLocation string) (lifecycle.Resource, error) {
	const op = errors.Op("memruntime_create")
	if strings.HasSuffix(configLocation, invalidSuffix) {
		return nil, errors.E(op, errors.Errorf("invalid configuration location: %q", configLocation))
	}

	rt := &Runtime{
		name:      name,
		location:  configLocation,
		bus:       f.bus,
		log:       f.log.With(zap.String("runtime", name)),
		stopDelay: f.StopDelay,
	}

	f.mu.Lock()
	f.created = append(f.created, rt)
	f.mu.Unlock()

	return rt, nil
}

// Created returns every runtime created so far.
func (f *Factory) Created() []*Runtime {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*Runtime, len(f.created))
	copy(out, f.created)
	return out
}

// Runtime is a logging runtime that keeps its output in memory.
type Runtime struct {
	name      string
	location  string
	bus       *status.Bus
	log       *zap.Logger
	stopDelay time.Duration

	starts       atomic.Int64
	reconfigures atomic.Int64
	stops        atomic.Int64

	mu    sync.Mutex
	lines []string
}

func (r *Runtime) Name() string {
	return r.name
}

func (r *Runtime) Location() string {
	return r.location
}

func (r *Runtime) Start(ctx context.Context) error {
	r.starts.Add(1)
	r.bus.Emit(ctx, zapcore.DebugLevel, statusLogger, "Starting configuration %s", r.describe())

	if strings.Contains(r.location, incompatibleMarker) {
		r.bus.EmitError(ctx, statusLogger, fmt.Errorf("element %s is not supported", incompatibleMarker), "Could not configure plugin element %s", incompatibleMarker)
	}

	r.bus.Emit(ctx, zapcore.InfoLevel, statusLogger, "Configuration %s started", r.describe())
	r.record("started " + r.describe())
	r.log.Debug("runtime started", zap.String("config", r.location))
	return nil
}

func (r *Runtime) Reconfigure(ctx context.Context) error {
	n := r.reconfigures.Add(1)
	r.bus.Emit(ctx, zapcore.DebugLevel, statusLogger, "Reconfiguration %d started for context %s", n, r.name)
	r.record(fmt.Sprintf("reconfigured %d", n))
	r.log.Debug("runtime reconfigured", zap.Int64("count", n))
	return nil
}

// Stop waits for the configured delay. It reports false when ctx ends first.
func (r *Runtime) Stop(ctx context.Context) bool {
	r.stops.Add(1)

	if r.stopDelay > 0 {
		t := time.NewTimer(r.stopDelay)
		defer t.Stop()

		select {
		case <-t.C:
		case <-ctx.Done():
			r.log.Debug("runtime stop interrupted", zap.Error(ctx.Err()))
			return false
		}
	}

	r.bus.Emit(ctx, zapcore.DebugLevel, statusLogger, "Stopped configuration %s", r.describe())
	r.record("stopped " + r.describe())
	return true
}

func (r *Runtime) record(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

// Lines returns the lifecycle transitions the runtime went through, oldest
// first.
func (r *Runtime) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *Runtime) Starts() int64 {
	return r.starts.Load()
}

func (r *Runtime) Reconfigures() int64 {
	return r.reconfigures.Load()
}

func (r *Runtime) Stops() int64 {
	return r.stops.Load()
}

func (r *Runtime) describe() string {
	if r.location == "" {
		return "Default@" + r.name
	}
	return r.location + "@" + r.name
}
