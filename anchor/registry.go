package anchor

import (
	"context"
	stderr "errors"
	"fmt"
	"sync"
	"time"

	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

var _ Attributes = (*Registry)(nil)

// Runner is the executing test a scope is anchored to. *testing.T and
// *testing.B satisfy it. Implementations must be comparable.
type Runner interface {
	Name() string
}

// Registry correlates runners with their active scope and owns the attribute
// store and the release handles of every live scope.
type Registry struct {
	log   *zap.Logger
	store *Store

	mu       sync.Mutex
	scopes   map[string]*record
	bindings map[Runner]*Scope
}

type record struct {
	scope   *Scope
	entered time.Time
	handles []*Handle
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}

	return &Registry{
		log:      log,
		store:    NewStore(),
		scopes:   make(map[string]*record),
		bindings: make(map[Runner]*Scope),
	}
}

// Enter records the scope and binds runner to it. A runner already bound to a
// strict ancestor of scope moves to scope; any other existing binding is a
// *ConflictError.
func (r *Registry) Enter(runner Runner, scope *Scope) error {
	const op = errors.Op("anchor_enter_scope")
	if runner == nil || scope == nil {
		return errors.E(op, errors.Str("runner and scope must not be nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if bound, ok := r.bindings[runner]; ok && !bound.IsAncestorOf(scope) {
		return &ConflictError{Runner: runner.Name(), Bound: bound, Scope: scope}
	}

	if _, ok := r.scopes[scope.id]; !ok {
		r.scopes[scope.id] = &record{scope: scope, entered: time.Now().UTC()}
	}
	r.bindings[runner] = scope

	r.log.Debug("scope was entered", zap.String("scope", scope.name), zap.String("id", scope.id), zap.String("runner", runner.Name()), zap.Int("depth", scope.Depth()))
	return nil
}

// Current returns the scope runner is bound to.
func (r *Registry) Current(runner Runner) (*Scope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.bindings[runner]
	return s, ok
}

// Resolve prefers the scope carried by ctx and falls back to the runner
// binding.
func (r *Registry) Resolve(ctx context.Context, runner Runner) (*Scope, bool) {
	if s, ok := FromContext(ctx); ok {
		return s, true
	}
	if runner == nil {
		return nil, false
	}
	return r.Current(runner)
}

// Clear drops the binding of runner, if any.
func (r *Registry) Clear(runner Runner) {
	r.mu.Lock()
	delete(r.bindings, runner)
	r.mu.Unlock()
}

// Lookup returns a live scope by id.
func (r *Registry) Lookup(id string) (*Scope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.scopes[id]
	if !ok {
		return nil, false
	}
	return rec.scope, true
}

// Live returns the number of entered scopes that have not exited yet.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

// Register schedules release to run when scope exits.
func (r *Registry) Register(scope *Scope, name string, release ReleaseFunc) (*Handle, error) {
	return r.attach(scope, name, nil, nil, release)
}

// Attach stores value under key for scope and schedules release for the exit
// of the same scope. Nothing is stored when the scope is not live.
func Attach[T any](r *Registry, scope *Scope, key *Key[T], value T, release ReleaseFunc) (*Handle, error) {
	return r.attach(scope, key.String(), key, value, release)
}

func (r *Registry) attach(scope *Scope, name string, key any, value any, release ReleaseFunc) (*Handle, error) {
	if scope == nil {
		return nil, ErrScopeNotLive
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.scopes[scope.id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScopeNotLive, scope)
	}

	h := &Handle{name: name, scope: scope, release: release}
	rec.handles = append(rec.handles, h)
	if key != nil {
		r.store.set(scope, key, value)
	}

	return h, nil
}

// Exit releases every handle of scope in reverse registration order, drops its
// attributes and unbinds the runners anchored to it or to its descendants.
// Those runners return to the parent scope while it is live. Exiting a scope
// that is not live is a no-op.
func (r *Registry) Exit(ctx context.Context, scope *Scope) error {
	const op = errors.Op("anchor_exit_scope")
	if scope == nil {
		return nil
	}

	r.mu.Lock()
	rec, ok := r.scopes[scope.id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.scopes, scope.id)
	handles := rec.handles
	rec.handles = nil

	_, parentLive := r.scopes[parentID(scope)]
	for runner, bound := range r.bindings {
		if bound != scope && !scope.IsAncestorOf(bound) {
			continue
		}
		if parentLive {
			r.bindings[runner] = scope.parent
			continue
		}
		delete(r.bindings, runner)
	}
	r.mu.Unlock()

	// release actions run unlocked, they may use the registry themselves
	errs := releaseAll(ctx, handles)
	r.store.drop(scope)

	for _, err := range errs {
		r.log.Error("release failed", zap.String("scope", scope.name), zap.String("id", scope.id), zap.Error(err))
	}

	r.log.Debug("scope was exited", zap.String("scope", scope.name), zap.String("id", scope.id), zap.Int("released", len(handles)), zap.Int("failed", len(errs)), zap.Duration("elapsed", time.Since(rec.entered)))

	if len(errs) > 0 {
		return errors.E(op, stderr.Join(errs...))
	}

	return nil
}

func (r *Registry) lookup(scope *Scope, key any) (any, *Scope, bool) {
	return r.store.lookup(scope, key)
}

func (r *Registry) local(scope *Scope, key any) (any, bool) {
	return r.store.local(scope, key)
}

// set ignores scopes that are not live, their entries would never be dropped.
func (r *Registry) set(scope *Scope, key any, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scopes[scope.id]; !ok {
		return
	}
	r.store.set(scope, key, value)
}

func (r *Registry) remove(scope *Scope, key any) {
	r.store.remove(scope, key)
}

func parentID(s *Scope) string {
	if s.parent == nil {
		return ""
	}
	return s.parent.id
}
