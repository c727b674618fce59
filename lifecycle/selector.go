package lifecycle

import (
	"context"
	"fmt"

	"github.com/wu-yy/logtest/anchor"
)

// Selector resolves the runtime a caller should log to.
type Selector struct {
	reg *anchor.Registry
}

func NewSelector(reg *anchor.Registry) *Selector {
	return &Selector{reg: reg}
}

// Context returns the runtime that is starting on ctx, if any, so a runtime
// can log while it is configured. Otherwise it resolves the managed runtime of
// the scope carried by ctx or of one of its ancestors.
func (s *Selector) Context(ctx context.Context) (Resource, error) {
	if m, ok := startingFrom(ctx); ok {
		return m.res, nil
	}

	scope, ok := anchor.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no scope in context", ErrMissingResource)
	}

	m, ok := anchor.Get(s.reg, scope, ManagedKey)
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingResource, scope)
	}

	return m.res, nil
}

// Contexts returns the runtimes visible from ctx, zero or one.
func (s *Selector) Contexts(ctx context.Context) []Resource {
	res, err := s.Context(ctx)
	if err != nil {
		return nil
	}
	return []Resource{res}
}

// Remove forgets the runtime stored on the scope carried by ctx. The runtime
// is still stopped when that scope exits.
func (s *Selector) Remove(ctx context.Context) {
	if scope, ok := anchor.FromContext(ctx); ok {
		anchor.Remove(s.reg, scope, ManagedKey)
	}
}
