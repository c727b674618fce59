package anchor

import (
	"context"
	"fmt"
	"sync/atomic"
)

// ReleaseFunc is the cleanup bound to a scoped resource.
type ReleaseFunc func(ctx context.Context) error

// Handle ties a release action to the scope that acquired the resource. It is
// released by the registry when that scope exits and never earlier.
type Handle struct {
	name     string
	scope    *Scope
	release  ReleaseFunc
	released atomic.Bool
}

func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) Released() bool {
	return h.released.Load()
}

func (h *Handle) run(ctx context.Context) (err error) {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}

	if h.release == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &ReleaseError{Handle: h.name, Scope: h.scope, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if errR := h.release(ctx); errR != nil {
		return &ReleaseError{Handle: h.name, Scope: h.scope, Err: errR}
	}

	return nil
}

// releaseAll runs the handles last-in first-out and keeps going past failures.
func releaseAll(ctx context.Context, handles []*Handle) []error {
	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		if err := handles[i].run(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
