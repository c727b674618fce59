package anchor

import (
	stderr "errors"
	"fmt"
)

// ErrScopeNotLive is returned when resources are registered for a scope that
// was never entered or has already exited.
var ErrScopeNotLive = stderr.New("scope is not live")

// ConflictError is returned when a runner that is already anchored is bound
// to a scope other than a strict descendant of its current one.
type ConflictError struct {
	Runner string
	Bound  *Scope
	Scope  *Scope
}

func (e *ConflictError) Error() string {
	if e.Bound == e.Scope {
		return fmt.Sprintf("anchor conflict: runner %q already entered scope %s", e.Runner, e.Scope)
	}
	return fmt.Sprintf("anchor conflict: runner %q is bound to %s, cannot bind to unrelated scope %s", e.Runner, e.Bound, e.Scope)
}

// ReleaseError wraps the failure of a single release action.
type ReleaseError struct {
	Handle string
	Scope  *Scope
	Err    error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("release %q of scope %s: %v", e.Handle, e.Scope, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}
