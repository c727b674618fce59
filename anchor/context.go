package anchor

import (
	"context"
)

type scopeCtxKey struct{}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeCtxKey{}, scope)
}

// FromContext returns the scope carried by ctx.
func FromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeCtxKey{}).(*Scope)
	return s, ok && s != nil
}
