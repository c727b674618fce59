package lifecycle

import (
	"context"
)

// Resource is the logging runtime managed for a scope.
type Resource interface {
	Start(ctx context.Context) error
	// Stop returns false when the runtime had to be stopped forcibly or did not
	// finish before the deadline carried by ctx.
	Stop(ctx context.Context) bool
	Reconfigure(ctx context.Context) error
}

// Factory creates runtimes. Create fails when the configuration location is
// invalid.
type Factory interface {
	Create(name, configLocation string) (Resource, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(name, configLocation string) (Resource, error)

func (f FactoryFunc) Create(name, configLocation string) (Resource, error) {
	return f(name, configLocation)
}
