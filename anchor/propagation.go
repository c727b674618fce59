package anchor

import (
	"context"

	"github.com/roadrunner-server/errors"
	jprop "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
)

const baggageKey string = "logtest.scope"

var propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}, jprop.Jaeger{})

// Propagator is the text map propagator used by Inject and Extract. Trace
// context set on ctx travels alongside the scope.
func Propagator() propagation.TextMapPropagator {
	return propagator
}

// Inject writes the scope carried by ctx into carrier. Without a scope only the
// trace context, if any, is written.
func Inject(ctx context.Context, carrier propagation.TextMapCarrier) error {
	const op = errors.Op("anchor_inject")

	if s, ok := FromContext(ctx); ok {
		member, err := baggage.NewMember(baggageKey, s.id)
		if err != nil {
			return errors.E(op, err)
		}

		bag, err := baggage.FromContext(ctx).SetMember(member)
		if err != nil {
			return errors.E(op, err)
		}
		ctx = baggage.ContextWithBaggage(ctx, bag)
	}

	propagator.Inject(ctx, carrier)
	return nil
}

// Extract reads carrier into ctx and, when it names a live scope, anchors the
// returned context to that scope.
func (r *Registry) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	ctx = propagator.Extract(ctx, carrier)

	id := baggage.FromContext(ctx).Member(baggageKey).Value()
	if id == "" {
		return ctx
	}

	if s, ok := r.Lookup(id); ok {
		return WithScope(ctx, s)
	}

	return ctx
}
