package wtf

import "context"

// producerKey is an unexported type so WithProducer's context value can
// never collide with a key from another package.
type producerKey struct{}

// WithProducer returns a copy of ctx carrying p as the active Producer.
// This is the tracer's substitute for native thread-local storage: Go
// goroutines have no stable thread identity, so producer propagation runs
// through context.Context along the same call chains callers already use
// for cancellation and deadlines.
func WithProducer(ctx context.Context, p *Producer) context.Context {
	return context.WithValue(ctx, producerKey{}, p)
}

// ProducerFromContext returns the Producer installed by the nearest
// enclosing WithProducer call, if any.
func ProducerFromContext(ctx context.Context) (*Producer, bool) {
	p, ok := ctx.Value(producerKey{}).(*Producer)
	return p, ok
}

// EmitInstant is a convenience wrapper that looks up the context's
// Producer and emits an instant event on it. It is a no-op if ctx carries
// no Producer, matching the tracer's best-effort contract: producers never
// observe errors from the tracer.
func EmitInstant(ctx context.Context, d *EventDescriptor, args ...Arg) {
	p, ok := ProducerFromContext(ctx)
	if !ok {
		return
	}
	p.EmitInstant(d, args...)
}

// EnterScope is the context-based counterpart to Producer.EnterScope. It
// returns a no-op closer if ctx carries no Producer.
func EnterScope(ctx context.Context, d *EventDescriptor, args ...Arg) func() {
	p, ok := ProducerFromContext(ctx)
	if !ok {
		return func() {}
	}
	return p.EnterScope(d, args...)
}
