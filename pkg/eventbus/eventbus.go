package eventbus

import "context"

// Event is anything that can travel over a Bus.
type Event interface {
	Type() string
}

// HandlerFunc handles a single event.
type HandlerFunc func(ctx context.Context, e Event) error

// Bus defines the contract for publishing and subscribing to domain events.
type Bus interface {
	// Register subscribes handler to eventType and returns a func that
	// removes the subscription.
	Register(eventType string, handler HandlerFunc) (unregister func())
	// Emit dispatches e to every handler registered for its type.
	Emit(ctx context.Context, e Event) error
}
