package eventbus

import (
	"context"
)

// Event is anything the bus can carry. Key groups related events (the account
// ID) so ordered transports keep them in sequence.
type Event interface {
	Type() string
	Key() string
}

// HandlerFunc handles a delivered event.
type HandlerFunc func(ctx context.Context, e Event) error

// Bus publishes events after the ledger commits.
type Bus interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber is implemented by buses that deliver events in process.
type Subscriber interface {
	Subscribe(eventType string, handler HandlerFunc)
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }
