package outbox

import (
	"context"
	"time"
)

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Timed is implemented by events that know when they happened; the bus logs dispatch lag for them.
type Timed interface {
	Event
	EventTime() time.Time
}

// Handler processes one delivery. Errors are logged by the bus and not retried.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
