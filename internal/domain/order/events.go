package order

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// OrderPlacedEvent is emitted after a checkout has persisted a new pending order.
type OrderPlacedEvent struct {
	Order      *Order
	OccurredAt time.Time
	// SpanContext is the span of the request that produced the event; handlers continue its trace.
	SpanContext trace.SpanContext
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func (e OrderPlacedEvent) EventTime() time.Time { return e.OccurredAt }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{Order: o.Clone(), OccurredAt: time.Now().UTC()}
}

// OrderStatusChangedEvent is emitted once per effective status change.
type OrderStatusChangedEvent struct {
	Order       *Order
	From        Status
	To          Status
	OccurredAt  time.Time
	SpanContext trace.SpanContext
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func (e OrderStatusChangedEvent) EventTime() time.Time { return e.OccurredAt }

func NewOrderStatusChangedEvent(o *Order, from Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		Order:      o.Clone(),
		From:       from,
		To:         o.Status,
		OccurredAt: time.Now().UTC(),
	}
}
