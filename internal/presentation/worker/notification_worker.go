package workerpresentation

import (
	"context"

	domorder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/colleshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/colleshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const notificationWorker = "notification_worker"

// OrderNotifier is the application service the worker drives.
type OrderNotifier interface {
	OnOrderPlaced(ctx context.Context, e domorder.OrderPlacedEvent) error
	OnStatusChanged(ctx context.Context, e domorder.OrderStatusChangedEvent) error
}

// NotificationWorker feeds order events from the bus to the notifier, one span per delivery.
type NotificationWorker struct {
	subscriber domoutbox.Subscriber
	notifier   OrderNotifier
	tracer     observability.Tracer
	log        observability.Logger
	ignored    observability.Counter
}

func NewNotificationWorker(subscriber domoutbox.Subscriber, notifier OrderNotifier, tel observability.Observability) *NotificationWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &NotificationWorker{
		subscriber: subscriber,
		notifier:   notifier,
		tracer:     tel.Tracer(),
		log:        tel.Logger().With(observability.F("service", notificationWorker)),
		ignored:    tel.Metrics().Counter(observability.MUsecaseRequests),
	}
}

// Start registers the handlers. Call it before the bus starts dispatching.
func (w *NotificationWorker) Start() {
	if w.subscriber == nil || w.notifier == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderPlacedEvent{}.EventName(), w.handleOrderPlaced)
	w.subscriber.Subscribe(domorder.OrderStatusChangedEvent{}.EventName(), w.handleStatusChanged)
}

func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderPlacedEvent)
	if !ok || evt.Order == nil {
		w.ignore(e)
		return nil
	}
	ctx, span := w.tracer.Start(continueTrace(ctx, evt.SpanContext), "Worker.OrderPlaced",
		attribute.String("event", e.EventName()),
		attribute.String("order.id", evt.Order.ID),
	)
	defer span.End()

	ctx = WithEventContext(ctx, w.log, map[string]string{
		"event":    e.EventName(),
		"order_id": evt.Order.ID,
	})
	return w.notifier.OnOrderPlaced(ctx, evt)
}

func (w *NotificationWorker) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderStatusChangedEvent)
	if !ok || evt.Order == nil {
		w.ignore(e)
		return nil
	}
	ctx, span := w.tracer.Start(continueTrace(ctx, evt.SpanContext), "Worker.OrderStatusChanged",
		attribute.String("event", e.EventName()),
		attribute.String("order.id", evt.Order.ID),
		attribute.String("order.status", string(evt.To)),
	)
	defer span.End()

	ctx = WithEventContext(ctx, w.log, map[string]string{
		"event":       e.EventName(),
		"order_id":    evt.Order.ID,
		"from_status": string(evt.From),
		"to_status":   string(evt.To),
	})
	return w.notifier.OnStatusChanged(ctx, evt)
}

// continueTrace parents the delivery span on the request that published the event.
func continueTrace(ctx context.Context, sc trace.SpanContext) context.Context {
	if !sc.IsValid() {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

func (w *NotificationWorker) ignore(e domoutbox.Event) {
	w.ignored.Add(1,
		observability.L("use_case", notificationWorker+"."+e.EventName()),
		observability.L("outcome", "ignored"),
	)
	w.log.Warn("event_ignored", observability.F("event", e.EventName()))
}
