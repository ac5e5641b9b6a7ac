package notification

import (
	"context"
	"fmt"
	"time"

	domnotif "github.com/Zhima-Mochi/colleshop/internal/domain/notification"
	domorder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	notificationService = "notification-service"
	useCaseConfirmation = "notification.order_confirmation"
	useCaseStatusChange = "notification.status_change"
	spanPrefix          = "UC."
	notifierPeer        = "notifier"
	defaultSendTimeout  = 10 * time.Second
)

// Service turns order events into customer emails. Errors are returned to the caller (the bus
// worker) for logging only; nothing here can affect the order that triggered the event.
type Service struct {
	notifier    domnotif.Notifier
	sendTimeout time.Duration

	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	sent         observability.Counter   // notification_sent_total{outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewService(notifier domnotif.Notifier, sendTimeout time.Duration, tel observability.Observability) *Service {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	baseLog := observability.NopLogger()
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}
	return &Service{
		notifier:     notifier,
		sendTimeout:  sendTimeout,
		tracer:       tracer,
		log:          baseLog.With(observability.F("service", notificationService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		sent:         metricsProvider.Counter(observability.MNotificationsSent),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

func (s *Service) OnOrderPlaced(ctx context.Context, e domorder.OrderPlacedEvent) error {
	return s.notify(ctx, useCaseConfirmation, e.Order, renderConfirmation)
}

// OnStatusChanged notifies for every effective change; no-op updates never produce an event.
func (s *Service) OnStatusChanged(ctx context.Context, e domorder.OrderStatusChangedEvent) error {
	return s.notify(ctx, useCaseStatusChange, e.Order, renderStatusChange)
}

func (s *Service) notify(
	ctx context.Context,
	useCase string,
	o *domorder.Order,
	render func(*domorder.Order) (string, string, error),
) (err error) {
	if o == nil {
		return nil
	}
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCase),
		observability.F("order_id", o.ID),
		observability.F("order_status", string(o.Status)),
	)
	ctx, span := s.tracer.Start(ctx, spanPrefix+"Notify",
		attribute.String("use_case", useCase),
		attribute.String("order.id", o.ID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat, observability.L("use_case", useCase))
		s.sent.Add(1, observability.L("outcome", outcome))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
			logger.Warn("notification_send_failed", fields...)
			return
		}
		logger.Info("use_case_done", fields...)
	}()

	if o.Customer.Email == "" {
		outcome, statusText = "skipped", "NO_RECIPIENT"
		return nil
	}

	subject, body, err := render(o)
	if err != nil {
		outcome, statusText = "error", "RENDER_FAILED"
		return err
	}
	msg := domnotif.Message{To: o.Customer.Email, Subject: subject, HTML: body}

	sctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	sendStart := time.Now()
	err = s.notifier.Send(sctx, msg)
	s.extHistogram.Observe(time.Since(sendStart).Seconds(),
		observability.L("peer", notifierPeer),
		observability.L("endpoint", useCase),
	)
	if err != nil {
		outcome, statusText = "error", "SEND_FAILED"
		return fmt.Errorf("notification: send: %w", err)
	}
	return nil
}
