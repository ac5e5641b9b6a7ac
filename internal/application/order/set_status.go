package order

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/application"
	domain "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/colleshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService     = "order-service"
	useCaseSetStatus = "order.set_status"
	spanPrefix       = "UC."
	publishPeer      = "outbox"
	publishTimeout   = 300 * time.Millisecond
	releaseBudget    = 5 * time.Second
	maxCASAttempts   = 2
)

type SetStatusInput struct {
	Principal user.Principal
	OrderID   string
	Status    string
	Tracking  *domain.Tracking
}

type SetStatusResult struct {
	Order   *domain.Order
	Changed bool
}

// SetStatusUseCase is the admin-only lifecycle transition. Cancelling credits stock back
// exactly once, no matter how many cancel requests race.
type SetStatusUseCase struct {
	repo      domain.Repository
	stock     StockReleaser
	publisher domoutbox.Publisher

	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

var _ application.UseCase[SetStatusInput, *SetStatusResult] = (*SetStatusUseCase)(nil)

func NewSetStatusUseCase(
	repo domain.Repository,
	stock StockReleaser,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *SetStatusUseCase {
	baseLog := observability.NopLogger()
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}

	return &SetStatusUseCase{
		repo:         repo,
		stock:        stock,
		publisher:    publisher,
		tracer:       tracer,
		log:          baseLog.With(observability.F("service", orderService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

func (uc *SetStatusUseCase) Execute(ctx context.Context, cmd SetStatusInput) (_ *SetStatusResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseSetStatus),
		observability.F("order_id", cmd.OrderID),
		observability.F("target_status", cmd.Status),
		observability.F("actor_id", cmd.Principal.UserID),
	)
	ctx, span := uc.tracer.Start(ctx, spanPrefix+"SetOrderStatus",
		attribute.String("use_case", useCaseSetStatus),
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var from domain.Status
	var releaseErr, publishErr error

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			outcome, statusText = "error", statusFor(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseSetStatus),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseSetStatus))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if from != "" {
			fields = append(fields, observability.F("from_status", string(from)))
		}
		fields = append(fields, observability.TraceFields(ctx)...)
		if releaseErr != nil {
			fields = append(fields, observability.F("release_error", releaseErr.Error()))
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if err = user.Authorize(cmd.Principal, user.CapManageOrders); err != nil {
		return nil, err
	}
	target, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	var updated *domain.Order
	for attempt := 1; ; attempt++ {
		current, gerr := uc.repo.Get(ctx, cmd.OrderID)
		if gerr != nil {
			return nil, wrapRepositoryError(gerr)
		}
		from = current.Status

		update, changed, perr := domain.PlanTransition(current, target, cmd.Tracking)
		if perr != nil {
			return nil, perr
		}
		if !changed {
			statusText = "UNCHANGED"
			return &SetStatusResult{Order: current}, nil
		}

		updated, err = uc.repo.ApplyStatus(ctx, cmd.OrderID, update)
		if err == nil {
			break
		}
		// Another request moved the order first; re-evaluate against the fresh state once.
		if errors.Is(err, domain.ErrConflict) && attempt < maxCASAttempts {
			span.AddEvent("order.status_conflict")
			continue
		}
		return nil, wrapRepositoryError(err)
	}

	span.SetAttributes(
		attribute.String("order.from_status", string(from)),
		attribute.String("order.status", string(updated.Status)),
	)

	if updated.Status == domain.StatusCancelled {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseBudget)
		releaseErr = uc.stock.ReleaseAll(rctx, updated.Reservations())
		cancel()
		if releaseErr != nil {
			statusText = "STOCK_RELEASE_FAILED"
			logger.Error("order_stock_release_failed", observability.F("error", releaseErr.Error()))
		}
	}

	changedEvt := domain.NewOrderStatusChangedEvent(updated, from)
	changedEvt.SpanContext = trace.SpanContextFromContext(ctx)
	publishErr = uc.publish(ctx, changedEvt)
	if publishErr != nil && statusText == "OK" {
		statusText = "EVENT_PUBLISH_FAILED"
	}

	return &SetStatusResult{Order: updated, Changed: true}, nil
}

func (uc *SetStatusUseCase) publish(ctx context.Context, event domoutbox.Event) error {
	if uc.publisher == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	pubStart := time.Now()
	err := uc.publisher.Publish(pubCtx, event)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
	)
	return err
}
