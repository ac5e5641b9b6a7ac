package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	dominv "github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inventoryService   = "inventory-service"
	useCaseReserve     = "inventory.reserve"
	useCaseRelease     = "inventory.release"
	spanPrefix         = "UC."
	compensationBudget = 5 * time.Second
)

var (
	ErrInsufficientStock = dominv.ErrInsufficientStock
	ErrNotFound          = dominv.ErrNotFound
	ErrInvalidQuantity   = dominv.ErrInvalidQuantity
)

// Ledger reserves and releases stock for whole orders on top of the per-product
// conditional updates of the repository.
type Ledger struct {
	repo   dominv.Repository
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewLedger(repo dominv.Repository, tel observability.Observability) *Ledger {
	baseLog := observability.NopLogger()
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}

	return &Ledger{
		repo:         repo,
		tracer:       tracer,
		log:          baseLog.With(observability.F("service", inventoryService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
	}
}

// ReserveAll reserves every line or none. Stores implementing BatchRepository do it in one
// transaction. Otherwise lines are reserved in order and, if one fails, those already reserved
// in this call are released before the original error is returned.
func (l *Ledger) ReserveAll(ctx context.Context, lines []dominv.Reservation) (err error) {
	logger := logctx.FromOr(ctx, l.log).With(
		observability.F("use_case", useCaseReserve),
		observability.F("lines", len(lines)),
	)
	ctx, span := l.tracer.Start(ctx, spanPrefix+"ReserveInventory",
		attribute.String("use_case", useCaseReserve),
		attribute.Int("inventory.lines", len(lines)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var failedProduct string
	var compensationErr error

	defer func() {
		l.finish(ctx, span, logger, useCaseReserve, start, outcome, statusText, err,
			observability.F("failed_product_id", failedProduct),
			observability.F("compensation_error", errString(compensationErr)),
		)
	}()

	for _, line := range lines {
		if verr := line.Validate(); verr != nil {
			outcome, statusText = "error", "QUANTITY_INVALID"
			failedProduct = line.ProductID
			return fmt.Errorf("inventory: reserve %s: %w", line.ProductID, verr)
		}
	}

	if batch, ok := l.repo.(dominv.BatchRepository); ok {
		span.SetAttributes(attribute.String("inventory.mode", "transactional"))
		if berr := batch.ReserveBatch(ctx, lines); berr != nil {
			outcome, statusText = "error", reserveStatus(berr)
			return fmt.Errorf("inventory: reserve: %w", berr)
		}
		return nil
	}

	reserved := make([]dominv.Reservation, 0, len(lines))
	for _, line := range lines {
		if rerr := l.repo.Reserve(ctx, line.ProductID, line.Quantity); rerr != nil {
			failedProduct = line.ProductID
			outcome = "error"
			statusText = reserveStatus(rerr)
			// The caller's context may already be gone; compensation must still run.
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationBudget)
			compensationErr = l.releaseLines(cctx, logger, reserved)
			cancel()
			if compensationErr != nil {
				logger.Error("inventory_compensation_failed",
					observability.F("error", compensationErr.Error()),
				)
			}
			return fmt.Errorf("inventory: reserve %s: %w", line.ProductID, rerr)
		}
		reserved = append(reserved, line)
		span.AddEvent("inventory.reserved", trace.WithAttributes(
			attribute.String("product.id", line.ProductID),
			attribute.Int("quantity", line.Quantity),
		))
	}

	return nil
}

// ReleaseAll credits every line back. Products that no longer exist are skipped.
func (l *Ledger) ReleaseAll(ctx context.Context, lines []dominv.Reservation) (err error) {
	logger := logctx.FromOr(ctx, l.log).With(
		observability.F("use_case", useCaseRelease),
		observability.F("lines", len(lines)),
	)
	ctx, span := l.tracer.Start(ctx, spanPrefix+"ReleaseInventory",
		attribute.String("use_case", useCaseRelease),
		attribute.Int("inventory.lines", len(lines)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		l.finish(ctx, span, logger, useCaseRelease, start, outcome, statusText, err)
	}()

	if err = l.releaseLines(ctx, logger, lines); err != nil {
		outcome, statusText = "error", "RELEASE_FAILED"
		return err
	}
	return nil
}

func (l *Ledger) releaseLines(ctx context.Context, logger observability.Logger, lines []dominv.Reservation) error {
	var errs []error
	for _, line := range lines {
		err := l.repo.Release(ctx, line.ProductID, line.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, dominv.ErrNotFound):
			logger.Warn("inventory_release_skipped",
				observability.F("product_id", line.ProductID),
				observability.F("quantity", line.Quantity),
				observability.F("reason", dominv.FailureReason(err)),
			)
		default:
			errs = append(errs, fmt.Errorf("inventory: release %s: %w", line.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (l *Ledger) finish(
	ctx context.Context,
	span trace.Span,
	logger observability.Logger,
	useCase string,
	start time.Time,
	outcome, statusText string,
	err error,
	extra ...observability.Field,
) {
	lat := time.Since(start).Seconds()
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()
	}

	l.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
	l.durHistogram.Observe(lat, observability.L("use_case", useCase))

	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", statusText),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, observability.TraceFields(ctx)...)
	for _, f := range extra {
		if s, ok := f.Value.(string); ok && s == "" {
			continue
		}
		fields = append(fields, f)
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	logger.Info("use_case_done", fields...)
}

func reserveStatus(err error) string {
	switch dominv.FailureReason(err) {
	case dominv.FailureReasonInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case dominv.FailureReasonNotFound:
		return "PRODUCT_NOT_FOUND"
	case dominv.FailureReasonInvalidQuantity:
		return "QUANTITY_INVALID"
	default:
		return "RESERVE_FAILED"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
