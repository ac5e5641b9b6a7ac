package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/application"
	dompay "github.com/Zhima-Mochi/colleshop/internal/domain/payment"
	"github.com/Zhima-Mochi/colleshop/internal/domain/pricing"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	paymentService        = "payment-service"
	useCaseCreateIntent   = "payment.create_intent"
	spanPrefix            = "UC."
	gatewayPeer           = "payment_gateway"
	gatewayEndpoint       = "payment_intents.create"
	defaultTimeout        = 5 * time.Second
	mockIntentPrefix      = "mock_pi_"
	mockSecretPrefix      = "mock_secret_"
	fallbackReasonError   = "gateway_error"
	fallbackReasonTimeout = "gateway_timeout"
)

type Mode string

const (
	ModeMock   Mode = "mock"
	ModeStripe Mode = "stripe"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeMock, ModeStripe:
		return m, nil
	case "":
		return ModeMock, nil
	default:
		return "", fmt.Errorf("payment: unknown mode %q", s)
	}
}

type Config struct {
	Mode     Mode
	Currency string
	Timeout  time.Duration
}

// IntentService obtains a payment intent for an order total. A gateway failure never fails
// the checkout: it degrades to a locally generated mock intent.
type IntentService struct {
	gateway dompay.Gateway
	ids     application.IDGenerator
	cfg     Config

	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	fallbacks    observability.Counter   // payment_fallback_total{reason}
}

// NewIntentService returns a service in cfg.Mode. gateway may be nil in mock mode.
func NewIntentService(gateway dompay.Gateway, ids application.IDGenerator, cfg Config, tel observability.Observability) *IntentService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	if cfg.Mode == "" || gateway == nil {
		cfg.Mode = ModeMock
	}

	baseLog := observability.NopLogger()
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}

	return &IntentService{
		gateway:      gateway,
		ids:          ids,
		cfg:          cfg,
		tracer:       tracer,
		log:          baseLog.With(observability.F("service", paymentService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
		fallbacks:    metricsProvider.Counter(observability.MPaymentFallbacks),
	}
}

func (s *IntentService) Mode() Mode { return s.cfg.Mode }

// Create never returns an error for gateway problems; only a negative amount is rejected.
func (s *IntentService) Create(ctx context.Context, amount decimal.Decimal) (_ dompay.Intent, err error) {
	amountMinor := pricing.MinorUnits(amount)
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseCreateIntent),
		observability.F("amount_minor", amountMinor),
		observability.F("currency", s.cfg.Currency),
		observability.F("mode", string(s.cfg.Mode)),
	)
	ctx, span := s.tracer.Start(ctx, spanPrefix+"CreatePaymentIntent",
		attribute.String("use_case", useCaseCreateIntent),
		attribute.Int64("payment.amount_minor", amountMinor),
		attribute.String("payment.mode", string(s.cfg.Mode)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var intent dompay.Intent

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetAttributes(attribute.Bool("payment.mock", intent.Mock))
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCaseCreateIntent),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat, observability.L("use_case", useCaseCreateIntent))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("mock_payment", intent.Mock),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if amount.IsNegative() {
		outcome, statusText = "error", "AMOUNT_INVALID"
		return dompay.Intent{}, fmt.Errorf("payment: amount must not be negative")
	}

	if s.cfg.Mode == ModeMock {
		statusText = "MOCK"
		intent = s.mockIntent()
		return intent, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	callStart := time.Now()
	intent, gerr := s.gateway.CreateIntent(gctx, amountMinor, s.cfg.Currency)
	callOutcome := "success"
	if gerr == nil && intent.ID == "" {
		gerr = fmt.Errorf("%w: empty intent id", dompay.ErrGatewayDegraded)
	}
	if gerr != nil {
		callOutcome = "error"
		if errors.Is(gerr, context.DeadlineExceeded) || gctx.Err() != nil {
			callOutcome = "timeout"
		}
	}
	s.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayEndpoint),
		observability.L("outcome", callOutcome),
	)
	s.extHistogram.Observe(time.Since(callStart).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayEndpoint),
	)

	if gerr != nil {
		reason := fallbackReasonError
		if callOutcome == "timeout" {
			reason = fallbackReasonTimeout
		}
		s.fallbacks.Add(1, observability.L("reason", reason))
		logger.Warn("payment_gateway_degraded",
			observability.F("reason", reason),
			observability.F("error", gerr.Error()),
		)
		span.AddEvent("payment.fallback")
		statusText = "MOCK_FALLBACK"
		intent = s.mockIntent()
		return intent, nil
	}

	return intent, nil
}

func (s *IntentService) mockIntent() dompay.Intent {
	return dompay.Intent{
		ID:           mockIntentPrefix + s.ids.NewID(),
		ClientSecret: mockSecretPrefix + s.ids.NewID(),
		Mock:         true,
	}
}
