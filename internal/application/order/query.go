package order

import (
	"context"
	"time"

	domain "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	useCaseGetOrder = "order.get"
	useCaseListMine = "order.list_mine"
	useCaseListAll  = "order.list_all"
	useCaseDash     = "order.dashboard"
	listLimit       = 100
	recentOrders    = 5
)

// Counter is any store that can report how many records it holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// QueryService serves the read side of orders with owner-or-admin visibility.
type QueryService struct {
	repo     domain.Repository
	users    Counter
	products Counter

	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

type QueryOption func(*QueryService)

// WithDirectory lets the admin dashboard report user and product totals.
func WithDirectory(users, products Counter) QueryOption {
	return func(s *QueryService) {
		s.users = users
		s.products = products
	}
}

func NewQueryService(repo domain.Repository, tel observability.Observability, opts ...QueryOption) *QueryService {
	baseLog := observability.NopLogger()
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}
	s := &QueryService{
		repo:         repo,
		tracer:       tracer,
		log:          baseLog.With(observability.F("service", orderService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get hides other customers' orders behind ErrForbidden, matching the admin check everywhere else.
func (s *QueryService) Get(ctx context.Context, p user.Principal, id string) (o *domain.Order, err error) {
	ctx, done := s.begin(ctx, useCaseGetOrder, attribute.String("order.id", id))
	defer func() { done(err) }()

	if !p.Authenticated() {
		return nil, ErrUnauthenticated
	}
	o, err = s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	if !p.CanViewOrder(o.UserID) {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *QueryService) ListMine(ctx context.Context, p user.Principal) (orders []*domain.Order, err error) {
	ctx, done := s.begin(ctx, useCaseListMine)
	defer func() { done(err) }()

	if !p.Authenticated() {
		return nil, ErrUnauthenticated
	}
	orders, err = s.repo.ListByUser(ctx, p.UserID, listLimit)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return orders, nil
}

func (s *QueryService) ListAll(ctx context.Context, p user.Principal) (orders []*domain.Order, err error) {
	ctx, done := s.begin(ctx, useCaseListAll)
	defer func() { done(err) }()

	if err = user.Authorize(p, user.CapViewAllOrders); err != nil {
		return nil, err
	}
	orders, err = s.repo.List(ctx, listLimit)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return orders, nil
}

// begin opens the span and returns the closer that records RED metrics and logs failures.
func (s *QueryService) begin(ctx context.Context, useCase string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, spanPrefix+useCase, append(attrs, attribute.String("use_case", useCase))...)
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCase))
	start := time.Now()

	return ctx, func(err error) {
		lat := time.Since(start).Seconds()
		outcome, statusText := "success", "OK"
		if err != nil {
			outcome, statusText = "error", statusFor(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
			logger.Warn("query_failed",
				observability.F("status", statusText),
				observability.F("error", err.Error()),
			)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat, observability.L("use_case", useCase))
	}
}
