package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/application"
	"github.com/Zhima-Mochi/colleshop/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/colleshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/colleshop/internal/domain/pricing"
	"github.com/Zhima-Mochi/colleshop/internal/domain/settings"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService  = "checkout-service"
	useCaseCheckout  = "order.checkout"
	spanPrefix       = "UC."
	publishPeer      = "outbox"
	publishTimeout   = 300 * time.Millisecond
	releaseBudget    = 5 * time.Second
	profileTimeout   = 2 * time.Second
	maxLinesPerOrder = 100
)

var (
	ErrValidation        = errors.New("checkout: invalid request")
	ErrUnauthenticated   = user.ErrUnauthenticated
	ErrProductNotFound   = errors.New("checkout: product not found")
	ErrTotalMismatch     = errors.New("checkout: declared total does not match")
	ErrTaxIDRequired     = errors.New("checkout: tax id is required")
	ErrInsufficientStock = dominv.ErrInsufficientStock
	ErrRepository        = errors.New("checkout: repository failure")
)

type Item struct {
	ProductID string
	Quantity  int
}

type Input struct {
	Principal       user.Principal
	Items           []Item
	ShippingAddress domorder.Address
	BillingAddress  domorder.Address
	TaxCode         string
	CustomerName    string
	CustomerEmail   string
	ClientTotal     decimal.Decimal
}

type Result struct {
	OrderID         string
	ClientSecret    string
	PaymentIntentID string
	MockPayment     bool
	Total           decimal.Decimal
	Status          domorder.Status
}

// UseCase turns a cart into a pending order: it prices the cart from the catalog, reserves
// stock, obtains a payment intent and persists the order.
type UseCase struct {
	products  catalog.Repository
	settings  settings.Repository
	users     user.Repository
	orders    domorder.Repository
	ledger    InventoryLedger
	payments  PaymentIntents
	ids       application.IDGenerator
	publisher domoutbox.Publisher

	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

type Deps struct {
	Products  catalog.Repository
	Settings  settings.Repository
	Users     user.Repository
	Orders    domorder.Repository
	Ledger    InventoryLedger
	Payments  PaymentIntents
	IDs       application.IDGenerator
	Publisher domoutbox.Publisher
}

var _ application.UseCase[Input, *Result] = (*UseCase)(nil)

func NewUseCase(d Deps, tel observability.Observability) *UseCase {
	baseLog := observability.NopLogger()
	tracer := observability.NopTracer()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		tracer = tel.Tracer()
		metricsProvider = tel.Metrics()
	}

	return &UseCase{
		products:     d.Products,
		settings:     d.Settings,
		users:        d.Users,
		orders:       d.Orders,
		ledger:       d.Ledger,
		payments:     d.Payments,
		ids:          d.IDs,
		publisher:    d.Publisher,
		tracer:       tracer,
		log:          baseLog.With(observability.F("service", checkoutService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

// Execute runs the checkout. Every failure before the order is stored leaves stock untouched.
func (uc *UseCase) Execute(ctx context.Context, in Input) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseCheckout),
		observability.F("user_id", in.Principal.UserID),
	)

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.String("user.id", in.Principal.UserID),
		attribute.Int("checkout.lines", len(in.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var (
		orderID    string
		total      decimal.Decimal
		mock       bool
		publishErr error
		profileErr error
	)

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckout),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseCheckout))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if orderID != "" {
			fields = append(fields,
				observability.F("order_id", orderID),
				observability.F("total", total.StringFixed(2)),
				observability.F("mock_payment", mock),
			)
		}
		fields = append(fields, observability.TraceFields(ctx)...)
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if profileErr != nil {
			fields = append(fields, observability.F("profile_update_error", profileErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	if !in.Principal.Authenticated() {
		outcome, statusText = "error", "UNAUTHENTICATED"
		return nil, ErrUnauthenticated
	}
	if verr := validateInput(in); verr != nil {
		outcome, statusText = "error", "VALIDATION_FAILED"
		return nil, verr
	}

	// 1. Snapshot current products.
	items := make([]domorder.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		p, perr := uc.products.Get(ctx, it.ProductID)
		if perr != nil {
			outcome = "error"
			if errors.Is(perr, catalog.ErrNotFound) {
				statusText = "PRODUCT_NOT_FOUND"
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
			}
			statusText = "PRODUCT_LOOKUP_FAILED"
			return nil, fmt.Errorf("%w: product %s: %w", ErrRepository, it.ProductID, perr)
		}
		items = append(items, domorder.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
		})
	}

	// 2. Price from server-side data only.
	site, serr := uc.settings.Get(ctx)
	if serr != nil {
		outcome, statusText = "error", "SETTINGS_LOOKUP_FAILED"
		return nil, fmt.Errorf("%w: settings: %w", ErrRepository, serr)
	}
	policy := site.ShippingPolicy()
	orderID = uc.ids.NewID()
	priced, derr := domorder.New(orderID, domorder.Draft{UserID: in.Principal.UserID, Items: items}, policy)
	if derr != nil {
		outcome, statusText = "error", "DOMAIN_CONSTRUCTION_FAILED"
		orderID = ""
		return nil, fmt.Errorf("%w: %w", ErrValidation, derr)
	}
	total = priced.Total
	span.SetAttributes(attribute.String("checkout.total", total.StringFixed(2)))

	// 3. Tamper check.
	if !pricing.WithinTolerance(in.ClientTotal, total) {
		outcome, statusText = "error", "TOTAL_MISMATCH"
		logger.Warn("checkout_total_mismatch",
			observability.F("client_total", in.ClientTotal.String()),
			observability.F("server_total", total.StringFixed(2)),
		)
		orderID = ""
		return nil, fmt.Errorf("%w: expected %s", ErrTotalMismatch, total.StringFixed(2))
	}

	// 4. Tax id, resolved before any stock is touched.
	profile, uerr := uc.users.Get(ctx, in.Principal.UserID)
	if uerr != nil && !errors.Is(uerr, user.ErrNotFound) {
		outcome, statusText = "error", "USER_LOOKUP_FAILED"
		orderID = ""
		return nil, fmt.Errorf("%w: user: %w", ErrRepository, uerr)
	}
	customer := resolveCustomer(in, profile)
	if customer.TaxCode == "" {
		outcome, statusText = "error", "TAX_ID_REQUIRED"
		orderID = ""
		return nil, ErrTaxIDRequired
	}

	// 5. Reserve stock; the ledger restores anything it took on failure.
	reservations := priced.Reservations()
	if rerr := uc.ledger.ReserveAll(ctx, reservations); rerr != nil {
		outcome = "error"
		orderID = ""
		switch {
		case errors.Is(rerr, dominv.ErrInsufficientStock):
			statusText = "INSUFFICIENT_STOCK"
			return nil, rerr
		case errors.Is(rerr, dominv.ErrNotFound):
			statusText = "PRODUCT_NOT_FOUND"
			return nil, fmt.Errorf("%w: %w", ErrProductNotFound, rerr)
		default:
			statusText = "RESERVE_FAILED"
			return nil, fmt.Errorf("%w: %w", ErrRepository, rerr)
		}
	}
	span.AddEvent("inventory.reserved")

	// 6. Payment intent; gateway trouble degrades to a mock intent inside the service.
	intent, perr := uc.payments.Create(ctx, total)
	if perr != nil {
		outcome, statusText = "error", "PAYMENT_INTENT_FAILED"
		uc.release(ctx, logger, reservations)
		orderID = ""
		return nil, fmt.Errorf("checkout: payment intent: %w", perr)
	}
	mock = intent.Mock

	// 7. Persist.
	entity := priced
	entity.ShippingAddress = in.ShippingAddress
	entity.BillingAddress = in.BillingAddress
	entity.Customer = customer
	entity.PaymentIntentID = intent.ID
	entity.MockPayment = intent.Mock
	if ierr := uc.orders.Insert(ctx, entity); ierr != nil {
		outcome, statusText = "error", "REPO_INSERT_FAILED"
		uc.release(ctx, logger, reservations)
		orderID = ""
		return nil, fmt.Errorf("%w: insert order: %w", ErrRepository, ierr)
	}
	span.SetAttributes(attribute.String("order.id", orderID))
	span.AddEvent("order.placed", trace.WithAttributes(attribute.String("order.id", orderID)))

	// 8. Best effort profile refresh.
	profileErr = uc.refreshProfile(ctx, in, customer, profile)

	// 9. Notification; never fails the checkout.
	placed := domorder.NewOrderPlacedEvent(entity)
	placed.SpanContext = trace.SpanContextFromContext(ctx)
	publishErr = uc.publish(ctx, placed)
	if publishErr != nil {
		statusText = "EVENT_PUBLISH_FAILED"
	}

	return &Result{
		OrderID:         entity.ID,
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		MockPayment:     intent.Mock,
		Total:           entity.Total,
		Status:          entity.Status,
	}, nil
}

func validateInput(in Input) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	if len(in.Items) > maxLinesPerOrder {
		return fmt.Errorf("%w: too many items", ErrValidation)
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return fmt.Errorf("%w: items[%d].product_id is required", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be greater than zero", ErrValidation, i)
		}
	}
	if in.ClientTotal.IsNegative() {
		return fmt.Errorf("%w: total must not be negative", ErrValidation)
	}
	if err := requireAddress("shipping_address", in.ShippingAddress); err != nil {
		return err
	}
	return requireAddress("billing_address", in.BillingAddress)
}

func requireAddress(field string, a domorder.Address) error {
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.ZipCode) == "" || strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("%w: %s is incomplete", ErrValidation, field)
	}
	return nil
}

// resolveCustomer prefers stored profile data for name and email and the request for the tax id.
func resolveCustomer(in Input, profile *user.User) domorder.Customer {
	c := domorder.Customer{
		Name:    strings.TrimSpace(in.CustomerName),
		Email:   strings.TrimSpace(in.CustomerEmail),
		TaxCode: strings.TrimSpace(in.TaxCode),
	}
	if profile == nil {
		return c
	}
	if profile.FullName != "" {
		c.Name = profile.FullName
	}
	if profile.Email != "" {
		c.Email = profile.Email
	}
	if c.TaxCode == "" {
		c.TaxCode = strings.TrimSpace(profile.TaxCode)
	}
	return c
}

func (uc *UseCase) release(ctx context.Context, logger observability.Logger, lines []dominv.Reservation) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseBudget)
	defer cancel()
	if err := uc.ledger.ReleaseAll(rctx, lines); err != nil {
		logger.Error("checkout_release_failed", observability.F("error", err.Error()))
	}
}

func (uc *UseCase) refreshProfile(ctx context.Context, in Input, customer domorder.Customer, profile *user.User) error {
	if profile == nil {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	update := user.ProfileUpdate{
		ShippingAddress: toUserAddress(in.ShippingAddress),
		BillingAddress:  toUserAddress(in.BillingAddress),
		TaxCode:         customer.TaxCode,
	}
	if err := uc.users.UpdateCheckoutProfile(pctx, profile.ID, update); err != nil {
		return fmt.Errorf("checkout: refresh profile: %w", err)
	}
	return nil
}

func toUserAddress(a domorder.Address) user.Address {
	return user.Address{
		Street:  a.Street,
		City:    a.City,
		ZipCode: a.ZipCode,
		Country: a.Country,
		Phone:   a.Phone,
	}
}

func (uc *UseCase) publish(ctx context.Context, event domoutbox.Event) error {
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
