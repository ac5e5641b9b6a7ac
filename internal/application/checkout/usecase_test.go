package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	appinv "github.com/Zhima-Mochi/colleshop/internal/application/inventory"
	apppay "github.com/Zhima-Mochi/colleshop/internal/application/payment"
	"github.com/Zhima-Mochi/colleshop/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/colleshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/trace"
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("id-%d", s.n.Add(1)) }

type recordingPublisher struct {
	events []domoutbox.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type failingOrders struct {
	*memory.OrderRepository
}

func (failingOrders) Insert(context.Context, *domorder.Order) error {
	return errors.New("disk full")
}

type fixture struct {
	products  *memory.ProductRepository
	users     *memory.UserRepository
	orders    *memory.OrderRepository
	publisher *recordingPublisher
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	tel := observability.Nop()

	f := &fixture{
		products:  memory.NewProductRepository(),
		users:     memory.NewUserRepository(),
		orders:    memory.NewOrderRepository(),
		publisher: &recordingPublisher{},
	}
	for _, p := range []*catalog.Product{
		{ID: "A", Name: "Tintilia del Molise DOC", Price: decimal.RequireFromString("10.00"), Stock: 5},
		{ID: "B", Name: "Falanghina del Molise DOC", Price: decimal.RequireFromString("18.00"), Stock: 1},
	} {
		if err := f.products.Upsert(ctx, p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	err := f.users.Upsert(ctx, &user.User{
		ID:       "u1",
		Email:    "maria@example.it",
		FullName: "Maria Rossi",
		Role:     user.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	ids := &seqIDs{}
	f.deps = Deps{
		Products:  f.products,
		Settings:  memory.NewSettingsRepository(),
		Users:     f.users,
		Orders:    f.orders,
		Ledger:    appinv.NewLedger(f.products, tel),
		Payments:  apppay.NewIntentService(nil, ids, apppay.Config{Mode: apppay.ModeMock}, tel),
		IDs:       ids,
		Publisher: f.publisher,
	}
	return f
}

func (f *fixture) useCase() *UseCase { return NewUseCase(f.deps, observability.Nop()) }

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return p.Stock
}

func validInput(total string, items ...Item) Input {
	addr := domorder.Address{Street: "Via Roma 1", City: "Campobasso", ZipCode: "86100", Country: "IT"}
	return Input{
		Principal:       user.Principal{UserID: "u1", Role: user.RoleCustomer},
		Items:           items,
		ShippingAddress: addr,
		BillingAddress:  addr,
		TaxCode:         "RSSMRA80A01H501U",
		ClientTotal:     decimal.RequireFromString(total),
	}
}

func TestCheckoutTotalMismatchLeavesStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.useCase().Execute(context.Background(), validInput("30.00", Item{ProductID: "A", Quantity: 3}))
	if !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("got %v, want ErrTotalMismatch", err)
	}
	if got := f.stock(t, "A"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestCheckoutSuccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.useCase().Execute(context.Background(), validInput("40.00", Item{ProductID: "A", Quantity: 3}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := f.stock(t, "A"); got != 2 {
		t.Fatalf("stock = %d, want 2", got)
	}
	if !res.Total.Equal(decimal.RequireFromString("40")) || res.Status != domorder.StatusPending {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.MockPayment || res.ClientSecret == "" {
		t.Fatalf("expected mock payment intent, got %+v", res)
	}

	stored, err := f.orders.Get(context.Background(), res.OrderID)
	if err != nil {
		t.Fatalf("order not stored: %v", err)
	}
	if stored.Customer.Name != "Maria Rossi" || stored.Customer.Email != "maria@example.it" {
		t.Fatalf("customer snapshot = %+v", stored.Customer)
	}
	if stored.PaymentIntentID != res.PaymentIntentID {
		t.Fatalf("payment intent not persisted")
	}

	if len(f.publisher.events) != 1 || f.publisher.events[0].EventName() != "order.placed" {
		t.Fatalf("events = %+v", f.publisher.events)
	}

	u, _ := f.users.Get(context.Background(), "u1")
	if u.TaxCode != "RSSMRA80A01H501U" || u.ShippingAddress == nil || u.ShippingAddress.City != "Campobasso" {
		t.Fatalf("profile not refreshed: %+v", u)
	}
}

func TestCheckoutWithinToleranceAccepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if _, err := f.useCase().Execute(context.Background(), validInput("40.09", Item{ProductID: "A", Quantity: 3})); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.useCase().Execute(context.Background(), validInput("60.00", Item{ProductID: "A", Quantity: 6}))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}
	if got := f.stock(t, "A"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
	if orders, _ := f.orders.List(context.Background(), 100); len(orders) != 0 {
		t.Fatalf("no order expected, got %d", len(orders))
	}
}

func TestCheckoutRollsBackEarlierLines(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// 2xA = 20, 2xB = 36, shipping 10.
	_, err := f.useCase().Execute(context.Background(), validInput("66.00",
		Item{ProductID: "A", Quantity: 2},
		Item{ProductID: "B", Quantity: 2},
	))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}
	if a, b := f.stock(t, "A"), f.stock(t, "B"); a != 5 || b != 1 {
		t.Fatalf("stock A=%d B=%d, want 5 and 1", a, b)
	}
}

func TestCheckoutUnknownProduct(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.useCase().Execute(context.Background(), validInput("10.00", Item{ProductID: "nope", Quantity: 1}))
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("got %v, want ErrProductNotFound", err)
	}
}

func TestCheckoutTaxIDRequired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := validInput("40.00", Item{ProductID: "A", Quantity: 3})
	in.TaxCode = ""
	if _, err := f.useCase().Execute(context.Background(), in); !errors.Is(err, ErrTaxIDRequired) {
		t.Fatalf("got %v, want ErrTaxIDRequired", err)
	}
	if got := f.stock(t, "A"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestCheckoutUsesStoredTaxID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.users.Upsert(context.Background(), &user.User{ID: "u1", Email: "maria@example.it", TaxCode: "STORED123"}); err != nil {
		t.Fatal(err)
	}

	in := validInput("40.00", Item{ProductID: "A", Quantity: 3})
	in.TaxCode = ""
	res, err := f.useCase().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	stored, _ := f.orders.Get(context.Background(), res.OrderID)
	if stored.Customer.TaxCode != "STORED123" {
		t.Fatalf("tax code = %q", stored.Customer.TaxCode)
	}
}

func TestCheckoutReleasesStockWhenOrderInsertFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.deps.Orders = failingOrders{f.orders}

	_, err := f.useCase().Execute(context.Background(), validInput("40.00", Item{ProductID: "A", Quantity: 3}))
	if !errors.Is(err, ErrRepository) {
		t.Fatalf("got %v, want ErrRepository", err)
	}
	if got := f.stock(t, "A"); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestCheckoutIgnoresPublishFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.publisher.err = errors.New("queue full")

	if _, err := f.useCase().Execute(context.Background(), validInput("40.00", Item{ProductID: "A", Quantity: 3})); err != nil {
		t.Fatalf("publish failure must not fail checkout: %v", err)
	}
}

func TestCheckoutValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	uc := f.useCase()

	anon := validInput("40.00", Item{ProductID: "A", Quantity: 3})
	anon.Principal = user.Principal{}
	if _, err := uc.Execute(context.Background(), anon); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous: got %v", err)
	}

	if _, err := uc.Execute(context.Background(), validInput("0")); !errors.Is(err, ErrValidation) {
		t.Errorf("empty cart: got %v", err)
	}

	zero := validInput("10", Item{ProductID: "A", Quantity: 0})
	if _, err := uc.Execute(context.Background(), zero); !errors.Is(err, ErrValidation) {
		t.Errorf("zero quantity: got %v", err)
	}

	noAddr := validInput("40.00", Item{ProductID: "A", Quantity: 3})
	noAddr.ShippingAddress = domorder.Address{}
	if _, err := uc.Execute(context.Background(), noAddr); !errors.Is(err, ErrValidation) {
		t.Errorf("missing address: got %v", err)
	}
}

func TestCheckoutStoresTrimmedTaxIDOnProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := validInput("40.00", Item{ProductID: "A", Quantity: 3})
	in.TaxCode = "  RSSMRA80A01H501U \n"
	res, err := f.useCase().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	stored, _ := f.orders.Get(context.Background(), res.OrderID)
	u, _ := f.users.Get(context.Background(), "u1")
	if stored.Customer.TaxCode != "RSSMRA80A01H501U" || u.TaxCode != stored.Customer.TaxCode {
		t.Fatalf("order tax code = %q, profile tax code = %q", stored.Customer.TaxCode, u.TaxCode)
	}
}

func TestCheckoutKeepsStoredTaxIDWhenRequestOmitsIt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.users.Upsert(context.Background(), &user.User{ID: "u1", Email: "maria@example.it", TaxCode: "STORED123"}); err != nil {
		t.Fatal(err)
	}

	in := validInput("40.00", Item{ProductID: "A", Quantity: 3})
	in.TaxCode = "   "
	if _, err := f.useCase().Execute(context.Background(), in); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	u, _ := f.users.Get(context.Background(), "u1")
	if u.TaxCode != "STORED123" {
		t.Fatalf("profile tax code = %q, want STORED123", u.TaxCode)
	}
}

func TestCheckoutSnapshotsPricesAgainstLaterCatalogChanges(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.useCase().Execute(ctx, validInput("40.00", Item{ProductID: "A", Quantity: 3}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	repriced, _ := f.products.Get(ctx, "A")
	repriced.Price = decimal.RequireFromString("99.00")
	repriced.Name = "Tintilia Riserva"
	if err := f.products.Upsert(ctx, repriced); err != nil {
		t.Fatal(err)
	}

	stored, err := f.orders.Get(ctx, res.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	line := stored.Items[0]
	if !line.UnitPrice.Equal(decimal.RequireFromString("10.00")) || line.Name != "Tintilia del Molise DOC" {
		t.Fatalf("line snapshot changed: %+v", line)
	}
	if !stored.Total.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("total = %s, want 40.00", stored.Total)
	}
}

func TestCheckoutEventCarriesRequestSpan(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	if _, err := f.useCase().Execute(ctx, validInput("40.00", Item{ProductID: "A", Quantity: 3})); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	evt, ok := f.publisher.events[0].(domorder.OrderPlacedEvent)
	if !ok {
		t.Fatalf("event = %T", f.publisher.events[0])
	}
	if evt.SpanContext.TraceID() != sc.TraceID() {
		t.Fatalf("event trace = %s, want %s", evt.SpanContext.TraceID(), sc.TraceID())
	}
}
