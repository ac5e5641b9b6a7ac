package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/domain/catalog"
	"github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/domain/settings"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	if !isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatal("expected 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error is not a unique violation")
	}
}

func TestOptionalDecimal(t *testing.T) {
	t.Parallel()

	got, err := parseOptionalDecimal(nil)
	if err != nil || got != nil {
		t.Fatalf("nil input: got %v, %v", got, err)
	}
	s := "12.50"
	got, err = parseOptionalDecimal(&s)
	if err != nil || !got.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("got %v, %v", got, err)
	}
	bad := "twelve"
	if _, err := parseOptionalDecimal(&bad); err == nil {
		t.Fatal("expected parse error")
	}
	if optionalDecimalString(nil) != nil {
		t.Fatal("nil decimal should stay NULL")
	}
}

// openTestStore connects to COLLESHOP_TEST_DATABASE_URL and skips when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("COLLESHOP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("COLLESHOP_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestProductReserveConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	products := s.Products()

	id := "test-" + uuid.NewString()
	if err := products.Upsert(ctx, &catalog.Product{ID: id, Name: "Tintilia", Price: decimal.RequireFromString("24.00"), Stock: 3}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := products.Reserve(ctx, id, 1); err == nil {
				ok.Add(1)
			} else if !errors.Is(err, inventory.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 3 {
		t.Fatalf("successful reservations = %d, want 3", ok.Load())
	}
	if err := products.Reserve(ctx, "missing-"+id, 1); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("missing product: %v", err)
	}
}

func TestProductReserveBatchRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	products := s.Products()

	a, b := "test-"+uuid.NewString(), "test-"+uuid.NewString()
	for _, p := range []*catalog.Product{
		{ID: a, Name: "Falanghina", Price: decimal.RequireFromString("18.00"), Stock: 5},
		{ID: b, Name: "Rosato", Price: decimal.RequireFromString("20.00"), Stock: 1},
	} {
		if err := products.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	err := products.ReserveBatch(ctx, []inventory.Reservation{{ProductID: a, Quantity: 2}, {ProductID: b, Quantity: 2}})
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("err = %v", err)
	}
	got, err := products.Get(ctx, a)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("stock after rollback = %d, want 5", got.Stock)
	}
}

func TestOrderApplyStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	orders := s.Orders()

	now := time.Now().UTC().Truncate(time.Microsecond)
	o := &domain.Order{
		ID:     uuid.NewString(),
		UserID: "user-1",
		Items: []domain.LineItem{
			{ProductID: "p1", Name: "Tintilia", UnitPrice: decimal.RequireFromString("24.00"), Quantity: 1},
		},
		Subtotal:    decimal.RequireFromString("24.00"),
		ShippingFee: decimal.RequireFromString("10.00"),
		Total:       decimal.RequireFromString("34.00"),
		Status:      domain.StatusPending,
		Customer:    domain.Customer{Name: "Anna", Email: "anna@example.com"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := orders.Insert(ctx, o); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := orders.Insert(ctx, o); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate insert: %v", err)
	}

	tracking := &domain.Tracking{Number: "TRK1", Courier: "BRT"}
	if _, err := orders.ApplyStatus(ctx, o.ID, domain.StatusUpdate{From: domain.StatusPending, To: domain.StatusPaid}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	got, err := orders.ApplyStatus(ctx, o.ID, domain.StatusUpdate{From: domain.StatusPaid, To: domain.StatusShipped, Tracking: tracking})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if got.Status != domain.StatusShipped || got.Tracking == nil || got.Tracking.Number != "TRK1" {
		t.Fatalf("got %+v", got)
	}
	if !got.Total.Equal(o.Total) {
		t.Fatalf("total = %s", got.Total)
	}

	if _, err := orders.ApplyStatus(ctx, o.ID, domain.StatusUpdate{From: domain.StatusPaid, To: domain.StatusCancelled}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stale from: %v", err)
	}
	if _, err := orders.ApplyStatus(ctx, "missing", domain.StatusUpdate{From: domain.StatusPending, To: domain.StatusPaid}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestOrderSummarizeAndTrackingCorrection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	orders := s.Orders()
	userID := "user-" + uuid.NewString()

	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, st := range []struct {
		status domain.Status
		total  string
	}{
		{domain.StatusPending, "50.00"},
		{domain.StatusShipped, "12.30"},
		{domain.StatusPaid, "7.70"},
		{domain.StatusCancelled, "99.00"},
	} {
		err := orders.Insert(ctx, &domain.Order{
			ID:     uuid.NewString(),
			UserID: userID,
			Items: []domain.LineItem{
				{ProductID: "p1", Name: "Tintilia", UnitPrice: decimal.RequireFromString(st.total), Quantity: 1},
			},
			Subtotal:  decimal.RequireFromString(st.total),
			Total:     decimal.RequireFromString(st.total),
			Status:    st.status,
			Tracking:  &domain.Tracking{Number: "OLD", Courier: "BRT"},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	sum, err := orders.Summarize(ctx, userID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Orders != 4 || !sum.Revenue.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("summary = %d / %s", sum.Orders, sum.Revenue)
	}

	mine, _ := orders.ListByUser(ctx, userID, 10)
	var shipped *domain.Order
	for _, o := range mine {
		if o.Status == domain.StatusShipped {
			shipped = o
		}
	}
	got, err := orders.ApplyStatus(ctx, shipped.ID, domain.StatusUpdate{
		From:     domain.StatusShipped,
		To:       domain.StatusShipped,
		Tracking: &domain.Tracking{Number: "NEW", Courier: "BRT"},
	})
	if err != nil {
		t.Fatalf("tracking correction: %v", err)
	}
	if got.Status != domain.StatusShipped || got.Tracking.Number != "NEW" {
		t.Fatalf("got %+v", got)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Settings()

	fee := decimal.RequireFromString("7.50")
	if err := repo.Save(ctx, settings.SiteSettings{ShippingCost: &fee, ContactEmail: "info@colleshop.it"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	policy := got.ShippingPolicy()
	if !policy.Fee.Equal(fee) || !policy.FreeThreshold.Equal(settings.DefaultFreeShippingThreshold) {
		t.Fatalf("policy = %+v", policy)
	}
}
