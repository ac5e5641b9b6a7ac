package order

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/shopspring/decimal"
)

func newQueryFixture(t *testing.T) *QueryService {
	t.Helper()
	repo := memory.NewOrderRepository()
	now := time.Now().UTC()
	for i, o := range []*domain.Order{
		{ID: "o1", UserID: "u1", Status: domain.StatusPending, CreatedAt: now},
		{ID: "o2", UserID: "u2", Status: domain.StatusPaid, CreatedAt: now.Add(time.Second)},
		{ID: "o3", UserID: "u1", Status: domain.StatusPaid, CreatedAt: now.Add(2 * time.Second)},
	} {
		if err := repo.Insert(context.Background(), o); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	return NewQueryService(repo, observability.Nop())
}

func TestGetOrderVisibility(t *testing.T) {
	t.Parallel()
	q := newQueryFixture(t)
	ctx := context.Background()

	if _, err := q.Get(ctx, customer, "o1"); err != nil {
		t.Errorf("owner: %v", err)
	}
	if _, err := q.Get(ctx, customer, "o2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other customer: got %v", err)
	}
	if _, err := q.Get(ctx, admin, "o2"); err != nil {
		t.Errorf("admin: %v", err)
	}
	if _, err := q.Get(ctx, admin, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v", err)
	}
	if _, err := q.Get(ctx, user.Principal{}, "o1"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous: got %v", err)
	}
}

func TestListOrders(t *testing.T) {
	t.Parallel()
	q := newQueryFixture(t)
	ctx := context.Background()

	mine, err := q.ListMine(ctx, customer)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "o3" {
		t.Fatalf("ListMine = %v", ids(mine))
	}

	if _, err := q.ListAll(ctx, customer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer ListAll: got %v", err)
	}
	all, err := q.ListAll(ctx, admin)
	if err != nil || len(all) != 3 {
		t.Fatalf("admin ListAll: %d orders, err %v", len(all), err)
	}
}

func ids(orders []*domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

type fixedCount int

func (n fixedCount) Count(context.Context) (int, error) { return int(n), nil }

func TestDashboardRevenueCountsCollectedOrdersOnly(t *testing.T) {
	t.Parallel()
	repo := memory.NewOrderRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	for i, o := range []*domain.Order{
		{ID: "o1", UserID: "u1", Status: domain.StatusPending, Total: decimal.RequireFromString("100.00"), CreatedAt: now},
		{ID: "o2", UserID: "u1", Status: domain.StatusPaid, Total: decimal.RequireFromString("25.50"), CreatedAt: now.Add(time.Second)},
		{ID: "o3", UserID: "u2", Status: domain.StatusShipped, Total: decimal.RequireFromString("40.00"), CreatedAt: now.Add(2 * time.Second)},
		{ID: "o4", UserID: "u1", Status: domain.StatusCancelled, Total: decimal.RequireFromString("70.00"), CreatedAt: now.Add(3 * time.Second)},
		{ID: "o5", UserID: "u2", Status: domain.StatusPending, Total: decimal.RequireFromString("9.99"), CreatedAt: now.Add(4 * time.Second)},
		{ID: "o6", UserID: "u2", Status: domain.StatusPaid, Total: decimal.RequireFromString("0.10"), CreatedAt: now.Add(5 * time.Second)},
	} {
		if err := repo.Insert(ctx, o); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	q := NewQueryService(repo, observability.Nop(), WithDirectory(fixedCount(3), fixedCount(12)))

	d, err := q.Dashboard(ctx, admin)
	if err != nil {
		t.Fatalf("admin dashboard: %v", err)
	}
	if d.Role != user.RoleAdmin || d.TotalOrders != 6 || d.TotalUsers != 3 || d.TotalProducts != 12 {
		t.Fatalf("admin dashboard = %+v", d)
	}
	if !d.TotalRevenue.Equal(decimal.RequireFromString("65.60")) {
		t.Fatalf("revenue = %s, want 65.60", d.TotalRevenue)
	}
	if len(d.RecentOrders) != 5 || d.RecentOrders[0].ID != "o6" || d.RecentOrders[4].ID != "o2" {
		t.Fatalf("recent = %d orders", len(d.RecentOrders))
	}

	d, err = q.Dashboard(ctx, customer)
	if err != nil {
		t.Fatalf("customer dashboard: %v", err)
	}
	if d.Role != user.RoleCustomer || d.TotalOrders != 3 || d.RecentOrders != nil || d.TotalUsers != 0 {
		t.Fatalf("customer dashboard = %+v", d)
	}
	if !d.TotalSpent.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("spent = %s, want 25.50", d.TotalSpent)
	}
	if d.LastOrder == nil || d.LastOrder.ID != "o4" {
		t.Fatalf("last order = %+v", d.LastOrder)
	}

	if _, err := q.Dashboard(ctx, user.Principal{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous: got %v", err)
	}
}

func TestDashboardForNewCustomer(t *testing.T) {
	t.Parallel()
	q := newQueryFixture(t)

	d, err := q.Dashboard(context.Background(), user.Principal{UserID: "u9", Role: user.RoleCustomer})
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalOrders != 0 || !d.TotalSpent.IsZero() || d.LastOrder != nil {
		t.Fatalf("dashboard = %+v", d)
	}
}
