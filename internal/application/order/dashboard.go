package order

import (
	"context"

	domain "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

// Dashboard is the landing summary. Admins get shop-wide totals; customers get their own.
// Money only counts orders that were paid or shipped.
type Dashboard struct {
	Role string

	TotalOrders int

	TotalUsers    int
	TotalProducts int
	TotalRevenue  decimal.Decimal
	RecentOrders  []*domain.Order

	TotalSpent decimal.Decimal
	LastOrder  *domain.Order
}

func (s *QueryService) Dashboard(ctx context.Context, p user.Principal) (d *Dashboard, err error) {
	ctx, done := s.begin(ctx, useCaseDash, attribute.String("user.role", p.Role))
	defer func() { done(err) }()

	if !p.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if p.Can(user.CapViewAllOrders) {
		return s.adminDashboard(ctx)
	}

	sum, err := s.repo.Summarize(ctx, p.UserID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	latest, err := s.repo.ListByUser(ctx, p.UserID, 1)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	d = &Dashboard{
		Role:        user.RoleCustomer,
		TotalOrders: sum.Orders,
		TotalSpent:  sum.Revenue,
	}
	if len(latest) > 0 {
		d.LastOrder = latest[0]
	}
	return d, nil
}

func (s *QueryService) adminDashboard(ctx context.Context) (*Dashboard, error) {
	sum, err := s.repo.Summarize(ctx, "")
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	recent, err := s.repo.List(ctx, recentOrders)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	d := &Dashboard{
		Role:         user.RoleAdmin,
		TotalOrders:  sum.Orders,
		TotalRevenue: sum.Revenue,
		RecentOrders: recent,
	}
	if d.TotalUsers, err = count(ctx, s.users); err != nil {
		return nil, err
	}
	if d.TotalProducts, err = count(ctx, s.products); err != nil {
		return nil, err
	}
	return d, nil
}

func count(ctx context.Context, c Counter) (int, error) {
	if c == nil {
		return 0, nil
	}
	n, err := c.Count(ctx)
	if err != nil {
		return 0, wrapRepositoryError(err)
	}
	return n, nil
}
