package order

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// ListByUser and List return newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error)
	List(ctx context.Context, limit int) ([]*Order, error)
	// ApplyStatus returns ErrConflict when the order is no longer in u.From.
	ApplyStatus(ctx context.Context, id string, u StatusUpdate) (*Order, error)
	// Summarize aggregates the orders of userID, or of every user when userID is empty.
	Summarize(ctx context.Context, userID string) (Summary, error)
}

// Summary counts orders of any status; Revenue only adds up collected ones.
type Summary struct {
	Orders  int
	Revenue decimal.Decimal
}

// Collected reports whether the money for an order in s has been taken.
func (s Status) Collected() bool { return s == StatusPaid || s == StatusShipped }

// Summarize folds orders into a Summary.
func Summarize(orders []*Order) Summary {
	sum := Summary{Revenue: decimal.Zero}
	for _, o := range orders {
		sum.Orders++
		if o.Status.Collected() {
			sum.Revenue = sum.Revenue.Add(o.Total)
		}
	}
	return sum
}
