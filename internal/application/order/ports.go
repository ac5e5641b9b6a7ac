package order

import (
	"context"

	dominv "github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
)

// StockReleaser credits stock back for a cancelled order.
type StockReleaser interface {
	ReleaseAll(ctx context.Context, lines []dominv.Reservation) error
}
