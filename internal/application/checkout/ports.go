package checkout

import (
	"context"

	dominv "github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	dompay "github.com/Zhima-Mochi/colleshop/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// InventoryLedger reserves stock for all lines of a checkout or for none of them.
type InventoryLedger interface {
	ReserveAll(ctx context.Context, lines []dominv.Reservation) error
	ReleaseAll(ctx context.Context, lines []dominv.Reservation) error
}

// PaymentIntents never fails because of the provider; see payment.IntentService.
type PaymentIntents interface {
	Create(ctx context.Context, amount decimal.Decimal) (dompay.Intent, error)
}
