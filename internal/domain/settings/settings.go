package settings

import (
	"context"

	"github.com/Zhima-Mochi/colleshop/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

var (
	DefaultShippingCost          = decimal.RequireFromString("10.00")
	DefaultFreeShippingThreshold = decimal.RequireFromString("100.00")
)

// SiteSettings holds the shop-wide values the checkout reads. Other site content is served elsewhere.
type SiteSettings struct {
	ShippingCost          *decimal.Decimal
	FreeShippingThreshold *decimal.Decimal
	ContactEmail          string
}

func Defaults() SiteSettings {
	fee, threshold := DefaultShippingCost, DefaultFreeShippingThreshold
	return SiteSettings{ShippingCost: &fee, FreeShippingThreshold: &threshold}
}

// ShippingPolicy fills unset values with the defaults.
func (s SiteSettings) ShippingPolicy() pricing.ShippingPolicy {
	policy := pricing.ShippingPolicy{
		Fee:           DefaultShippingCost,
		FreeThreshold: DefaultFreeShippingThreshold,
	}
	if s.ShippingCost != nil {
		policy.Fee = *s.ShippingCost
	}
	if s.FreeShippingThreshold != nil {
		policy.FreeThreshold = *s.FreeShippingThreshold
	}
	return policy
}

type Repository interface {
	// Get returns Defaults() when nothing has been stored yet.
	Get(ctx context.Context) (SiteSettings, error)
	Save(ctx context.Context, s SiteSettings) error
}
