// Package pricing derives order totals from server-trusted unit prices and the shop's
// shipping policy. Everything here is pure.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Tolerance is the largest accepted difference between a client-declared total and the
// recomputed one.
var Tolerance = decimal.NewFromFloat(0.1)

// ShippingPolicy is the flat fee charged below the free-shipping threshold.
type ShippingPolicy struct {
	Fee           decimal.Decimal
	FreeThreshold decimal.Decimal
}

// Line is a priced quantity. UnitPrice must come from the catalog, never from the client.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Breakdown struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// FreeShipping reports whether a subtotal qualifies for free shipping.
func (p ShippingPolicy) FreeShipping(subtotal decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(p.FreeThreshold)
}

// Calculate returns subtotal, shipping fee and total for the given lines.
func Calculate(lines []Line, policy ShippingPolicy) Breakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping := policy.Fee
	if policy.FreeShipping(subtotal) {
		shipping = decimal.Zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// WithinTolerance reports whether |declared - computed| <= Tolerance.
func WithinTolerance(declared, computed decimal.Decimal) bool {
	return declared.Sub(computed).Abs().LessThanOrEqual(Tolerance)
}

// MinorUnits converts an amount to the smallest currency unit (cents), rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
