package payment

import (
	"context"
	"errors"
)

// ErrGatewayDegraded marks a payment provider failure that is recovered locally with a mock intent.
var ErrGatewayDegraded = errors.New("payment: gateway degraded")

// Intent is what the storefront hands back to the browser to complete payment.
// Mock intents are fabricated locally and cannot be confirmed against a provider.
type Intent struct {
	ID           string
	ClientSecret string
	Mock         bool
}

// Gateway creates payment intents at the provider.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (Intent, error)
}
