// Package stripe creates payment intents through the Stripe API.
package stripe

import (
	"context"
	"errors"
	"fmt"

	dompay "github.com/Zhima-Mochi/colleshop/internal/domain/payment"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var ErrMissingKey = errors.New("stripe: secret key is required")

type Gateway struct {
	sc *client.API
}

func New(secretKey string) (*Gateway, error) {
	if secretKey == "" {
		return nil, ErrMissingKey
	}
	return &Gateway{sc: client.New(secretKey, nil)}, nil
}

// CreateIntent asks Stripe for an intent with automatic payment methods. The caller bounds ctx.
func (g *Gateway) CreateIntent(ctx context.Context, amountMinor int64, currency string) (dompay.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return dompay.Intent{}, fmt.Errorf("%w: %w", dompay.ErrGatewayDegraded, err)
	}
	return dompay.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
