package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// Provider charges a placed order. Charging happens after the order commits;
// a failed charge never rolls the order back, it is flagged for follow-up.
type Provider interface {
	Charge(ctx context.Context, orderRef string, amount decimal.Decimal, method string) error
}

// StripeProvider creates a PaymentIntent for card payments. Non-card methods
// are settled at the counter and skipped here.
type StripeProvider struct {
	currency string
}

func NewStripeProvider(secretKey, currency string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{currency: currency}
}

func (p *StripeProvider) Charge(ctx context.Context, orderRef string, amount decimal.Decimal, method string) error {
	if method != "card" {
		return nil
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency: stripe.String(p.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Params.Context = ctx
	params.AddMetadata("order_reference", orderRef)

	if _, err := paymentintent.New(params); err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

// CashProvider is the default: payment is collected on delivery, nothing to
// do at checkout.
type CashProvider struct{}

func (CashProvider) Charge(ctx context.Context, orderRef string, amount decimal.Decimal, method string) error {
	return nil
}

var (
	_ Provider = (*StripeProvider)(nil)
	_ Provider = CashProvider{}
)
