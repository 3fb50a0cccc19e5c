package payments

import (
	"context"

	"github.com/stripe/stripe-go/v83"
)

// StripeClient creates PaymentIntents through the Stripe API
type StripeClient struct {
	client *stripe.Client
}

// NewStripeClient creates a Stripe client for secretKey
func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{client: stripe.NewClient(secretKey)}
}

// CreatePaymentIntent creates an automatic-payment-methods intent for amountCents.
// The idempotency key makes retried settlements return the original intent.
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, amountCents int64, currency, description, idempotencyKey string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	return c.client.V1PaymentIntents.Create(ctx, params)
}
