package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/models"
	"github.com/stripe/stripe-go/v83"
)

// RepositoryInterface defines the persistence operations for settled transactions
type RepositoryInterface interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

// StripeClientInterface is the subset of the Stripe API used for card settlement
type StripeClientInterface interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency, description, idempotencyKey string, metadata map[string]string) (*stripe.PaymentIntent, error)
}
