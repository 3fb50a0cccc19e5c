package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/models"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v83"
)

// MockTransactionRepository is a mock implementation of payments.RepositoryInterface
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

// MockStripeClient is a mock implementation of payments.StripeClientInterface
type MockStripeClient struct {
	mock.Mock
}

func (m *MockStripeClient) CreatePaymentIntent(ctx context.Context, amountCents int64, currency, description, idempotencyKey string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, amountCents, currency, description, idempotencyKey, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}
