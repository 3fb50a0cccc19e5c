package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/carwash-pricing/pkg/common"
	"github.com/richxcame/carwash-pricing/pkg/models"
)

// Repository handles transaction persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new transaction repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateTransaction stores a settled transaction with its adjustment snapshot
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, booking_id, payment_type, status, base_price_cents, payable_cents,
			net_cents, tax_cents, fee_cents, currency, provider_payment_id,
			tax_percentage, stripe_fee_percentage, extra_fee_amount_cents, config_missing
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::numeric, $13::numeric, $14, $15)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		tx.ID,
		tx.BookingID,
		tx.PaymentType,
		tx.Status,
		tx.BasePriceCents,
		tx.PayableCents,
		tx.NetCents,
		tx.TaxCents,
		tx.FeeCents,
		tx.Currency,
		tx.ProviderPaymentID,
		tx.TaxPercentage.String(),
		tx.StripeFeePercentage.String(),
		tx.ExtraFeeAmountCents,
		tx.ConfigMissing,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransactionByID retrieves a transaction by ID
func (r *Repository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT id, booking_id, payment_type, status, base_price_cents, payable_cents,
		       net_cents, tax_cents, fee_cents, currency, provider_payment_id,
		       tax_percentage::text, stripe_fee_percentage::text, extra_fee_amount_cents,
		       config_missing, created_at
		FROM transactions
		WHERE id = $1
	`

	tx := &models.Transaction{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tx.ID,
		&tx.BookingID,
		&tx.PaymentType,
		&tx.Status,
		&tx.BasePriceCents,
		&tx.PayableCents,
		&tx.NetCents,
		&tx.TaxCents,
		&tx.FeeCents,
		&tx.Currency,
		&tx.ProviderPaymentID,
		&tx.TaxPercentage,
		&tx.StripeFeePercentage,
		&tx.ExtraFeeAmountCents,
		&tx.ConfigMissing,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("transaction not found", err)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}
