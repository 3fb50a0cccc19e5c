package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType selects the fee path of the pricing pipeline
type PaymentType string

const (
	PaymentTypeCard PaymentType = "CARD"
	PaymentTypeCash PaymentType = "CASH"
)

// Valid reports whether p is a known payment type
func (p PaymentType) Valid() bool {
	return p == PaymentTypeCard || p == PaymentTypeCash
}

// TransactionStatus represents the settlement outcome of a booking charge
type TransactionStatus string

const (
	// TransactionStatusFree is recorded when the payable amount is zero; no provider charge exists
	TransactionStatusFree        TransactionStatus = "free"
	TransactionStatusPending     TransactionStatus = "pending"
	TransactionStatusPendingCash TransactionStatus = "pending_cash"
	TransactionStatusFailed      TransactionStatus = "failed"
)

// Transaction is the settled charge of a booking together with the
// adjustment values that were in force when it was priced
type Transaction struct {
	ID                  uuid.UUID         `json:"id" db:"id"`
	BookingID           string            `json:"booking_id" db:"booking_id"`
	PaymentType         PaymentType       `json:"payment_type" db:"payment_type"`
	Status              TransactionStatus `json:"status" db:"status"`
	BasePriceCents      int64             `json:"base_price_cents" db:"base_price_cents"`
	PayableCents        int64             `json:"payable_cents" db:"payable_cents"`
	NetCents            int64             `json:"net_cents" db:"net_cents"`
	TaxCents            int64             `json:"tax_cents" db:"tax_cents"`
	FeeCents            int64             `json:"fee_cents" db:"fee_cents"`
	Currency            string            `json:"currency" db:"currency"`
	ProviderPaymentID   *string           `json:"provider_payment_id,omitempty" db:"provider_payment_id"`
	ClientSecret        string            `json:"client_secret,omitempty" db:"-"`
	TaxPercentage       decimal.Decimal   `json:"tax_percentage" db:"tax_percentage"`
	StripeFeePercentage decimal.Decimal   `json:"stripe_fee_percentage" db:"stripe_fee_percentage"`
	ExtraFeeAmountCents int64             `json:"extra_fee_amount_cents" db:"extra_fee_amount_cents"`
	ConfigMissing       bool              `json:"config_missing" db:"config_missing"`
	CreatedAt           time.Time         `json:"created_at" db:"created_at"`
}
