package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/internal/pricing"
	"github.com/richxcame/carwash-pricing/pkg/common"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/models"
	"go.uber.org/zap"
)

// SettleRequest describes a booking charge. BasePriceCents is the resolved
// (zone-adjusted) service price.
type SettleRequest struct {
	BookingID           string             `json:"booking_id" validate:"required,max=255"`
	PaymentType         models.PaymentType `json:"payment_type" validate:"required,payment_type"`
	BasePriceCents      int64              `json:"base_price_cents" validate:"min=0"`
	DiscountPercentage  *float64           `json:"discount_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	CouponDiscountCents int64              `json:"coupon_discount_cents" validate:"min=0"`
	LoyaltyCreditCents  int64              `json:"loyalty_credit_cents" validate:"min=0"`
}

// Service settles booking charges
type Service struct {
	repo     RepositoryInterface
	stripe   StripeClientInterface
	settings pricing.SettingsProvider
	currency string
	now      func() time.Time
}

// NewService creates a new settlement service. currency is the lower-case
// ISO code sent to Stripe.
func NewService(repo RepositoryInterface, stripeClient StripeClientInterface, settings pricing.SettingsProvider, currency string) *Service {
	return &Service{
		repo:     repo,
		stripe:   stripeClient,
		settings: settings,
		currency: strings.ToLower(currency),
		now:      time.Now,
	}
}

// Settle prices the booking and records the transaction. A zero payable
// amount is settled as free without contacting the provider.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (*models.Transaction, error) {
	if req.BookingID == "" {
		return nil, common.NewBadRequestError("booking_id is required", nil)
	}
	if !req.PaymentType.Valid() {
		return nil, common.NewBadRequestError("invalid payment type", nil)
	}
	if req.BasePriceCents < 0 {
		return nil, common.NewBadRequestError("base price must not be negative", nil)
	}

	adjustments, err := s.settings.LoadPricingAdjustmentConfig(ctx)
	if err != nil {
		logger.WithContext(ctx).Warn("settling with zero tax and fees",
			zap.String("booking_id", req.BookingID),
			zap.Bool("config_missing", true),
			zap.Error(err),
		)
		adjustments = pricing.PricingAdjustmentConfig{Missing: true}
	}

	quote := pricing.ComputeFinalPrice(pricing.Input{
		BasePriceCents:      req.BasePriceCents,
		DiscountPercentage:  req.DiscountPercentage,
		CouponDiscountCents: req.CouponDiscountCents,
		LoyaltyCreditCents:  req.LoyaltyCreditCents,
		Adjustments:         adjustments,
		Path:                req.PaymentType,
	})
	snapshot := adjustments.Snapshot(s.now())
	settled := s.reverse(ctx, req, quote, adjustments)

	tx := &models.Transaction{
		ID:                  uuid.New(),
		BookingID:           req.BookingID,
		PaymentType:         req.PaymentType,
		BasePriceCents:      req.BasePriceCents,
		PayableCents:        quote.PayableCents,
		NetCents:            settled.NetCents,
		TaxCents:            settled.TaxCents,
		FeeCents:            settled.FeeCents,
		Currency:            s.currency,
		TaxPercentage:       snapshot.TaxPercentage,
		StripeFeePercentage: snapshot.StripeFeePercentage,
		ExtraFeeAmountCents: snapshot.ExtraFeeAmountCents,
		ConfigMissing:       snapshot.ConfigMissing,
	}

	switch {
	case quote.Free:
		tx.Status = models.TransactionStatusFree
	case req.PaymentType == models.PaymentTypeCash:
		tx.Status = models.TransactionStatusPendingCash
	default:
		if err := s.chargeCard(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		logger.WithContext(ctx).Error("Failed to save transaction",
			zap.String("booking_id", tx.BookingID),
			zap.Error(err),
		)
		return nil, common.NewInternalError("failed to record transaction", err)
	}

	logger.WithContext(ctx).Info("Booking settled",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("booking_id", tx.BookingID),
		zap.String("status", string(tx.Status)),
		zap.Int64("payable_cents", tx.PayableCents),
		zap.Int64("net_cents", tx.NetCents),
	)
	return tx, nil
}

// reverse splits the payable amount back into net, tax and fee. The recorded
// breakdown is what the collected amount decomposes into; a disagreement
// with the forward quote is logged and counted, never fatal.
func (s *Service) reverse(ctx context.Context, req SettleRequest, quote pricing.Breakdown, adj pricing.PricingAdjustmentConfig) pricing.Reversal {
	rev := pricing.BackOut(quote.PayableCents, adj, req.PaymentType)
	if rev.NetCents != quote.NetCents || rev.FeeCents != quote.FeeCents {
		settlementDriftTotal.WithLabelValues(string(req.PaymentType)).Inc()
		logger.WithContext(ctx).Warn("settled amount does not reverse to quoted net",
			zap.String("booking_id", req.BookingID),
			zap.Int64("payable_cents", quote.PayableCents),
			zap.Int64("quoted_net_cents", quote.NetCents),
			zap.Int64("reversed_net_cents", rev.NetCents),
			zap.Int64("quoted_fee_cents", quote.FeeCents),
			zap.Int64("reversed_fee_cents", rev.FeeCents),
		)
	}
	return rev
}

// chargeCard creates the PaymentIntent. A provider failure is recorded as a
// failed transaction before the error is returned.
func (s *Service) chargeCard(ctx context.Context, tx *models.Transaction) error {
	if s.stripe == nil {
		return common.NewServiceUnavailableError("card payments are not configured", nil)
	}

	metadata := map[string]string{
		"booking_id":     tx.BookingID,
		"transaction_id": tx.ID.String(),
		"net_cents":      strconv.FormatInt(tx.NetCents, 10),
	}

	pi, err := s.stripe.CreatePaymentIntent(ctx,
		tx.PayableCents,
		tx.Currency,
		fmt.Sprintf("Car wash booking %s", tx.BookingID),
		"settle-"+tx.BookingID,
		metadata,
	)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to create Stripe payment intent",
			zap.String("booking_id", tx.BookingID),
			zap.Error(err),
		)
		tx.Status = models.TransactionStatusFailed
		if recErr := s.repo.CreateTransaction(ctx, tx); recErr != nil {
			logger.WithContext(ctx).Error("Failed to record failed transaction", zap.Error(recErr))
		}
		return wrapStripeError(err, "failed to create payment")
	}

	tx.ProviderPaymentID = &pi.ID
	tx.ClientSecret = pi.ClientSecret
	tx.Status = models.TransactionStatusPending
	return nil
}

// GetTransaction returns a recorded transaction
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.repo.GetTransactionByID(ctx, id)
}

func wrapStripeError(err error, fallbackMessage string) error {
	if err == nil {
		return nil
	}

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return common.NewInternalError(fallbackMessage, err)
}
