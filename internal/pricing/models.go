package pricing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/internal/zones"
	"github.com/richxcame/carwash-pricing/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrPricingConfigMissing marks an unavailable settings snapshot. Pricing
	// continues with zero tax and fees.
	ErrPricingConfigMissing = errors.New("pricing config missing")
	// ErrServiceNotFound is returned by the catalog for unknown or inactive services
	ErrServiceNotFound = errors.New("service not found")
)

// PricingAdjustmentConfig is the tax and provider fee configuration in force
type PricingAdjustmentConfig struct {
	TaxPercentage       *float64 `json:"tax_percentage"`
	StripeFeePercentage *float64 `json:"stripe_fee_percentage"`
	ExtraFeeAmountCents int64    `json:"extra_fee_amount_cents"`
	// Missing is set when the settings could not be loaded at all
	Missing bool `json:"missing"`
}

// AdjustmentSnapshot freezes the effective adjustments onto a quote or transaction
type AdjustmentSnapshot struct {
	TaxPercentage       decimal.Decimal `json:"tax_percentage"`
	StripeFeePercentage decimal.Decimal `json:"stripe_fee_percentage"`
	ExtraFeeAmountCents int64           `json:"extra_fee_amount_cents"`
	ConfigMissing       bool            `json:"config_missing"`
	CapturedAt          time.Time       `json:"captured_at"`
}

// Snapshot returns the clamped values the pipeline will actually use
func (c PricingAdjustmentConfig) Snapshot(at time.Time) AdjustmentSnapshot {
	return AdjustmentSnapshot{
		TaxPercentage:       normalizePercentage(c.TaxPercentage),
		StripeFeePercentage: normalizePercentage(c.StripeFeePercentage),
		ExtraFeeAmountCents: nonNegative(c.ExtraFeeAmountCents),
		ConfigMissing:       c.Missing,
		CapturedAt:          at,
	}
}

// ServiceBasePrice is a catalog entry as consumed by pricing
type ServiceBasePrice struct {
	ServiceID          uuid.UUID `json:"service_id"`
	Name               string    `json:"name"`
	PriceCents         int64     `json:"price_cents"`
	DiscountPercentage *float64  `json:"discount_percentage,omitempty"`
}

// Input feeds ComputeFinalPrice
type Input struct {
	BasePriceCents      int64
	DiscountPercentage  *float64
	CouponDiscountCents int64
	LoyaltyCreditCents  int64
	Adjustments         PricingAdjustmentConfig
	Path                models.PaymentType
}

// Breakdown carries every intermediate amount of the fee stack
type Breakdown struct {
	Path                models.PaymentType `json:"path"`
	BasePriceCents      int64              `json:"base_price_cents"`
	DiscountPercentage  decimal.Decimal    `json:"discount_percentage"`
	DiscountedCents     int64              `json:"discounted_cents"`
	CouponAppliedCents  int64              `json:"coupon_applied_cents"`
	AfterCouponCents    int64              `json:"after_coupon_cents"`
	LoyaltyAppliedCents int64              `json:"loyalty_applied_cents"`
	AfterLoyaltyCents   int64              `json:"after_loyalty_cents"`
	TaxPercentage       decimal.Decimal    `json:"tax_percentage"`
	TaxCents            int64              `json:"tax_cents"`
	WithTaxCents        int64              `json:"with_tax_cents"`
	FeeBaseCents        int64              `json:"fee_base_cents"`
	FeePercentage       decimal.Decimal    `json:"fee_percentage"`
	FeeCents            int64              `json:"fee_cents"`
	PayableCents        int64              `json:"payable_cents"`
	NetCents            int64              `json:"net_cents"`
	Free                bool               `json:"free"`
}

// Reversal is the result of backing a gross amount out to its net base
type Reversal struct {
	GrossCents   int64 `json:"gross_cents"`
	WithTaxCents int64 `json:"with_tax_cents"`
	FeeCents     int64 `json:"fee_cents"`
	TaxCents     int64 `json:"tax_cents"`
	NetCents     int64 `json:"net_cents"`
}

// PriceByLocationRequest is the body of POST /pricing/by-location
type PriceByLocationRequest struct {
	Lat        *float64 `json:"lat" validate:"required,latitude"`
	Lng        *float64 `json:"lng" validate:"required,longitude"`
	ServiceIDs []string `json:"service_ids" validate:"required,min=1,max=50,dive,uuid"`
	Datetime   string   `json:"datetime,omitempty" validate:"omitempty,rfc3339"`
}

// ServicePrice is one priced service in a by-location quote
type ServicePrice struct {
	ServiceID          uuid.UUID         `json:"service_id"`
	Name               string            `json:"name,omitempty"`
	Price              int64             `json:"price"`
	FormattedPrice     string            `json:"formatted_price"`
	Source             zones.PriceSource `json:"source"`
	ZoneID             *uuid.UUID        `json:"zone_id,omitempty"`
	DiscountPercentage *float64          `json:"discount_percentage,omitempty"`
	ZoneAdjusted       bool              `json:"zone_adjusted"`
	Quote              Breakdown         `json:"quote"`
}

// Explanation describes how a quote was produced
type Explanation struct {
	ResolutionMethod string             `json:"resolution_method"`
	ZoneResolved     bool               `json:"zone_resolved"`
	ZoneDegraded     bool               `json:"zone_degraded,omitempty"`
	PriceMultiplier  *decimal.Decimal   `json:"price_multiplier,omitempty"`
	Adjustments      AdjustmentSnapshot `json:"adjustments"`
	ConfigMissing    bool               `json:"config_missing"`
	SkippedServices  []string           `json:"skipped_services,omitempty"`
	Steps            []string           `json:"steps"`
}

// PriceByLocationResponse is returned by POST /pricing/by-location
type PriceByLocationResponse struct {
	Zone           *zones.ZoneSummary `json:"zone"`
	Prices         []ServicePrice     `json:"prices"`
	CurrencyCode   string             `json:"currency_code"`
	CurrencySymbol string             `json:"currency_symbol"`
	RequestedAt    time.Time          `json:"requested_at"`
	TargetDatetime string             `json:"target_datetime"`
	Explanation    Explanation        `json:"explanation"`
	Cached         bool               `json:"cached"`
}
