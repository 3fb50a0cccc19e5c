package zones

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSource tells where a resolved service price came from
type PriceSource string

const (
	SourceZonePrice PriceSource = "ZONE_PRICE"
	SourceBasePrice PriceSource = "BASE_PRICE"
)

// PriceResolution is the per-service price before the fee pipeline
type PriceResolution struct {
	PriceCents         int64       `json:"price_cents"`
	DiscountPercentage *float64    `json:"discount_percentage,omitempty"`
	Source             PriceSource `json:"source"`
	ZoneAdjusted       bool        `json:"zone_adjusted"`
	ZoneID             *uuid.UUID  `json:"zone_id,omitempty"`
}

// PriceResolver picks an override price or applies the zone multiplier
type PriceResolver struct {
	overrides OverrideFinder
}

// NewPriceResolver creates a new price resolver
func NewPriceResolver(overrides OverrideFinder) *PriceResolver {
	return &PriceResolver{overrides: overrides}
}

// ResolvePrice returns the zone-aware price for a service. It never fails: a
// failed override lookup degrades to the multiplier path.
func (r *PriceResolver) ResolvePrice(ctx context.Context, serviceID uuid.UUID, zone *Zone, fallbackPriceCents int64, fallbackDiscount *float64) PriceResolution {
	if zone == nil {
		return PriceResolution{
			PriceCents:         fallbackPriceCents,
			DiscountPercentage: fallbackDiscount,
			Source:             SourceBasePrice,
		}
	}

	zoneID := zone.ID
	if r.overrides != nil {
		override, err := r.overrides.FindOverride(ctx, serviceID, zone.ID)
		if err != nil {
			logger.WithContext(ctx).Warn("zone price override lookup failed, using multiplier",
				zap.String("service_id", serviceID.String()),
				zap.String("zone_id", zone.ID.String()),
				zap.Error(err),
			)
		} else if override != nil && override.Active {
			return PriceResolution{
				PriceCents:         override.PriceCents,
				DiscountPercentage: override.DiscountPercentage,
				Source:             SourceZonePrice,
				ZoneAdjusted:       true,
				ZoneID:             &zoneID,
			}
		}
	}

	return PriceResolution{
		PriceCents:         ApplyMultiplier(fallbackPriceCents, zone.PriceMultiplier),
		DiscountPercentage: fallbackDiscount,
		Source:             SourceBasePrice,
		ZoneAdjusted:       !zone.PriceMultiplier.Equal(decimal.NewFromInt(1)),
		ZoneID:             &zoneID,
	}
}

// ApplyMultiplier returns round(cents × multiplier), half up
func ApplyMultiplier(cents int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(multiplier).Round(0).IntPart()
}
