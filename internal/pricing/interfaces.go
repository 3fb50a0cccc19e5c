package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/internal/zones"
)

// SettingsProvider loads the tax and fee snapshot
type SettingsProvider interface {
	LoadPricingAdjustmentConfig(ctx context.Context) (PricingAdjustmentConfig, error)
}

// CatalogRepositoryInterface reads service base prices from storage
type CatalogRepositoryInterface interface {
	GetServiceBasePrice(ctx context.Context, serviceID uuid.UUID) (*ServiceBasePrice, error)
}

// ServiceCatalog serves base prices, usually through a cache
type ServiceCatalog interface {
	GetServiceBasePrice(ctx context.Context, serviceID uuid.UUID) (*ServiceBasePrice, error)
	Invalidate(ctx context.Context)
}

// ZoneService resolves coordinates to zones
type ZoneService interface {
	Resolve(ctx context.Context, lat, lng float64) (*zones.Resolution, error)
	InvalidateCaches(ctx context.Context)
}

// ZonePriceResolver applies zone overrides and multipliers
type ZonePriceResolver interface {
	ResolvePrice(ctx context.Context, serviceID uuid.UUID, zone *zones.Zone, fallbackPriceCents int64, fallbackDiscount *float64) zones.PriceResolution
}
