package zones

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/cache"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"go.uber.org/zap"
)

// Catalog serves the active zone list through the zone list cache
type Catalog struct {
	repo  RepositoryInterface
	cache cache.Cache[[]Zone]
	ttl   time.Duration
}

// NewCatalog creates a new zone catalog
func NewCatalog(repo RepositoryInterface, zoneCache cache.Cache[[]Zone], ttl time.Duration) *Catalog {
	return &Catalog{repo: repo, cache: zoneCache, ttl: ttl}
}

// ActiveZones returns the priority-ordered active zones
func (c *Catalog) ActiveZones(ctx context.Context) ([]Zone, error) {
	key := cache.ZoneListKey()
	if zones, ok := c.cache.Get(ctx, key); ok {
		return zones, nil
	}

	zones, err := c.repo.FindActiveZonesOrderedByPriority(ctx)
	if err != nil {
		return nil, err
	}
	SortByPriority(zones)

	for i := range zones {
		if zones[i].PolygonError != "" {
			polygonParseErrorsTotal.Inc()
			logger.WithContext(ctx).Warn("zone polygon unusable, matching on bounding box only",
				zap.String("zone_id", zones[i].ID.String()),
				zap.String("zone", zones[i].Name),
				zap.String("error", zones[i].PolygonError),
			)
		}
	}

	c.cache.Set(ctx, key, zones, c.ttl)
	return zones, nil
}

// ZoneByID finds an active zone in the current list, or nil
func (c *Catalog) ZoneByID(ctx context.Context, id uuid.UUID) (*Zone, error) {
	zones, err := c.ActiveZones(ctx)
	if err != nil {
		return nil, err
	}
	for i := range zones {
		if zones[i].ID == id {
			return &zones[i], nil
		}
	}
	return nil, nil
}

// Invalidate drops the cached zone list
func (c *Catalog) Invalidate(ctx context.Context) {
	c.cache.Invalidate(ctx, cache.ZoneListKey())
}
