package zones

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the interface for zone repository operations
type RepositoryInterface interface {
	FindActiveZonesOrderedByPriority(ctx context.Context) ([]Zone, error)
	GetZoneByID(ctx context.Context, id uuid.UUID) (*Zone, error)
	FindOverride(ctx context.Context, serviceID, zoneID uuid.UUID) (*ServiceZonePrice, error)
	FindCandidates(ctx context.Context, lat, lng float64) ([]Zone, error)
}

// ZoneLister provides the priority-ordered active zone list
type ZoneLister interface {
	ActiveZones(ctx context.Context) ([]Zone, error)
}

// SpatialQuerier narrows the zone list to candidates for a point in the database
type SpatialQuerier interface {
	FindCandidates(ctx context.Context, lat, lng float64) ([]Zone, error)
}

// OverrideFinder looks up explicit per-(service, zone) prices
type OverrideFinder interface {
	FindOverride(ctx context.Context, serviceID, zoneID uuid.UUID) (*ServiceZonePrice, error)
}

// ZoneResolver maps a validated coordinate to at most one zone. A nil zone
// with a nil error means the point is outside every zone.
type ZoneResolver interface {
	Resolve(ctx context.Context, lat, lng float64) (*Zone, Method, error)
}
