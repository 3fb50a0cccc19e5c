package zones

import (
	"context"
	"time"

	"github.com/richxcame/carwash-pricing/pkg/cache"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Service resolves coordinates to zones through the zone resolution cache
type Service struct {
	catalog   *Catalog
	resolver  ZoneResolver
	locations cache.Cache[LocationEntry]
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a new zones service
func NewService(catalog *Catalog, resolver ZoneResolver, locations cache.Cache[LocationEntry], ttl time.Duration) *Service {
	return &Service{
		catalog:   catalog,
		resolver:  resolver,
		locations: locations,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Resolve returns the zone containing (lat, lng). Only invalid coordinates
// produce an error; resolver failures degrade to "no zone" and are not cached.
func (s *Service) Resolve(ctx context.Context, lat, lng float64) (*Resolution, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "zones.Resolve",
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
	)
	defer span.End()

	key := cache.ZoneLocationKey(lat, lng)
	if entry, ok := s.locations.Get(ctx, key); ok {
		if res, ok := s.fromEntry(ctx, entry); ok {
			span.SetAttributes(attribute.Bool("cached", true))
			return res, nil
		}
	}

	zone, method, err := s.resolver.Resolve(ctx, lat, lng)
	if err != nil {
		tracing.RecordError(span, err)
		logger.WithContext(ctx).Error("zone resolution failed, pricing without zone",
			zap.Float64("lat", lat),
			zap.Float64("lng", lng),
			zap.Error(err),
		)
		return &Resolution{Method: MethodNone, Degraded: true, ResolvedAt: s.now()}, nil
	}

	entry := LocationEntry{Method: method}
	if zone != nil {
		id := zone.ID
		entry.ZoneID = &id
	}
	s.locations.Set(ctx, key, entry, s.ttl)

	if zone == nil {
		method = MethodNone
	}
	return &Resolution{Zone: zone, Method: method, ResolvedAt: s.now()}, nil
}

// fromEntry rebuilds a resolution from a cache entry. An entry pointing at a
// zone that is no longer active is ignored.
func (s *Service) fromEntry(ctx context.Context, entry LocationEntry) (*Resolution, bool) {
	if entry.ZoneID == nil {
		return &Resolution{Method: MethodNone, Cached: true, ResolvedAt: s.now()}, true
	}
	zone, err := s.catalog.ZoneByID(ctx, *entry.ZoneID)
	if err != nil || zone == nil {
		return nil, false
	}
	return &Resolution{Zone: zone, Method: entry.Method, Cached: true, ResolvedAt: s.now()}, true
}

// Lookup answers GET /zones/lookup
func (s *Service) Lookup(ctx context.Context, lat, lng float64) (*LookupResponse, error) {
	res, err := s.Resolve(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	out := &LookupResponse{
		Coordinates:      Coordinates{Latitude: lat, Longitude: lng},
		Zone:             res.Zone.Summary(),
		IsSupported:      res.Zone != nil,
		ResolutionMethod: ResolutionNone,
		Cached:           res.Cached,
		ResolvedAt:       res.ResolvedAt,
	}
	if res.Zone != nil {
		out.ResolutionMethod = ResolutionPolygonMatch
	}
	return out, nil
}

// InvalidateCaches drops every zone resolution and the zone list
func (s *Service) InvalidateCaches(ctx context.Context) {
	s.locations.Invalidate(ctx, cache.ZonePrefix)
	s.catalog.Invalidate(ctx)
}
