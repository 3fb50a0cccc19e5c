package zones

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/resilience"
	"go.uber.org/zap"
)

// SpatialResolver narrows candidates with a database query and decides
// containment with the same predicate as the point locator
type SpatialResolver struct {
	querier SpatialQuerier
}

// NewSpatialResolver creates a resolver backed by PostGIS
func NewSpatialResolver(querier SpatialQuerier) *SpatialResolver {
	return &SpatialResolver{querier: querier}
}

// Resolve implements ZoneResolver
func (r *SpatialResolver) Resolve(ctx context.Context, lat, lng float64) (*Zone, Method, error) {
	candidates, err := r.querier.FindCandidates(ctx, lat, lng)
	if err != nil {
		return nil, MethodSpatial, err
	}
	return Locate(lat, lng, candidates), MethodSpatial, nil
}

// LocatorResolver resolves zones in process over the active zone list
type LocatorResolver struct {
	lister ZoneLister

	mu      sync.Mutex
	index   *Index
	version snapshotVersion
}

// snapshotVersion identifies a zone list by content, so a list decoded again
// from the distributed cache reuses the index built for it
type snapshotVersion struct {
	n         int
	updatedAt time.Time
	first     uuid.UUID
	last      uuid.UUID
}

func versionOf(list []Zone) snapshotVersion {
	v := snapshotVersion{n: len(list)}
	if len(list) == 0 {
		return v
	}
	v.first, v.last = list[0].ID, list[len(list)-1].ID
	for i := range list {
		if list[i].UpdatedAt.After(v.updatedAt) {
			v.updatedAt = list[i].UpdatedAt
		}
	}
	return v
}

// NewLocatorResolver creates a resolver backed by the point locator
func NewLocatorResolver(lister ZoneLister) *LocatorResolver {
	return &LocatorResolver{lister: lister}
}

// Resolve implements ZoneResolver
func (r *LocatorResolver) Resolve(ctx context.Context, lat, lng float64) (*Zone, Method, error) {
	list, err := r.lister.ActiveZones(ctx)
	if err != nil {
		return nil, MethodLocator, fmt.Errorf("failed to load zones: %w", err)
	}
	return r.indexFor(list).Locate(lat, lng), MethodLocator, nil
}

// indexFor reuses the last index while the zone list content is unchanged
func (r *LocatorResolver) indexFor(list []Zone) *Index {
	v := versionOf(list)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index != nil && r.version.updatedAt.Equal(v.updatedAt) &&
		r.version.n == v.n && r.version.first == v.first && r.version.last == v.last {
		return r.index
	}
	r.index = NewIndex(list)
	r.version = v
	return r.index
}

// FallbackResolver tries the spatial resolver behind a circuit breaker and
// falls back to the point locator on any failure.
type FallbackResolver struct {
	primary  ZoneResolver
	fallback ZoneResolver
	breaker  *resilience.CircuitBreaker
}

// NewFallbackResolver composes two resolvers. breaker may be nil.
func NewFallbackResolver(primary, fallback ZoneResolver, breaker *resilience.CircuitBreaker) *FallbackResolver {
	return &FallbackResolver{primary: primary, fallback: fallback, breaker: breaker}
}

type spatialResult struct {
	zone   *Zone
	method Method
}

// Resolve implements ZoneResolver
func (r *FallbackResolver) Resolve(ctx context.Context, lat, lng float64) (*Zone, Method, error) {
	op := func(ctx context.Context) (interface{}, error) {
		zone, method, err := r.primary.Resolve(ctx, lat, lng)
		if err != nil {
			return nil, err
		}
		return spatialResult{zone: zone, method: method}, nil
	}

	var (
		res interface{}
		err error
	)
	if r.breaker != nil {
		res, err = r.breaker.Execute(ctx, op)
	} else {
		res, err = op(ctx)
	}
	if err == nil {
		sr := res.(spatialResult)
		recordResolution(sr.method, sr.zone)
		return sr.zone, sr.method, nil
	}

	spatialFailuresTotal.Inc()
	logger.WithContext(ctx).Warn("spatial zone resolution failed, using point locator",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.Error(fmt.Errorf("%w: %v", ErrSpatialEngine, err)),
	)

	zone, method, err := r.fallback.Resolve(ctx, lat, lng)
	if err != nil {
		return nil, method, err
	}
	recordResolution(method, zone)
	return zone, method, nil
}
