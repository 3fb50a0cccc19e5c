package zones

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/carwash-pricing/pkg/database"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const zoneColumns = `
	id, name, description, min_latitude, max_latitude, min_longitude, max_longitude,
	polygon, price_multiplier::text, active, sort_order, updated_at`

// Repository handles database operations for zones and zone price overrides
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new zones repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindActiveZonesOrderedByPriority returns every active zone ordered by sort_order, then id
func (r *Repository) FindActiveZonesOrderedByPriority(ctx context.Context) ([]Zone, error) {
	query := `SELECT` + zoneColumns + `
		FROM zones
		WHERE active = true
		ORDER BY sort_order ASC, id ASC
	`

	res, err := resilience.Retry(ctx, database.QueryRetryConfig(), func(ctx context.Context) (interface{}, error) {
		rows, err := r.db.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return collectZones(ctx, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get active zones: %w", err)
	}

	zones := res.([]Zone)
	SortByPriority(zones)
	return zones, nil
}

// GetZoneByID retrieves a zone regardless of its active flag
func (r *Repository) GetZoneByID(ctx context.Context, id uuid.UUID) (*Zone, error) {
	query := `SELECT` + zoneColumns + `
		FROM zones
		WHERE id = $1
	`

	z, err := scanZone(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	return z, nil
}

// FindOverride returns the active price override for (serviceID, zoneID), or nil
func (r *Repository) FindOverride(ctx context.Context, serviceID, zoneID uuid.UUID) (*ServiceZonePrice, error) {
	query := `
		SELECT id, service_id, zone_id, price_cents, discount_percentage::float8, active
		FROM service_zone_prices
		WHERE service_id = $1 AND zone_id = $2 AND active = true
	`

	p := &ServiceZonePrice{}
	err := r.db.QueryRow(ctx, query, serviceID, zoneID).Scan(
		&p.ID, &p.ServiceID, &p.ZoneID, &p.PriceCents, &p.DiscountPercentage, &p.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get zone price override: %w", err)
	}
	return p, nil
}

// candidateTolerance widens the geometry predicate so points on a boundary
// are always returned as candidates.
const candidateTolerance = 1e-9

// FindCandidates returns the active zones whose bounding box and stored
// boundary cover (lat, lng), ordered by sort_order, then id. The result is a
// superset of the zones that contain the point; callers make the final
// decision with Contains.
func (r *Repository) FindCandidates(ctx context.Context, lat, lng float64) ([]Zone, error) {
	query := `SELECT` + zoneColumns + `
		FROM zones
		WHERE active = true
		  AND $1 BETWEEN min_latitude AND max_latitude
		  AND $2 BETWEEN min_longitude AND max_longitude
		  AND (boundary IS NULL OR ST_DWithin(boundary, ST_SetSRID(ST_MakePoint($2, $1), 4326), $3))
		ORDER BY sort_order ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, lat, lng, candidateTolerance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpatialEngine, err)
	}
	defer rows.Close()

	zones, err := collectZones(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpatialEngine, err)
	}
	return zones, nil
}

// SyncBoundaries rebuilds the PostGIS boundary column from the stored polygon
// text so the spatial query and the point locator see the same shapes.
// Zones whose polygon does not parse get a NULL boundary.
func (r *Repository) SyncBoundaries(ctx context.Context) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT`+zoneColumns+` FROM zones`)
	if err != nil {
		return 0, fmt.Errorf("failed to load zones: %w", err)
	}
	zones, err := collectZones(ctx, rows)
	rows.Close()
	if err != nil {
		return 0, fmt.Errorf("failed to load zones: %w", err)
	}

	batch := &pgx.Batch{}
	for _, z := range zones {
		if w := z.PolygonWKT(); w != "" {
			batch.Queue(`UPDATE zones SET boundary = ST_SetSRID(ST_GeomFromText($2), 4326) WHERE id = $1`, z.ID, w)
		} else {
			batch.Queue(`UPDATE zones SET boundary = NULL WHERE id = $1`, z.ID)
		}
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range zones {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("failed to update zone boundary: %w", err)
		}
	}
	return len(zones), nil
}

// zoneRows is the subset of pgx.Rows read by collectZones
type zoneRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collectZones scans every row. A row that fails zone validation is skipped
// with a warning so one bad definition does not take the whole list down.
func collectZones(ctx context.Context, rows zoneRows) ([]Zone, error) {
	zones := make([]Zone, 0)
	for rows.Next() {
		z, err := scanZone(rows)
		if errors.Is(err, ErrInvalidZone) {
			invalidZonesTotal.Inc()
			logger.WithContext(ctx).Warn("skipping invalid zone definition", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

func scanZone(row pgx.Row) (*Zone, error) {
	var (
		p          ZoneParams
		polygon    *string
		multiplier string
		z          Zone
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description,
		&p.MinLatitude, &p.MaxLatitude, &p.MinLongitude, &p.MaxLongitude,
		&polygon, &multiplier, &p.Active, &p.SortOrder, &z.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if polygon != nil {
		p.Polygon = *polygon
	}
	m, err := decimal.NewFromString(multiplier)
	if err != nil {
		return nil, fmt.Errorf("%w: zone %s: price multiplier %q: %v", ErrInvalidZone, p.ID, multiplier, err)
	}
	p.PriceMultiplier = &m

	built, err := NewZone(p)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", p.ID, err)
	}
	built.UpdatedAt = z.UpdatedAt
	return built, nil
}
