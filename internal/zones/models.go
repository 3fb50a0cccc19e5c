package zones

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCoordinate is returned for missing, non-finite or out-of-range coordinates
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidZone is returned by NewZone for inconsistent zone definitions
	ErrInvalidZone = errors.New("invalid zone")
	// ErrSpatialEngine marks a failure of the geometry-aware query path
	ErrSpatialEngine = errors.New("spatial engine failure")
)

// Method identifies which engine produced a zone resolution
type Method string

const (
	MethodSpatial Method = "spatial_query"
	MethodLocator Method = "point_locator"
	MethodNone    Method = "none"
)

// Lookup resolution methods exposed over HTTP
const (
	ResolutionPolygonMatch = "polygon_match"
	ResolutionNone         = "none"
)

// Zone is an admin-defined pricing region
type Zone struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	MinLatitude  float64   `json:"min_latitude"`
	MaxLatitude  float64   `json:"max_latitude"`
	MinLongitude float64   `json:"min_longitude"`
	MaxLongitude float64   `json:"max_longitude"`

	// Polygon is the parsed ring of [lng, lat] vertices, without the closing vertex.
	// Empty when the zone has no polygon or it failed to parse.
	Polygon orb.Ring `json:"polygon,omitempty"`
	// PolygonError is set when a stored polygon could not be parsed; the zone
	// then matches on its bounding box alone.
	PolygonError string `json:"polygon_error,omitempty"`

	PriceMultiplier decimal.Decimal `json:"price_multiplier"`
	Active          bool            `json:"active"`
	SortOrder       int             `json:"sort_order"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ZoneParams are the raw inputs to NewZone
type ZoneParams struct {
	ID              uuid.UUID
	Name            string
	Description     string
	MinLatitude     float64
	MaxLatitude     float64
	MinLongitude    float64
	MaxLongitude    float64
	Polygon         string
	PriceMultiplier *decimal.Decimal
	Active          bool
	SortOrder       int
}

// NewZone validates p and parses its polygon. A malformed polygon does not
// fail construction; it is recorded on PolygonError instead.
func NewZone(p ZoneParams) (*Zone, error) {
	if !validLatitude(p.MinLatitude) || !validLatitude(p.MaxLatitude) ||
		!validLongitude(p.MinLongitude) || !validLongitude(p.MaxLongitude) {
		return nil, fmt.Errorf("%w: bounding box out of range", ErrInvalidZone)
	}
	if p.MinLatitude > p.MaxLatitude || p.MinLongitude > p.MaxLongitude {
		return nil, fmt.Errorf("%w: inverted bounding box", ErrInvalidZone)
	}

	multiplier := decimal.NewFromInt(1)
	if p.PriceMultiplier != nil {
		multiplier = *p.PriceMultiplier
	}
	if multiplier.IsNegative() {
		return nil, fmt.Errorf("%w: negative price multiplier", ErrInvalidZone)
	}

	z := &Zone{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		MinLatitude:     p.MinLatitude,
		MaxLatitude:     p.MaxLatitude,
		MinLongitude:    p.MinLongitude,
		MaxLongitude:    p.MaxLongitude,
		PriceMultiplier: multiplier,
		Active:          p.Active,
		SortOrder:       p.SortOrder,
	}
	z.setPolygon(p.Polygon)
	return z, nil
}

func (z *Zone) setPolygon(raw string) {
	if raw == "" {
		return
	}
	ring, err := ParsePolygon(raw)
	if err != nil {
		z.PolygonError = err.Error()
		return
	}
	z.Polygon = ring
}

// HasPolygon reports whether ray casting applies to this zone
func (z *Zone) HasPolygon() bool {
	return z.PolygonError == "" && len(z.Polygon) >= minRingVertices
}

// InBoundingBox is the inclusive box test
func (z *Zone) InBoundingBox(lat, lng float64) bool {
	return lat >= z.MinLatitude && lat <= z.MaxLatitude &&
		lng >= z.MinLongitude && lng <= z.MaxLongitude
}

// Summary returns the public view of the zone
func (z *Zone) Summary() *ZoneSummary {
	if z == nil {
		return nil
	}
	return &ZoneSummary{ID: z.ID, Name: z.Name, Description: z.Description}
}

// ZoneSummary is the zone shape returned to API callers
type ZoneSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// ServiceZonePrice is an explicit per-(service, zone) price override
type ServiceZonePrice struct {
	ID                 uuid.UUID `json:"id"`
	ServiceID          uuid.UUID `json:"service_id"`
	ZoneID             uuid.UUID `json:"zone_id"`
	PriceCents         int64     `json:"price_cents"`
	DiscountPercentage *float64  `json:"discount_percentage,omitempty"`
	Active             bool      `json:"active"`
}

// Coordinates is a validated point
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Resolution is the outcome of resolving a point to a zone
type Resolution struct {
	Zone       *Zone     `json:"zone"`
	Method     Method    `json:"method"`
	Cached     bool      `json:"cached"`
	Degraded   bool      `json:"degraded,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// LookupResponse is returned by GET /zones/lookup
type LookupResponse struct {
	Coordinates      Coordinates  `json:"coordinates"`
	Zone             *ZoneSummary `json:"zone"`
	IsSupported      bool         `json:"is_supported"`
	ResolutionMethod string       `json:"resolution_method"`
	Cached           bool         `json:"cached"`
	ResolvedAt       time.Time    `json:"resolved_at"`
}

// LocationEntry is what the zone resolution cache stores: the zone ID or nil
// when the point is outside every zone.
type LocationEntry struct {
	ZoneID *uuid.UUID `json:"zone_id"`
	Method Method     `json:"method"`
}

// ValidateCoordinates rejects non-finite or out-of-range input
func ValidateCoordinates(lat, lng float64) error {
	if !validLatitude(lat) {
		return fmt.Errorf("%w: latitude %v must be within [-90, 90]", ErrInvalidCoordinate, lat)
	}
	if !validLongitude(lng) {
		return fmt.Errorf("%w: longitude %v must be within [-180, 180]", ErrInvalidCoordinate, lng)
	}
	return nil
}

func validLatitude(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -90 && v <= 90
}

func validLongitude(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -180 && v <= 180
}
