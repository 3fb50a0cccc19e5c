package zones

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// ErrPolygonParse is returned for malformed zone polygons
var ErrPolygonParse = errors.New("polygon parse error")

const minRingVertices = 3

// ParsePolygon accepts a GeoJSON geometry or feature, a bare JSON ring of
// [lng, lat] pairs, or WKT. Only the outer ring is kept, without its closing vertex.
func ParsePolygon(raw string) (orb.Ring, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrPolygonParse)
	}

	var (
		geom orb.Geometry
		err  error
	)
	switch {
	case strings.HasPrefix(s, "["):
		geom, err = parseBareRing(s)
	case strings.HasPrefix(s, "{"):
		geom, err = parseGeoJSON(s)
	default:
		geom, err = wkt.Unmarshal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolygonParse, err)
	}

	ring, err := outerRing(geom)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolygonParse, err)
	}
	return normalizeRing(ring)
}

func parseBareRing(s string) (orb.Geometry, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(s), &coords); err != nil {
		return nil, err
	}
	ring := make(orb.Ring, 0, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("vertex %d has %d coordinates", i, len(c))
		}
		ring = append(ring, orb.Point{c[0], c[1]})
	}
	return ring, nil
}

func parseGeoJSON(s string) (orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, err
	}
	if probe.Type == "Feature" {
		f, err := geojson.UnmarshalFeature([]byte(s))
		if err != nil {
			return nil, err
		}
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}

func outerRing(geom orb.Geometry) (orb.Ring, error) {
	switch g := geom.(type) {
	case orb.Ring:
		return g, nil
	case orb.Polygon:
		if len(g) == 0 {
			return nil, errors.New("polygon has no rings")
		}
		return g[0], nil
	case nil:
		return nil, errors.New("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry %s", geom.GeoJSONType())
	}
}

// normalizeRing drops the closing vertex and checks the ring is usable
func normalizeRing(ring orb.Ring) (orb.Ring, error) {
	out := make(orb.Ring, len(ring))
	copy(out, ring)
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}

	distinct := make(map[orb.Point]struct{}, len(out))
	for _, p := range out {
		if !validLongitude(p[0]) || !validLatitude(p[1]) {
			return nil, fmt.Errorf("%w: vertex %v out of range", ErrPolygonParse, p)
		}
		distinct[p] = struct{}{}
	}
	if len(distinct) < minRingVertices {
		return nil, fmt.Errorf("%w: need at least %d distinct vertices, got %d", ErrPolygonParse, minRingVertices, len(distinct))
	}
	return out, nil
}

// closedRing returns ring with its first vertex repeated at the end (WKT and PostGIS form)
func closedRing(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, len(ring), len(ring)+1)
	copy(out, ring)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// PolygonWKT renders the zone polygon for PostGIS, or "" when there is none
func (z *Zone) PolygonWKT() string {
	if !z.HasPolygon() {
		return ""
	}
	return wkt.MarshalString(orb.Polygon{closedRing(z.Polygon)})
}
