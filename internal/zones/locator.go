package zones

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// rectTolerance pads R-tree rectangles so degenerate boxes and points on
// box edges still intersect; exact bounds are re-checked afterwards.
const rectTolerance = 1e-7

// SortByPriority orders zones by SortOrder, then by ID, in place
func SortByPriority(zones []Zone) {
	sort.SliceStable(zones, func(i, j int) bool {
		return lessPriority(&zones[i], &zones[j])
	})
}

func lessPriority(a, b *Zone) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.ID.String() < b.ID.String()
}

// Locate returns the highest-priority active zone containing (lat, lng), or nil.
// Callers validate coordinates first. zones is not modified.
func Locate(lat, lng float64, zones []Zone) *Zone {
	ordered := make([]*Zone, 0, len(zones))
	for i := range zones {
		if zones[i].Active {
			ordered = append(ordered, &zones[i])
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return lessPriority(ordered[i], ordered[j])
	})

	for _, z := range ordered {
		if Contains(z, lat, lng) {
			return z
		}
	}
	return nil
}

// Contains applies the bounding box test and, when the zone has a usable
// polygon, the ray casting test.
func Contains(z *Zone, lat, lng float64) bool {
	if !z.InBoundingBox(lat, lng) {
		return false
	}
	if !z.HasPolygon() {
		return true
	}
	return rayCast(lat, lng, z.Polygon)
}

// rayCast toggles on every edge crossed by the horizontal ray through the point.
// Vertices are [lng, lat].
func rayCast(lat, lng float64, ring orb.Ring) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		lngI, latI := ring[i][0], ring[i][1]
		lngJ, latJ := ring[j][0], ring[j][1]
		if (lngI > lng) != (lngJ > lng) &&
			lat < (latJ-latI)*(lng-lngI)/(lngJ-lngI)+latI {
			inside = !inside
		}
	}
	return inside
}

// indexedZone adapts a zone to rtreego.Spatial
type indexedZone struct {
	zone *Zone
	rank int
	rect rtreego.Rect
}

func (iz *indexedZone) Bounds() rtreego.Rect {
	return iz.rect
}

// Index is an immutable R-tree snapshot of a zone list. Lookups return the
// same zone as Locate over the same list.
type Index struct {
	tree   *rtreego.Rtree
	zones  []Zone
	linear []*indexedZone
	size   int
}

// NewIndex copies the active zones of list and indexes their bounding boxes
func NewIndex(list []Zone) *Index {
	zones := make([]Zone, 0, len(list))
	for _, z := range list {
		if z.Active {
			zones = append(zones, z)
		}
	}
	SortByPriority(zones)

	idx := &Index{
		tree:  rtreego.NewTree(2, 25, 50),
		zones: zones,
		size:  len(zones),
	}
	for i := range zones {
		z := &zones[i]
		rect, err := rtreego.NewRect(
			rtreego.Point{z.MinLongitude - rectTolerance, z.MinLatitude - rectTolerance},
			[]float64{z.MaxLongitude - z.MinLongitude + 2*rectTolerance, z.MaxLatitude - z.MinLatitude + 2*rectTolerance},
		)
		entry := &indexedZone{zone: z, rank: i, rect: rect}
		if err != nil {
			idx.linear = append(idx.linear, entry)
			continue
		}
		idx.tree.Insert(entry)
	}
	return idx
}

// Len returns the number of indexed zones
func (idx *Index) Len() int {
	return idx.size
}

// Locate finds the highest-priority zone containing (lat, lng), or nil
func (idx *Index) Locate(lat, lng float64) *Zone {
	if idx == nil || idx.size == 0 {
		return nil
	}

	var hits []rtreego.Spatial
	searchRect, err := rtreego.NewRect(
		rtreego.Point{lng - rectTolerance, lat - rectTolerance},
		[]float64{2 * rectTolerance, 2 * rectTolerance},
	)
	if err == nil {
		hits = idx.tree.SearchIntersect(searchRect)
	}
	candidates := make([]*indexedZone, 0, len(hits)+len(idx.linear))
	for _, h := range hits {
		candidates = append(candidates, h.(*indexedZone))
	}
	candidates = append(candidates, idx.linear...)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].rank < candidates[j].rank
	})

	for _, c := range candidates {
		if Contains(c.zone, lat, lng) {
			return c.zone
		}
	}
	return nil
}
