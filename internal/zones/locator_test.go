package zones

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var squareRing = orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}}

func testZone(name string, sortOrder int, minLat, maxLat, minLng, maxLng float64, ring orb.Ring) Zone {
	return Zone{
		ID:              uuid.New(),
		Name:            name,
		MinLatitude:     minLat,
		MaxLatitude:     maxLat,
		MinLongitude:    minLng,
		MaxLongitude:    maxLng,
		Polygon:         ring,
		PriceMultiplier: decimal.NewFromInt(1),
		Active:          true,
		SortOrder:       sortOrder,
	}
}

func squareZone() Zone {
	return testZone("square", 0, 0, 10, 0, 10, squareRing)
}

func TestLocate_SquarePolygon(t *testing.T) {
	zones := []Zone{squareZone()}

	tests := []struct {
		name   string
		lat    float64
		lng    float64
		inside bool
	}{
		{"center", 5, 5, true},
		{"near corner", 0.5, 9.5, true},
		{"outside", 15, 15, false},
		{"vertex", 10, 10, false},
		{"top left vertex", 10, 0, false},
		{"top edge", 10, 5, false},
		{"right edge", 5, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Locate(tt.lat, tt.lng, zones)
			if tt.inside {
				require.NotNil(t, got)
				assert.Equal(t, zones[0].ID, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestLocate_Deterministic(t *testing.T) {
	zones := []Zone{
		testZone("a", 1, 0, 10, 0, 10, nil),
		testZone("b", 1, 0, 10, 0, 10, nil),
		squareZone(),
	}

	first := Locate(5, 5, zones)
	require.NotNil(t, first)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first.ID, Locate(5, 5, zones).ID)
	}
}

func TestLocate_BoundingBoxIsNecessary(t *testing.T) {
	// polygon covers the point but the box does not
	z := testZone("narrow box", 0, 0, 1, 0, 1, squareRing)

	assert.Nil(t, Locate(5, 5, []Zone{z}))
	assert.NotNil(t, Locate(0.5, 0.5, []Zone{z}))
}

func TestLocate_BoundingBoxInclusive(t *testing.T) {
	z := testZone("box", 0, 0, 10, 0, 10, nil)

	assert.NotNil(t, Locate(10, 10, []Zone{z}))
	assert.NotNil(t, Locate(0, 0, []Zone{z}))
	assert.Nil(t, Locate(10.0001, 5, []Zone{z}))
}

func TestLocate_PriorityTieBreak(t *testing.T) {
	low := testZone("low", 5, 0, 10, 0, 10, nil)
	high := testZone("high", 1, 0, 10, 0, 10, nil)

	got := Locate(5, 5, []Zone{low, high})
	require.NotNil(t, got)
	assert.Equal(t, "high", got.Name)

	a := testZone("a", 0, 0, 10, 0, 10, nil)
	b := testZone("b", 0, 0, 10, 0, 10, nil)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

	got = Locate(5, 5, []Zone{a, b})
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Name)
}

func TestLocate_DegradedPolygonUsesBox(t *testing.T) {
	z, err := NewZone(ZoneParams{
		ID:           uuid.New(),
		Name:         "broken",
		MinLatitude:  0,
		MaxLatitude:  10,
		MinLongitude: 0,
		MaxLongitude: 10,
		Polygon:      `{"type":"Polygon","coordinates":[[[0,0],[1,1]]]}`,
		Active:       true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, z.PolygonError)
	assert.False(t, z.HasPolygon())

	got := Locate(9, 9, []Zone{*z})
	require.NotNil(t, got)
	assert.Equal(t, z.ID, got.ID)
}

func TestLocate_SkipsInactive(t *testing.T) {
	z := squareZone()
	z.Active = false

	assert.Nil(t, Locate(5, 5, []Zone{z}))
}

func TestLocate_EmptyList(t *testing.T) {
	assert.Nil(t, Locate(5, 5, nil))
}

func TestLocate_ConcavePolygon(t *testing.T) {
	// L shape: the upper right quadrant is cut out
	ring := orb.Ring{{0, 0}, {0, 10}, {5, 10}, {5, 5}, {10, 5}, {10, 0}}
	z := testZone("L", 0, 0, 10, 0, 10, ring)

	assert.NotNil(t, Locate(2, 2, []Zone{z}))
	assert.NotNil(t, Locate(8, 2, []Zone{z}))
	assert.Nil(t, Locate(8, 8, []Zone{z}))
}

func TestLocate_DoesNotReorderInput(t *testing.T) {
	zones := []Zone{
		testZone("second", 2, 0, 10, 0, 10, nil),
		testZone("first", 1, 0, 10, 0, 10, nil),
	}

	Locate(5, 5, zones)
	assert.Equal(t, "second", zones[0].Name)
}

func TestIndex_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	zones := make([]Zone, 0, 60)
	for i := 0; i < 60; i++ {
		minLat := rng.Float64()*40 - 20
		minLng := rng.Float64()*40 - 20
		h := rng.Float64() * 8
		w := rng.Float64() * 8
		var ring orb.Ring
		if i%2 == 0 {
			ring = orb.Ring{
				{minLng, minLat},
				{minLng + w/2, minLat + h},
				{minLng + w, minLat},
			}
		}
		z := testZone("z", rng.Intn(5), minLat, minLat+h, minLng, minLng+w, ring)
		z.Active = i%7 != 0
		zones = append(zones, z)
	}
	// a degenerate box
	zones = append(zones, testZone("point", 0, 1, 1, 1, 1, nil))

	idx := NewIndex(zones)
	for i := 0; i < 2000; i++ {
		lat := rng.Float64()*50 - 25
		lng := rng.Float64()*50 - 25
		want := Locate(lat, lng, zones)
		got := idx.Locate(lat, lng)
		if want == nil {
			assert.Nil(t, got, "lat=%v lng=%v", lat, lng)
			continue
		}
		require.NotNil(t, got, "lat=%v lng=%v", lat, lng)
		assert.Equal(t, want.ID, got.ID)
	}

	got := idx.Locate(1, 1)
	want := Locate(1, 1, zones)
	require.NotNil(t, want)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestIndex_Empty(t *testing.T) {
	idx := NewIndex(nil)
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Locate(1, 1))

	var nilIdx *Index
	assert.Nil(t, nilIdx.Locate(1, 1))
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(0, 0))
	assert.NoError(t, ValidateCoordinates(-90, 180))

	invalid := [][2]float64{
		{91, 0},
		{0, -180.5},
		{nan(), 0},
		{0, inf()},
	}
	for _, c := range invalid {
		assert.ErrorIs(t, ValidateCoordinates(c[0], c[1]), ErrInvalidCoordinate)
	}
}
