package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/internal/zones"
	"github.com/richxcame/carwash-pricing/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockZoneService struct {
	mock.Mock
}

func (m *mockZoneService) Resolve(ctx context.Context, lat, lng float64) (*zones.Resolution, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zones.Resolution), args.Error(1)
}

func (m *mockZoneService) InvalidateCaches(ctx context.Context) {
	m.Called(ctx)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetServiceBasePrice(ctx context.Context, serviceID uuid.UUID) (*ServiceBasePrice, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ServiceBasePrice), args.Error(1)
}

func (m *mockCatalog) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

type mockSettings struct {
	mock.Mock
}

func (m *mockSettings) LoadPricingAdjustmentConfig(ctx context.Context) (PricingAdjustmentConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(PricingAdjustmentConfig), args.Error(1)
}

type overrideStub map[uuid.UUID]*zones.ServiceZonePrice

func (o overrideStub) FindOverride(_ context.Context, serviceID, _ uuid.UUID) (*zones.ServiceZonePrice, error) {
	return o[serviceID], nil
}

type pricingFixture struct {
	zones    *mockZoneService
	catalog  *mockCatalog
	settings *mockSettings
	service  *Service
}

func newPricingFixture(overrides overrideStub) *pricingFixture {
	f := &pricingFixture{
		zones:    new(mockZoneService),
		catalog:  new(mockCatalog),
		settings: new(mockSettings),
	}
	f.service = NewService(
		f.zones,
		zones.NewPriceResolver(overrides),
		f.catalog,
		f.settings,
		cache.NewTiered[PriceByLocationResponse]("pricing", nil, nil, nil),
		10*time.Minute,
		"USD",
	)
	f.service.now = func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC) }
	return f
}

func coords(lat, lng float64) (*float64, *float64) { return &lat, &lng }

func downtownZone(multiplier string) *zones.Zone {
	return &zones.Zone{
		ID:              uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Name:            "Downtown",
		Description:     "City center",
		MaxLatitude:     10,
		MaxLongitude:    10,
		PriceMultiplier: decimal.RequireFromString(multiplier),
		Active:          true,
	}
}

func TestPriceByLocation_ZoneOverrideAndMultiplier(t *testing.T) {
	wash := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	wax := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	zone := downtownZone("1.2")
	f := newPricingFixture(overrideStub{wax: {PriceCents: 3000, Active: true}})

	f.zones.On("Resolve", mock.Anything, 5.0, 5.0).Return(&zones.Resolution{Zone: zone, Method: zones.MethodSpatial}, nil)
	f.settings.On("LoadPricingAdjustmentConfig", mock.Anything).Return(PricingAdjustmentConfig{
		TaxPercentage:       pct(5),
		StripeFeePercentage: pct(2.9),
		ExtraFeeAmountCents: 100,
	}, nil)
	f.catalog.On("GetServiceBasePrice", mock.Anything, wash).Return(&ServiceBasePrice{ServiceID: wash, Name: "Wash", PriceCents: 5000, DiscountPercentage: pct(10)}, nil)
	f.catalog.On("GetServiceBasePrice", mock.Anything, wax).Return(&ServiceBasePrice{ServiceID: wax, Name: "Wax", PriceCents: 2000}, nil)

	lat, lng := coords(5, 5)
	resp, err := f.service.PriceByLocation(context.Background(), PriceByLocationRequest{
		Lat:        lat,
		Lng:        lng,
		ServiceIDs: []string{wash.String(), wax.String()},
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Zone)
	assert.Equal(t, "Downtown", resp.Zone.Name)
	assert.Equal(t, "$", resp.CurrencySymbol)
	assert.Equal(t, "2026-05-01T09:30:00Z", resp.TargetDatetime)
	assert.Equal(t, zones.ResolutionPolygonMatch, resp.Explanation.ResolutionMethod)
	require.NotNil(t, resp.Explanation.PriceMultiplier)
	assert.Equal(t, "1.2", resp.Explanation.PriceMultiplier.String())
	assert.False(t, resp.Explanation.ConfigMissing)
	require.Len(t, resp.Prices, 2)

	washPrice := resp.Prices[0]
	assert.Equal(t, wash, washPrice.ServiceID)
	assert.Equal(t, int64(6000), washPrice.Price)
	assert.Equal(t, zones.SourceBasePrice, washPrice.Source)
	assert.True(t, washPrice.ZoneAdjusted)
	assert.Equal(t, 10.0, *washPrice.DiscountPercentage)
	// 6000 -10% = 5400, +5% tax = 5670, fee on 5570 @2.9% = 162
	assert.Equal(t, int64(5832), washPrice.Quote.PayableCents)

	waxPrice := resp.Prices[1]
	assert.Equal(t, int64(3000), waxPrice.Price)
	assert.Equal(t, zones.SourceZonePrice, waxPrice.Source)
	require.NotNil(t, waxPrice.ZoneID)
	assert.Equal(t, zone.ID, *waxPrice.ZoneID)
}

func TestPriceByLocation_NoZoneUsesBasePrice(t *testing.T) {
	wash := uuid.New()
	f := newPricingFixture(nil)

	f.zones.On("Resolve", mock.Anything, 40.0, 40.0).Return(&zones.Resolution{Method: zones.MethodNone}, nil)
	f.settings.On("LoadPricingAdjustmentConfig", mock.Anything).Return(PricingAdjustmentConfig{}, nil)
	f.catalog.On("GetServiceBasePrice", mock.Anything, wash).Return(&ServiceBasePrice{ServiceID: wash, PriceCents: 5000}, nil)

	lat, lng := coords(40, 40)
	resp, err := f.service.PriceByLocation(context.Background(), PriceByLocationRequest{Lat: lat, Lng: lng, ServiceIDs: []string{wash.String()}})
	require.NoError(t, err)

	assert.Nil(t, resp.Zone)
	assert.Equal(t, zones.ResolutionNone, resp.Explanation.ResolutionMethod)
	assert.Nil(t, resp.Explanation.PriceMultiplier)
	require.Len(t, resp.Prices, 1)
	assert.Equal(t, int64(5000), resp.Prices[0].Price)
	assert.Equal(t, zones.SourceBasePrice, resp.Prices[0].Source)
	assert.Nil(t, resp.Prices[0].ZoneID)
	assert.Equal(t, "$50.00", resp.Prices[0].FormattedPrice)
}

func TestPriceByLocation_CachesResult(t *testing.T) {
	wash := uuid.New()
	f := newPricingFixture(nil)

	f.zones.On("Resolve", mock.Anything, 40.0, 40.0).Return(&zones.Resolution{Method: zones.MethodNone}, nil)
	f.settings.On("LoadPricingAdjustmentConfig", mock.Anything).Return(PricingAdjustmentConfig{}, nil).Once()
	f.catalog.On("GetServiceBasePrice", mock.Anything, wash).Return(&ServiceBasePrice{ServiceID: wash, PriceCents: 5000}, nil).Once()

	lat, lng := coords(40, 40)
	req := PriceByLocationRequest{Lat: lat, Lng: lng, ServiceIDs: []string{wash.String()}}

	first, err := f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Prices, second.Prices)

	f.catalog.AssertNumberOfCalls(t, "GetServiceBasePrice", 1)
}

func TestPriceByLocation_ConfigMissing(t *testing.T) {
	wash := uuid.New()
	f := newPricingFixture(nil)

	f.zones.On("Resolve", mock.Anything, 40.0, 40.0).Return(&zones.Resolution{Method: zones.MethodNone}, nil)
	f.settings.On("LoadPricingAdjustmentConfig", mock.Anything).Return(PricingAdjustmentConfig{Missing: true}, ErrPricingConfigMissing)
	f.catalog.On("GetServiceBasePrice", mock.Anything, wash).Return(&ServiceBasePrice{ServiceID: wash, PriceCents: 5000}, nil)

	lat, lng := coords(40, 40)
	req := PriceByLocationRequest{Lat: lat, Lng: lng, ServiceIDs: []string{wash.String()}}

	resp, err := f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Explanation.ConfigMissing)
	assert.True(t, resp.Explanation.Adjustments.ConfigMissing)
	assert.Equal(t, int64(5000), resp.Prices[0].Quote.PayableCents)

	_, err = f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)
	f.settings.AssertNumberOfCalls(t, "LoadPricingAdjustmentConfig", 2)
}

func TestPriceByLocation_SkipsUnknownServices(t *testing.T) {
	known := uuid.New()
	unknown := uuid.New()
	broken := uuid.New()
	f := newPricingFixture(nil)

	f.zones.On("Resolve", mock.Anything, 40.0, 40.0).Return(&zones.Resolution{Method: zones.MethodNone}, nil)
	f.settings.On("LoadPricingAdjustmentConfig", mock.Anything).Return(PricingAdjustmentConfig{}, nil)
	f.catalog.On("GetServiceBasePrice", mock.Anything, known).Return(&ServiceBasePrice{ServiceID: known, PriceCents: 100}, nil)
	f.catalog.On("GetServiceBasePrice", mock.Anything, unknown).Return(nil, ErrServiceNotFound)
	f.catalog.On("GetServiceBasePrice", mock.Anything, broken).Return(nil, errors.New("timeout"))

	lat, lng := coords(40, 40)
	resp, err := f.service.PriceByLocation(context.Background(), PriceByLocationRequest{
		Lat:        lat,
		Lng:        lng,
		ServiceIDs: []string{known.String(), unknown.String(), "not-a-uuid", broken.String(), known.String()},
	})
	require.NoError(t, err)

	require.Len(t, resp.Prices, 1)
	assert.Equal(t, known, resp.Prices[0].ServiceID)
	assert.ElementsMatch(t, []string{"not-a-uuid", unknown.String(), broken.String()}, resp.Explanation.SkippedServices)
	f.catalog.AssertNumberOfCalls(t, "GetServiceBasePrice", 3)
}

func TestPriceByLocation_InvalidCoordinates(t *testing.T) {
	f := newPricingFixture(nil)

	lat, lng := coords(91, 0)
	_, err := f.service.PriceByLocation(context.Background(), PriceByLocationRequest{Lat: lat, Lng: lng, ServiceIDs: []string{uuid.NewString()}})
	assert.ErrorIs(t, err, zones.ErrInvalidCoordinate)

	_, err = f.service.PriceByLocation(context.Background(), PriceByLocationRequest{ServiceIDs: []string{uuid.NewString()}})
	assert.ErrorIs(t, err, zones.ErrInvalidCoordinate)

	f.zones.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestPriceByLocation_DegradedZoneNotCached(t *testing.T) {
	wash := uuid.New()
	f := newPricingFixture(nil)

	f.zones.On("Resolve", mock.Anything, 5.0, 5.0).Return(&zones.Resolution{Method: zones.MethodNone, Degraded: true}, nil)
	f.settings.On("LoadPricingAdjustmentConfig", mock.Anything).Return(PricingAdjustmentConfig{}, nil)
	f.catalog.On("GetServiceBasePrice", mock.Anything, wash).Return(&ServiceBasePrice{ServiceID: wash, PriceCents: 100}, nil)

	lat, lng := coords(5, 5)
	req := PriceByLocationRequest{Lat: lat, Lng: lng, ServiceIDs: []string{wash.String()}}

	resp, err := f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Explanation.ZoneDegraded)

	resp, err = f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
}

func TestClearCaches(t *testing.T) {
	wash := uuid.New()
	f := newPricingFixture(nil)

	f.zones.On("Resolve", mock.Anything, 40.0, 40.0).Return(&zones.Resolution{Method: zones.MethodNone}, nil)
	f.zones.On("InvalidateCaches", mock.Anything).Return()
	f.catalog.On("Invalidate", mock.Anything).Return()
	f.settings.On("LoadPricingAdjustmentConfig", mock.Anything).Return(PricingAdjustmentConfig{}, nil)
	f.catalog.On("GetServiceBasePrice", mock.Anything, wash).Return(&ServiceBasePrice{ServiceID: wash, PriceCents: 100}, nil)

	lat, lng := coords(40, 40)
	req := PriceByLocationRequest{Lat: lat, Lng: lng, ServiceIDs: []string{wash.String()}}

	_, err := f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)

	f.service.ClearCaches(context.Background())

	resp, err := f.service.PriceByLocation(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	f.zones.AssertCalled(t, "InvalidateCaches", mock.Anything)
	f.catalog.AssertCalled(t, "Invalidate", mock.Anything)
}
