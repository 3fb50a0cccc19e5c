package zones

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) FindActiveZonesOrderedByPriority(ctx context.Context) ([]Zone, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Zone), args.Error(1)
}

func (m *mockRepository) GetZoneByID(ctx context.Context, id uuid.UUID) (*Zone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Zone), args.Error(1)
}

func (m *mockRepository) FindOverride(ctx context.Context, serviceID, zoneID uuid.UUID) (*ServiceZonePrice, error) {
	args := m.Called(ctx, serviceID, zoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ServiceZonePrice), args.Error(1)
}

func (m *mockRepository) FindCandidates(ctx context.Context, lat, lng float64) ([]Zone, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Zone), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, lat, lng float64) (*Zone, Method, error) {
	args := m.Called(ctx, lat, lng)
	var zone *Zone
	if args.Get(0) != nil {
		zone = args.Get(0).(*Zone)
	}
	return zone, args.Get(1).(Method), args.Error(2)
}

type staticLister struct {
	zones []Zone
	err   error
	calls int
}

func (s *staticLister) ActiveZones(ctx context.Context) ([]Zone, error) {
	s.calls++
	return s.zones, s.err
}
