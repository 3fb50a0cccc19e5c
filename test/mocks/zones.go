package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/internal/zones"
	"github.com/stretchr/testify/mock"
)

// MockZoneRepository is a mock implementation of zones.RepositoryInterface
type MockZoneRepository struct {
	mock.Mock
}

func (m *MockZoneRepository) FindActiveZonesOrderedByPriority(ctx context.Context) ([]zones.Zone, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zones.Zone), args.Error(1)
}

func (m *MockZoneRepository) GetZoneByID(ctx context.Context, id uuid.UUID) (*zones.Zone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zones.Zone), args.Error(1)
}

func (m *MockZoneRepository) FindOverride(ctx context.Context, serviceID, zoneID uuid.UUID) (*zones.ServiceZonePrice, error) {
	args := m.Called(ctx, serviceID, zoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zones.ServiceZonePrice), args.Error(1)
}

func (m *MockZoneRepository) FindCandidates(ctx context.Context, lat, lng float64) ([]zones.Zone, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zones.Zone), args.Error(1)
}

// MockZoneResolver is a mock implementation of zones.ZoneResolver
type MockZoneResolver struct {
	mock.Mock
}

func (m *MockZoneResolver) Resolve(ctx context.Context, lat, lng float64) (*zones.Zone, zones.Method, error) {
	args := m.Called(ctx, lat, lng)
	var zone *zones.Zone
	if args.Get(0) != nil {
		zone = args.Get(0).(*zones.Zone)
	}
	return zone, args.Get(1).(zones.Method), args.Error(2)
}
