package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) GetServiceBasePrice(ctx context.Context, serviceID uuid.UUID) (*ServiceBasePrice, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ServiceBasePrice), args.Error(1)
}

func TestCatalog_CachesBasePrice(t *testing.T) {
	id := uuid.New()
	repo := new(mockCatalogRepository)
	repo.On("GetServiceBasePrice", mock.Anything, id).Return(&ServiceBasePrice{ServiceID: id, Name: "Interior", PriceCents: 4500}, nil).Once()

	catalog := NewCatalog(repo, cache.NewTiered[ServiceBasePrice]("service_prices", nil, nil, nil), time.Minute)

	for i := 0; i < 3; i++ {
		p, err := catalog.GetServiceBasePrice(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(4500), p.PriceCents)
	}
	repo.AssertNumberOfCalls(t, "GetServiceBasePrice", 1)
}

func TestCatalog_NotFoundIsNotCached(t *testing.T) {
	id := uuid.New()
	repo := new(mockCatalogRepository)
	repo.On("GetServiceBasePrice", mock.Anything, id).Return(nil, ErrServiceNotFound)

	catalog := NewCatalog(repo, cache.NewTiered[ServiceBasePrice]("service_prices", nil, nil, nil), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := catalog.GetServiceBasePrice(context.Background(), id)
		assert.ErrorIs(t, err, ErrServiceNotFound)
	}
	repo.AssertNumberOfCalls(t, "GetServiceBasePrice", 2)
}

func TestCatalog_Invalidate(t *testing.T) {
	id := uuid.New()
	repo := new(mockCatalogRepository)
	repo.On("GetServiceBasePrice", mock.Anything, id).Return(&ServiceBasePrice{ServiceID: id, PriceCents: 4500}, nil).Once()
	repo.On("GetServiceBasePrice", mock.Anything, id).Return(&ServiceBasePrice{ServiceID: id, PriceCents: 5000}, nil).Once()

	catalog := NewCatalog(repo, cache.NewTiered[ServiceBasePrice]("service_prices", nil, nil, nil), time.Minute)

	p, err := catalog.GetServiceBasePrice(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), p.PriceCents)

	catalog.Invalidate(context.Background())

	p, err = catalog.GetServiceBasePrice(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), p.PriceCents)
}
