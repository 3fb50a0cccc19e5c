package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/carwash-pricing/pkg/cache"
)

// CatalogRepository reads service base prices
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetServiceBasePrice returns the base price of an active service
func (r *CatalogRepository) GetServiceBasePrice(ctx context.Context, serviceID uuid.UUID) (*ServiceBasePrice, error) {
	query := `
		SELECT id, name, price_cents, discount_percentage::float8
		FROM services
		WHERE id = $1 AND active = true
	`

	p := &ServiceBasePrice{}
	err := r.db.QueryRow(ctx, query, serviceID).Scan(&p.ServiceID, &p.Name, &p.PriceCents, &p.DiscountPercentage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to get service price: %w", err)
	}
	return p, nil
}

// Catalog caches base prices per service
type Catalog struct {
	repo  CatalogRepositoryInterface
	cache cache.Cache[ServiceBasePrice]
	ttl   time.Duration
}

// NewCatalog creates a new cached catalog
func NewCatalog(repo CatalogRepositoryInterface, priceCache cache.Cache[ServiceBasePrice], ttl time.Duration) *Catalog {
	return &Catalog{repo: repo, cache: priceCache, ttl: ttl}
}

// GetServiceBasePrice implements ServiceCatalog
func (c *Catalog) GetServiceBasePrice(ctx context.Context, serviceID uuid.UUID) (*ServiceBasePrice, error) {
	key := cache.ServicePriceKey(serviceID.String())
	if p, ok := c.cache.Get(ctx, key); ok {
		return &p, nil
	}

	p, err := c.repo.GetServiceBasePrice(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, *p, c.ttl)
	return p, nil
}

// Invalidate drops every cached base price
func (c *Catalog) Invalidate(ctx context.Context) {
	c.cache.Invalidate(ctx, cache.ServicePriceKey(""))
}
