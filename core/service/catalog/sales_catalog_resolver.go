package catalog

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"sales_server/core/domain"
	"sales_server/core/port/out"
	"sales_server/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Resolver picks the active catalog of a business: persisted products when
// any exist, otherwise the inline products of its configuration. The two
// sources are never merged.
type Resolver struct {
	productRepo  out.ProductRepository
	businessRepo out.BusinessRepository
	cache        out.CatalogCache

	group singleflight.Group

	// generations counts invalidations per business. A load only fills the
	// cache when no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[int64]uint64
}

// NewResolver creates a new catalog resolver. cache may be nil.
func NewResolver(productRepo out.ProductRepository, businessRepo out.BusinessRepository, cache out.CatalogCache) *Resolver {
	return &Resolver{
		productRepo:  productRepo,
		businessRepo: businessRepo,
		cache:        cache,
		generations:  make(map[int64]uint64),
	}
}

// Resolve returns the active catalog. Concurrent lookups for the same
// business share one load.
func (r *Resolver) Resolve(ctx context.Context, businessID int64) ([]domain.Product, error) {
	if r.cache != nil {
		if products, ok := r.cache.Get(ctx, businessID); ok {
			return products, nil
		}
	}

	v, err, _ := r.group.Do(flightKey(businessID), func() (any, error) {
		gen := r.generation(businessID)
		products, err := r.load(ctx, businessID)
		if err != nil {
			return nil, err
		}
		r.store(ctx, businessID, gen, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

// Invalidate drops the cached catalog after a product or config change.
// Loads already in flight still answer their callers but no longer fill the
// cache, and later lookups start a fresh load.
func (r *Resolver) Invalidate(ctx context.Context, businessID int64) {
	r.mu.Lock()
	r.generations[businessID]++
	r.mu.Unlock()

	r.group.Forget(flightKey(businessID))
	if r.cache != nil {
		r.cache.Invalidate(ctx, businessID)
	}
}

func (r *Resolver) generation(businessID int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[businessID]
}

func (r *Resolver) store(ctx context.Context, businessID int64, gen uint64, products []domain.Product) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generations[businessID] != gen {
		return
	}
	r.cache.Set(ctx, businessID, products)
}

func flightKey(businessID int64) string {
	return strconv.FormatInt(businessID, 10)
}

func (r *Resolver) load(ctx context.Context, businessID int64) ([]domain.Product, error) {
	products, err := r.productRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) > 0 {
		for i := range products {
			products[i].Source = domain.SourceDatabase
		}
		return products, nil
	}

	business, err := r.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}

	cfg, err := ParseConfig(business.Config)
	if err != nil {
		logger.WithField("business_id", businessID).Warn("[Resolver.load] ignoring inline catalog: %v", err)
		return []domain.Product{}, nil
	}
	if cfg.Products == nil {
		return []domain.Product{}, nil
	}
	return cfg.Products, nil
}
