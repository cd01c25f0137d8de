package persistence

import (
	"context"
	"strconv"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"
	"sales_server/pkg/cache"
	"sales_server/pkg/logger"
	"sales_server/pkg/metrics"

	"github.com/goccy/go-json"
)

// DefaultCatalogTTL bounds how long a resolved catalog is served from Redis.
const DefaultCatalogTTL = 5 * time.Minute

// CatalogCache implements out.CatalogCache on Redis. Redis errors are
// logged and treated as misses.
type CatalogCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

var _ out.CatalogCache = (*CatalogCache)(nil)

func NewCatalogCache(redisCache *cache.RedisCache, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{cache: redisCache, ttl: ttl}
}

func catalogCacheKey(businessID int64) string {
	return "catalog:" + strconv.FormatInt(businessID, 10)
}

func (c *CatalogCache) Get(ctx context.Context, businessID int64) ([]domain.Product, bool) {
	var products []domain.Product
	found, err := c.cache.GetJSON(ctx, catalogCacheKey(businessID), &products)
	if err != nil {
		logger.WithError(err).Debug("[CatalogCache.Get] redis unavailable for business %d", businessID)
	}
	hit := err == nil && found
	metrics.CatalogCache(hit)
	if !hit {
		return nil, false
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, true
}

func (c *CatalogCache) Set(ctx context.Context, businessID int64, products []domain.Product) {
	if err := c.cache.SetJSON(ctx, catalogCacheKey(businessID), products, c.ttl); err != nil {
		logger.WithError(err).Debug("[CatalogCache.Set] skipped for business %d", businessID)
	}
}

func (c *CatalogCache) Invalidate(ctx context.Context, businessID int64) {
	if err := c.cache.Delete(ctx, catalogCacheKey(businessID)); err != nil {
		logger.WithError(err).Warn("[CatalogCache.Invalidate] failed for business %d", businessID)
	}
}

// LocalCatalogCache implements out.CatalogCache in process memory. It serves
// single-instance deployments that run without Redis.
type LocalCatalogCache struct {
	cache *cache.L1Cache
}

var _ out.CatalogCache = (*LocalCatalogCache)(nil)

func NewLocalCatalogCache(maxBusinesses int, ttl time.Duration) *LocalCatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &LocalCatalogCache{cache: cache.NewL1Cache(maxBusinesses, ttl)}
}

func (c *LocalCatalogCache) Get(_ context.Context, businessID int64) ([]domain.Product, bool) {
	data, ok := c.cache.Get(catalogCacheKey(businessID))
	if ok {
		var products []domain.Product
		if err := json.Unmarshal(data, &products); err == nil {
			metrics.CatalogCache(true)
			if products == nil {
				products = []domain.Product{}
			}
			return products, true
		}
	}
	metrics.CatalogCache(false)
	return nil, false
}

func (c *LocalCatalogCache) Set(_ context.Context, businessID int64, products []domain.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	c.cache.Set(catalogCacheKey(businessID), data)
}

func (c *LocalCatalogCache) Invalidate(_ context.Context, businessID int64) {
	c.cache.Delete(catalogCacheKey(businessID))
}
