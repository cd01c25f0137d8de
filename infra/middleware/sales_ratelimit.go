package middleware

import (
	"context"
	"time"

	"sales_server/pkg/apperr"
	"sales_server/pkg/cache"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"
)

// RateLimitConfig configures the request limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// Storage shares counters between instances; nil keeps them in memory.
	Storage fiber.Storage
}

// RateLimit limits requests per authenticated user, or per client IP for
// anonymous requests, within a fixed window.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Storage:    cfg.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if uid, ok := c.Locals("user_id").(uuid.UUID); ok {
				return "user:" + uid.String()
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperr.ErrRateLimited
		},
	})
}

// RedisStorage adapts a RedisCache to fiber.Storage so limiter counters are
// shared across instances.
type RedisStorage struct {
	cache *cache.RedisCache
}

var _ fiber.Storage = (*RedisStorage)(nil)

func NewRedisStorage(redisCache *cache.RedisCache) *RedisStorage {
	return &RedisStorage{cache: redisCache}
}

func (s *RedisStorage) Get(key string) ([]byte, error) {
	return s.cache.GetBytes(context.Background(), key)
}

func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.cache.SetBytes(context.Background(), key, val, exp)
}

func (s *RedisStorage) Delete(key string) error {
	return s.cache.Delete(context.Background(), key)
}

func (s *RedisStorage) Reset() error {
	return s.cache.DeletePrefix(context.Background(), "")
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStorage) Close() error {
	return nil
}
