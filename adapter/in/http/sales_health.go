package http

import (
	"context"
	"time"

	"sales_server/infra/database"
	"sales_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// BreakerState reports the state of the language model circuit breaker.
type BreakerState interface {
	State() string
}

type HealthHandler struct {
	db      *sqlx.DB
	redis   *redis.Client
	breaker BreakerState
	pool    *pgxpool.Pool
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client, breaker BreakerState) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		breaker: breaker,
	}
}

// WithPool adds Postgres pool statistics to the readiness report.
func (h *HealthHandler) WithPool(pool *pgxpool.Pool) *HealthHandler {
	h.pool = pool
	return h
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
		allHealthy = false
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	// An open breaker degrades replies to the fallback but does not make
	// the instance unready.
	if h.breaker != nil {
		checks["llm"] = h.breaker.State()
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.pool != nil {
		body["pool"] = database.GetPoolStats(h.pool)
	}
	return c.Status(statusCode).JSON(body)
}
