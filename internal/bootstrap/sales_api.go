package bootstrap

import (
	"strings"
	"time"

	"sales_server/adapter/in/http"
	"sales_server/config"
	"sales_server/infra/middleware"
	"sales_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	bodyLimit    = 1 * 1024 * 1024
	demoRateMax  = 10
	devOrigins   = "http://localhost:3000,http://localhost:5173"
	rateWindow   = time.Minute
	headersAllow = "Origin,Content-Type,Accept,Authorization,X-Request-ID"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}
	return NewApp(deps), cleanup, nil
}

// NewApp mounts the middleware stack and every route on a new fiber app.
func NewApp(deps *Dependencies) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             bodyLimit,
		DisableDefaultDate:    true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Recover())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// AllowCredentials requires explicit origins.
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = devOrigins
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     headersAllow,
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	http.NewHealthHandler(deps.DB, deps.Redis, deps.LLMClient).
		WithPool(deps.Pool).
		Register(app)

	var storage fiber.Storage
	var blacklist *middleware.TokenBlacklist
	if deps.Cache != nil {
		storage = middleware.NewRedisStorage(deps.Cache)
		blacklist = middleware.NewTokenBlacklist(deps.Cache)
	}

	chatHandler := http.NewChatHandler(deps.ChatService)

	api := app.Group("/api/v1",
		middleware.ValidateContentType(),
		middleware.MaxBodySize(bodyLimit),
	)

	// Registered before the authenticated group so JWTAuth never runs for it.
	demo := api.Group("/demo", middleware.RateLimit(middleware.RateLimitConfig{
		Max:     demoRateMax,
		Window:  rateWindow,
		Storage: storage,
	}))
	chatHandler.RegisterDemo(demo)

	protected := api.Group("",
		middleware.JWTAuth(cfg.JWTSecret, blacklist),
		middleware.RateLimit(middleware.RateLimitConfig{
			Max:     cfg.RateLimitPerMin,
			Window:  rateWindow,
			Storage: storage,
		}),
	)
	chatHandler.Register(protected)
	http.NewBusinessHandler(deps.BusinessService).Register(protected)
	http.NewTokenHandler(deps.TokenService).Register(protected)

	return app
}
