package bootstrap

import (
	"context"
	"fmt"

	"sales_server/adapter/out/persistence"
	"sales_server/config"
	"sales_server/core/agent/llm"
	"sales_server/core/port/out"
	"sales_server/core/service/business"
	"sales_server/core/service/catalog"
	"sales_server/core/service/chat"
	"sales_server/core/service/memory"
	"sales_server/infra/database"
	"sales_server/internal/stream"
	"sales_server/pkg/cache"
	"sales_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix      = "sales:"
	localCatalogEntries = 1000
	eventsGroup         = "sales-events"
)

type Dependencies struct {
	Config *config.Config
	DB     *sqlx.DB
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	Cache  *cache.RedisCache
	Events *stream.RedisStream

	// Repositories
	UserRepo     *persistence.UserAdapter
	BusinessRepo *persistence.BusinessAdapter
	ProductRepo  *persistence.ProductAdapter
	HistoryRepo  *persistence.ChatHistoryAdapter
	Ledger       *persistence.LedgerAdapter
	LeadRepo     *persistence.LeadAdapter

	// Agent
	LLMClient *llm.Client

	// Services
	Resolver        *catalog.Resolver
	MemoryManager   *memory.Manager
	ChatService     *chat.Service
	BusinessService *business.Service
	TokenService    *business.TokenService
}

// NewDependencies builds the dependency graph. The returned cleanup closes
// every connection that was opened.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	ctx := context.Background()
	deps := &Dependencies{Config: cfg}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, err := database.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	if err := persistence.Migrate(ctx, db); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	if !database.IsSQLite(cfg.DatabaseURL) {
		pool, err := database.NewPostgres(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			logger.WithError(err).Warn("[NewDependencies] pgx pool unavailable, pool stats disabled")
		} else {
			deps.Pool = pool
			cleanups = append(cleanups, pool.Close)
		}
	}

	if cfg.RedisURL != "" {
		client, err := database.NewRedis(ctx, cfg.RedisURL, nil)
		if err != nil {
			logger.WithError(err).Warn("[NewDependencies] redis unavailable, using in-process catalog cache")
		} else {
			deps.Redis = client
			deps.Cache = cache.NewRedisCache(client, redisKeyPrefix)
			deps.Events = stream.NewRedisStream(client, eventsGroup)
			cleanups = append(cleanups, func() { client.Close() })
		}
	}

	deps.UserRepo = persistence.NewUserAdapter(db)
	deps.BusinessRepo = persistence.NewBusinessAdapter(db)
	deps.ProductRepo = persistence.NewProductAdapter(db)
	deps.HistoryRepo = persistence.NewChatHistoryAdapter(db)
	deps.Ledger = persistence.NewLedgerAdapter(db)
	deps.LeadRepo = persistence.NewLeadAdapter(db)

	var catalogCache out.CatalogCache
	if deps.Cache != nil {
		catalogCache = persistence.NewCatalogCache(deps.Cache, cfg.CatalogCacheTTL())
	} else {
		catalogCache = persistence.NewLocalCatalogCache(localCatalogEntries, cfg.CatalogCacheTTL())
	}
	deps.Resolver = catalog.NewResolver(deps.ProductRepo, deps.BusinessRepo, catalogCache)
	deps.MemoryManager = memory.NewManager(deps.HistoryRepo, cfg.MemoryMaxBytes)

	deps.LLMClient = llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout(),
	})
	if cfg.LLMAPIKey == "" {
		logger.Warn("[NewDependencies] LLM_API_KEY not set, replies will use the templated fallback")
	}

	deps.ChatService = newChatService(deps, deps.LLMClient)
	if deps.Events != nil {
		deps.ChatService.WithEvents(deps.Events)
	}
	deps.BusinessService = business.NewService(deps.UserRepo, deps.BusinessRepo, deps.ProductRepo, deps.LeadRepo, deps.Resolver)
	deps.TokenService = business.NewTokenService(deps.Ledger)

	return deps, cleanup, nil
}

func newChatService(deps *Dependencies, gateway out.LLMGateway) *chat.Service {
	cfg := deps.Config
	return chat.NewService(
		deps.UserRepo,
		deps.BusinessRepo,
		deps.HistoryRepo,
		deps.Ledger,
		deps.LeadRepo,
		gateway,
		deps.Resolver,
		deps.MemoryManager,
		chat.Options{
			ChatCost:    cfg.ChatTokenCost,
			LeadCost:    cfg.LeadCaptureCost,
			MemoryLimit: cfg.MemoryLimit,
			LLMTimeout:  cfg.LLMTimeout(),
		},
	)
}
