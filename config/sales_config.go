package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	RedisURL    string

	// JWT
	JWTSecret string

	// LLM (OpenAI-compatible, OpenRouter by default)
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// Ledger
	ChatTokenCost   int64
	LeadCaptureCost int64
	SignupTokens    int64

	// Memory
	MemoryLimit    int
	MemoryMaxBytes int

	// Cache
	CatalogCacheTTLSec int

	// Rate limit
	RateLimitPerMin int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "sqlite:sales.db"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// LLM
		LLMAPIKey:      getEnv("LLM_API_KEY", getEnv("OPENROUTER_API_KEY", "")),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:       getEnv("LLM_MODEL", "deepseek/deepseek-chat-v3-0324:free"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 30),

		// Ledger
		ChatTokenCost:   int64(getEnvInt("CHAT_TOKEN_COST", 5)),
		LeadCaptureCost: int64(getEnvInt("LEAD_CAPTURE_COST", 15)),
		SignupTokens:    int64(getEnvInt("SIGNUP_TOKENS", 100)),

		// Memory
		MemoryLimit:    getEnvInt("MEMORY_LIMIT", 10),
		MemoryMaxBytes: getEnvInt("MEMORY_MAX_BYTES", 15*1024*1024),

		// Cache
		CatalogCacheTTLSec: getEnvInt("CATALOG_CACHE_TTL_SEC", 300),

		// Rate limit
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 30),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}

	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.ChatTokenCost < 0 || cfg.LeadCaptureCost < 0 {
		return nil, fmt.Errorf("token costs must not be negative")
	}
	return cfg, nil
}

// LLMTimeout returns the per-call deadline of the language model.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

// CatalogCacheTTL returns how long a resolved catalog stays cached.
func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
