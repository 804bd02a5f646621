// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq background task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	IsSchedulerEnabled() bool
}

// SearchConfig provides settings for the search subsystem.
type SearchConfig interface {
	GetSearchQueryTimeout() time.Duration
	GetSearchRateLimitMax() int
	GetSearchRateLimitWindow() time.Duration
	GetSuggestRateLimitMax() int
	GetSuggestRateLimitWindow() time.Duration
}

// SuggestConfig provides the per-source result budget for suggestions.
// Shares are percentages and should sum to 100.
type SuggestConfig interface {
	GetSuggestItemShare() int
	GetSuggestLocationShare() int
	GetSuggestTagShare() int
	GetSuggestDescriptionShare() int
}

// =============================================================================
// Config Struct
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL     string
	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	SearchQueryTimeout     time.Duration
	SearchRateLimitMax     int
	SearchRateLimitWindow  time.Duration
	SuggestRateLimitMax    int
	SuggestRateLimitWindow time.Duration

	SuggestItemShare        int
	SuggestLocationShare    int
	SuggestTagShare         int
	SuggestDescriptionShare int
}

// Load reads configuration from the environment (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	searchQueryTimeout, err := getEnvDuration("SEARCH_QUERY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	searchRateLimitWindow, err := getEnvDuration("SEARCH_RATE_LIMIT_WINDOW", "1m")
	if err != nil {
		return nil, err
	}
	suggestRateLimitWindow, err := getEnvDuration("SUGGEST_RATE_LIMIT_WINDOW", "1m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		SearchQueryTimeout:     searchQueryTimeout,
		SearchRateLimitMax:     getEnvInt("SEARCH_RATE_LIMIT_MAX", 30),
		SearchRateLimitWindow:  searchRateLimitWindow,
		SuggestRateLimitMax:    getEnvInt("SUGGEST_RATE_LIMIT_MAX", 20),
		SuggestRateLimitWindow: suggestRateLimitWindow,

		SuggestItemShare:        getEnvInt("SUGGEST_ITEM_SHARE", 40),
		SuggestLocationShare:    getEnvInt("SUGGEST_LOCATION_SHARE", 30),
		SuggestTagShare:         getEnvInt("SUGGEST_TAG_SHARE", 20),
		SuggestDescriptionShare: getEnvInt("SUGGEST_DESCRIPTION_SHARE", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if total := cfg.SuggestItemShare + cfg.SuggestLocationShare + cfg.SuggestTagShare + cfg.SuggestDescriptionShare; total != 100 {
		return nil, fmt.Errorf("suggestion budget shares must sum to 100, got %d", total)
	}

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool { return c.RedisURL != "" }

func (c *Config) GetSearchQueryTimeout() time.Duration { return c.SearchQueryTimeout }
func (c *Config) GetSearchRateLimitMax() int { return c.SearchRateLimitMax }
func (c *Config) GetSearchRateLimitWindow() time.Duration { return c.SearchRateLimitWindow }
func (c *Config) GetSuggestRateLimitMax() int { return c.SuggestRateLimitMax }
func (c *Config) GetSuggestRateLimitWindow() time.Duration { return c.SuggestRateLimitWindow }

func (c *Config) GetSuggestItemShare() int { return c.SuggestItemShare }
func (c *Config) GetSuggestLocationShare() int { return c.SuggestLocationShare }
func (c *Config) GetSuggestTagShare() int { return c.SuggestTagShare }
func (c *Config) GetSuggestDescriptionShare() int { return c.SuggestDescriptionShare }

// Compile-time interface checks.
var (
	_ DatabaseConfig  = (*Config)(nil)
	_ JWTConfig       = (*Config)(nil)
	_ HTTPConfig      = (*Config)(nil)
	_ SchedulerConfig = (*Config)(nil)
	_ SearchConfig    = (*Config)(nil)
	_ SuggestConfig   = (*Config)(nil)
)

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration rejects malformed values instead of falling back: a typo in
// a rate-limit window silently becoming zero would disable the limiter.
func getEnvDuration(key, fallback string) (time.Duration, error) {
	value := getEnv(key, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
