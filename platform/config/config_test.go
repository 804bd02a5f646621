package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/inventory_test")
	t.Setenv("JWT_ACCESS_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SearchQueryTimeout != 5*time.Second {
		t.Fatalf("query timeout = %v, want 5s", cfg.SearchQueryTimeout)
	}
	if cfg.SearchRateLimitWindow != time.Minute || cfg.SuggestRateLimitWindow != time.Minute {
		t.Fatalf("rate limit windows = %v/%v, want 1m/1m",
			cfg.SearchRateLimitWindow, cfg.SuggestRateLimitWindow)
	}
}

func TestLoadRejectsMalformedDurations(t *testing.T) {
	keys := []string{
		"SEARCH_QUERY_TIMEOUT",
		"SEARCH_RATE_LIMIT_WINDOW",
		"SUGGEST_RATE_LIMIT_WINDOW",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "sixty seconds")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected an error for malformed %s", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("error should name the offending variable, got %v", err)
			}
		})
	}
}

func TestLoadRejectsUnbalancedSuggestShares(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUGGEST_ITEM_SHARE", "50")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when the shares do not sum to 100")
	}
}
