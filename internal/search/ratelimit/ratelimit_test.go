package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(max int, window time.Duration) Config {
	return Config{MaxRequests: max, Window: window}
}

func TestCheckAllowsUpToLimit(t *testing.T) {
	l := New()
	cfg := testConfig(3, time.Minute)

	for i := 0; i < 3; i++ {
		result := l.Check("user-1", "search", cfg)
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if want := 3 - (i + 1); result.Remaining != want {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, result.Remaining, want)
		}
	}

	result := l.Check("user-1", "search", cfg)
	if result.Allowed {
		t.Fatal("request over the limit should be rejected")
	}
	if result.Remaining != 0 {
		t.Fatalf("rejected request remaining = %d, want 0", result.Remaining)
	}
	if result.ResetTime.IsZero() {
		t.Fatal("rejected request should carry the window reset time")
	}
}

func TestCheckResetsAfterWindow(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }
	cfg := testConfig(1, time.Minute)

	if !l.Check("user-1", "search", cfg).Allowed {
		t.Fatal("first request should be allowed")
	}
	if l.Check("user-1", "search", cfg).Allowed {
		t.Fatal("second request inside the window should be rejected")
	}

	now = now.Add(time.Minute)
	result := l.Check("user-1", "search", cfg)
	if !result.Allowed {
		t.Fatal("request after the window reset should be allowed")
	}
	if result.Remaining != 0 {
		t.Fatalf("fresh window remaining = %d, want 0", result.Remaining)
	}
}

func TestCheckIsolatesActions(t *testing.T) {
	l := New()
	cfg := testConfig(1, time.Minute)

	if !l.Check("user-1", "search", cfg).Allowed {
		t.Fatal("search request should be allowed")
	}
	if l.Check("user-1", "search", cfg).Allowed {
		t.Fatal("second search request should be rejected")
	}
	if !l.Check("user-1", "search-suggestions", cfg).Allowed {
		t.Fatal("exhausting search must not block suggestions")
	}
}

func TestCheckIsolatesUsers(t *testing.T) {
	l := New()
	cfg := testConfig(1, time.Minute)

	if !l.Check("user-1", "search", cfg).Allowed {
		t.Fatal("first user should be allowed")
	}
	if !l.Check("user-2", "search", cfg).Allowed {
		t.Fatal("second user has an independent window")
	}
}

func TestCheckConcurrentNeverExceedsLimit(t *testing.T) {
	l := New()
	cfg := testConfig(50, time.Minute)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("user-1", "search", cfg).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Fatalf("allowed %d concurrent requests, want exactly 50", got)
	}
}

func TestSweepRemovesExpiredWindows(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }
	cfg := testConfig(10, time.Minute)

	for i := 0; i < 20; i++ {
		l.Check(fmt.Sprintf("user-%d", i), "search", cfg)
	}
	if l.Len() != 20 {
		t.Fatalf("expected 20 live windows, got %d", l.Len())
	}

	now = now.Add(2 * time.Minute)
	l.mu.Lock()
	l.sweepLocked(now)
	l.mu.Unlock()

	if l.Len() != 0 {
		t.Fatalf("expected all windows swept, got %d", l.Len())
	}
}
