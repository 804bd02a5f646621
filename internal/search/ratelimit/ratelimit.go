// Package ratelimit implements a per-user, per-action fixed-window request
// limiter for the search endpoints.
//
// This is a fixed-window counter, not a true sliding log: the first request
// in a window pins the reset time, later requests increment a counter, and
// the window resets wholesale once the reset time passes. A burst straddling
// a window boundary can therefore admit up to twice the nominal rate for an
// instant, which is acceptable here; edge precision is not a requirement.
package ratelimit

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Config bounds one action's request budget.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Result is the outcome of a single admission check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// sweepProbability is the chance any given Check also sweeps expired
// windows. Probabilistic cleanup instead of a timer: stale entries only
// cost memory, never correctness.
const sweepProbability = 0.01

type window struct {
	count     int
	resetTime time.Time
}

// Limiter tracks fixed windows keyed by (key, action). All state is guarded
// by one mutex so concurrent requests from the same user cannot race past
// the limit.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check admits or rejects one request for the given key and action.
// Buckets are namespaced per action, so exhausting one endpoint's quota
// never blocks another.
func (l *Limiter) Check(key, action string, cfg Config) Result {
	bucket := key + ":" + action
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if rand.Float64() < sweepProbability {
		l.sweepLocked(now)
	}

	w, ok := l.windows[bucket]
	if !ok || !now.Before(w.resetTime) {
		w = &window{count: 0, resetTime: now.Add(cfg.Window)}
		l.windows[bucket] = w
	}

	if w.count >= cfg.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetTime: w.resetTime}
	}

	w.count++
	return Result{
		Allowed:   true,
		Remaining: cfg.MaxRequests - w.count,
		ResetTime: w.resetTime,
	}
}

func (l *Limiter) sweepLocked(now time.Time) {
	for bucket, w := range l.windows {
		if !now.Before(w.resetTime) {
			delete(l.windows, bucket)
		}
	}
}

// Len reports the number of live windows. Exposed for tests and metrics.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
