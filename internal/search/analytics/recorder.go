// Package analytics records search observability events. Recording is
// fire-and-forget: implementations must never block the response path, and
// their failures are logged and swallowed, never surfaced to the caller.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inventory_backend/internal/events"
	"inventory_backend/internal/scheduler"
	"inventory_backend/platform/logger"
)

// enqueueTimeout bounds the detached enqueue so a wedged redis connection
// cannot pile up goroutines indefinitely.
const enqueueTimeout = 2 * time.Second

// Event is one recorded search: query shape, method used, timing, result
// count. The query text itself is never recorded.
type Event struct {
	HouseholdID  uuid.UUID
	UserID       uuid.UUID
	QueryLength  int
	SearchMethod string
	ResultCount  int
	DurationMs   int64
	Suggestion   bool
}

// Recorder accepts analytics events from the request path.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// QueueRecorder hands events to the asynq queue; a worker persists them off
// the request path. Enqueue failures are logged and dropped.
type QueueRecorder struct {
	client *scheduler.Client
	log    *logger.Logger
}

// NewQueueRecorder creates a queue-backed recorder.
func NewQueueRecorder(client *scheduler.Client, log *logger.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, log: log}
}

// Record enqueues the event on a detached goroutine so the caller returns
// immediately. The enqueue deliberately outlives the request context: a
// response already sent must not abort its analytics.
func (r *QueueRecorder) Record(_ context.Context, ev Event) {
	payload := scheduler.SearchAnalyticsPayload{
		HouseholdID:  ev.HouseholdID.String(),
		UserID:       ev.UserID.String(),
		QueryLength:  ev.QueryLength,
		SearchMethod: ev.SearchMethod,
		ResultCount:  ev.ResultCount,
		DurationMs:   ev.DurationMs,
		Suggestion:   ev.Suggestion,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := r.client.EnqueueSearchAnalytics(ctx, payload); err != nil && r.log != nil {
			r.log.Warn("failed to enqueue search analytics", "error", err)
		}
	}()
}

// BusRecorder publishes events on the in-memory bus. Used when redis is not
// configured; the bus dispatches subscribers on detached goroutines.
type BusRecorder struct {
	bus events.Bus
}

// NewBusRecorder creates a bus-backed recorder.
func NewBusRecorder(bus events.Bus) *BusRecorder {
	return &BusRecorder{bus: bus}
}

// Record publishes the event asynchronously.
func (r *BusRecorder) Record(ctx context.Context, ev Event) {
	r.bus.Publish(ctx, events.SearchPerformed{
		BaseEvent:    events.NewBaseEvent(),
		HouseholdID:  ev.HouseholdID,
		UserID:       ev.UserID,
		QueryLength:  ev.QueryLength,
		SearchMethod: ev.SearchMethod,
		ResultCount:  ev.ResultCount,
		DurationMs:   ev.DurationMs,
		Suggestion:   ev.Suggestion,
	})
}

// NopRecorder discards all events. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}

var (
	_ Recorder = (*QueueRecorder)(nil)
	_ Recorder = (*BusRecorder)(nil)
	_ Recorder = NopRecorder{}
)
