package analytics

import (
	"context"

	"inventory_backend/internal/events"
	"inventory_backend/internal/search/repository"
	"inventory_backend/platform/logger"
)

// RegisterPersistence subscribes a handler that writes SearchPerformed
// events to the analytics table. Used with the BusRecorder when no queue is
// configured.
func RegisterPersistence(bus events.Bus, repo *repository.Repository, log *logger.Logger) {
	bus.Subscribe(events.SearchPerformed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.SearchPerformed)
		if !ok {
			return nil
		}
		err := repo.InsertSearchEvent(ctx, repository.SearchEventParams{
			HouseholdID:  e.HouseholdID,
			UserID:       e.UserID,
			QueryLength:  e.QueryLength,
			SearchMethod: e.SearchMethod,
			ResultCount:  e.ResultCount,
			DurationMs:   e.DurationMs,
			Suggestion:   e.Suggestion,
		})
		if err != nil && log != nil {
			log.DatabaseError("analytics.InsertSearchEvent", err)
		}
		// Analytics failures never propagate.
		return nil
	}))
}
