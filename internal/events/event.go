// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"inventory_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Search Domain Events
// =============================================================================

// SearchPerformed is published after every search request, successful or not.
// Subscribers persist it for observability; failures never reach the caller.
type SearchPerformed struct {
	BaseEvent
	HouseholdID  uuid.UUID `json:"householdId"`
	UserID       uuid.UUID `json:"userId"`
	QueryLength  int       `json:"queryLength"`
	SearchMethod string    `json:"searchMethod"`
	ResultCount  int       `json:"resultCount"`
	DurationMs   int64     `json:"durationMs"`
	Suggestion   bool      `json:"suggestion"`
}

func (e SearchPerformed) EventName() string { return "search.performed" }
