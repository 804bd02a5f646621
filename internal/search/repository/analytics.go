package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SearchEventParams is one analytics record: query shape, method used,
// timing, and result count. No query text is stored, only its length.
type SearchEventParams struct {
	HouseholdID  uuid.UUID
	UserID       uuid.UUID
	QueryLength  int
	SearchMethod string
	ResultCount  int
	DurationMs   int64
	Suggestion   bool
}

// InsertSearchEvent persists one search analytics record.
func (r *Repository) InsertSearchEvent(ctx context.Context, params SearchEventParams) error {
	if params.HouseholdID == uuid.Nil {
		return fmt.Errorf("household_id is required")
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO search_analytics (household_id, user_id, query_length, search_method, result_count, duration_ms, is_suggestion)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, params.HouseholdID, params.UserID, params.QueryLength, params.SearchMethod, params.ResultCount, params.DurationMs, params.Suggestion)
	return err
}
