package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// NameCount is a distinct name with the number of rows carrying it.
type NameCount struct {
	Name  string
	Count int
}

// ItemNameSuggestions returns distinct item names with a matching prefix,
// most frequent first.
func (r *Repository) ItemNameSuggestions(ctx context.Context, householdID uuid.UUID, text string, limit int) ([]NameCount, error) {
	return r.nameCounts(ctx, `
		SELECT i.name, COUNT(*)::int AS cnt
		FROM items i
		WHERE i.household_id = $1 AND i.name ILIKE $2
		GROUP BY i.name
		ORDER BY cnt DESC, i.name ASC
		LIMIT $3
	`, householdID, escapeLike(text)+"%", limit)
}

// LocationNameSuggestions returns matching location names with the number of
// items stored there.
func (r *Repository) LocationNameSuggestions(ctx context.Context, householdID uuid.UUID, text string, limit int) ([]NameCount, error) {
	return r.nameCounts(ctx, `
		SELECT l.name, COUNT(i.id)::int AS cnt
		FROM locations l
		LEFT JOIN items i ON i.location_id = l.id
		WHERE l.household_id = $1 AND l.name ILIKE $2
		GROUP BY l.name
		ORDER BY cnt DESC, l.name ASC
		LIMIT $3
	`, householdID, escapeLike(text)+"%", limit)
}

// TagNameSuggestions returns matching tag names with the number of tagged items.
func (r *Repository) TagNameSuggestions(ctx context.Context, householdID uuid.UUID, text string, limit int) ([]NameCount, error) {
	return r.nameCounts(ctx, `
		SELECT t.name, COUNT(it.item_id)::int AS cnt
		FROM tags t
		LEFT JOIN item_tags it ON it.tag_id = t.id
		WHERE t.household_id = $1 AND t.name ILIKE $2
		GROUP BY t.name
		ORDER BY cnt DESC, t.name ASC
		LIMIT $3
	`, householdID, escapeLike(text)+"%", limit)
}

// descriptionSampleLimit bounds how many matching descriptions are pulled for
// client-side keyword extraction.
const descriptionSampleLimit = 50

// MatchingDescriptions returns raw description text containing the query as a
// substring. Keyword extraction happens in the service; descriptions are
// unstructured so there is no useful structured match to rank here.
func (r *Repository) MatchingDescriptions(ctx context.Context, householdID uuid.UUID, text string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.description
		FROM items i
		WHERE i.household_id = $1 AND i.description ILIKE $2
		ORDER BY i.updated_at DESC
		LIMIT $3
	`, householdID, "%"+escapeLike(text)+"%", descriptionSampleLimit)
	if err != nil {
		return nil, fmt.Errorf("description suggestions query failed: %w", err)
	}
	defer rows.Close()

	descriptions := make([]string, 0)
	for rows.Next() {
		var d *string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		if d != nil && *d != "" {
			descriptions = append(descriptions, *d)
		}
	}
	return descriptions, rows.Err()
}

func (r *Repository) nameCounts(ctx context.Context, query string, householdID uuid.UUID, pattern string, limit int) ([]NameCount, error) {
	rows, err := r.pool.Query(ctx, query, householdID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("suggestion query failed: %w", err)
	}
	defer rows.Close()

	results := make([]NameCount, 0)
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		results = append(results, nc)
	}
	return results, rows.Err()
}
