package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PhotoRow is one photo attached to an item.
type PhotoRow struct {
	ID           uuid.UUID
	ItemID       uuid.UUID
	URL          string
	ThumbnailURL *string
	IsPrimary    bool
}

// TagRow is one tag attached to an item.
type TagRow struct {
	ID     uuid.UUID
	ItemID uuid.UUID
	Name   string
}

// LocationRow is a storage location referenced by items.
type LocationRow struct {
	ID   uuid.UUID
	Name string
}

// PhotosForItems returns photos for the given items, keyed by item id.
// Primary photos sort first so clients can show them without re-sorting.
func (r *Repository) PhotosForItems(ctx context.Context, householdID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID][]PhotoRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.item_id, p.url, p.thumbnail_url, p.is_primary
		FROM item_photos p
		JOIN items i ON i.id = p.item_id
		WHERE i.household_id = $1 AND p.item_id = ANY($2)
		ORDER BY p.is_primary DESC, p.created_at ASC
	`, householdID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("photos query failed: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]PhotoRow)
	for rows.Next() {
		var p PhotoRow
		if err := rows.Scan(&p.ID, &p.ItemID, &p.URL, &p.ThumbnailURL, &p.IsPrimary); err != nil {
			return nil, err
		}
		result[p.ItemID] = append(result[p.ItemID], p)
	}
	return result, rows.Err()
}

// TagsForItems returns tags for the given items, keyed by item id.
func (r *Repository) TagsForItems(ctx context.Context, householdID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID][]TagRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, it.item_id, t.name
		FROM tags t
		JOIN item_tags it ON it.tag_id = t.id
		JOIN items i ON i.id = it.item_id
		WHERE i.household_id = $1 AND it.item_id = ANY($2)
		ORDER BY t.name ASC
	`, householdID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("tags query failed: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]TagRow)
	for rows.Next() {
		var t TagRow
		if err := rows.Scan(&t.ID, &t.ItemID, &t.Name); err != nil {
			return nil, err
		}
		result[t.ItemID] = append(result[t.ItemID], t)
	}
	return result, rows.Err()
}

// LocationsByID returns the referenced locations, keyed by location id.
func (r *Repository) LocationsByID(ctx context.Context, householdID uuid.UUID, locationIDs []uuid.UUID) (map[uuid.UUID]LocationRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.name
		FROM locations l
		WHERE l.household_id = $1 AND l.id = ANY($2)
	`, householdID, locationIDs)
	if err != nil {
		return nil, fmt.Errorf("locations query failed: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]LocationRow)
	for rows.Next() {
		var l LocationRow
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		result[l.ID] = l
	}
	return result, rows.Err()
}
