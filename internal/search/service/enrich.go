package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"inventory_backend/internal/search/repository"
	"inventory_backend/internal/search/transport"
)

// enrich attaches the requested relations to the ranked items. The queries
// run as an independent fan-out and join back by item id: the ranked order,
// count, and scores are never touched. Each source fails alone — a plain
// WaitGroup, not a shared-cancellation group, so one failed relation cannot
// abort its siblings mid-query. An item without photos or tags keeps an
// empty field; a missing location stays nil.
func (s *Service) enrich(ctx context.Context, householdID uuid.UUID, items []transport.RankedItem, req transport.SearchRequest) error {
	if len(items) == 0 {
		return nil
	}
	if !req.IncludePhotos && !req.IncludeTags && !req.IncludeLocation {
		return nil
	}

	itemIDs := make([]uuid.UUID, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	var (
		photos    map[uuid.UUID][]repository.PhotoRow
		tags      map[uuid.UUID][]repository.TagRow
		locations map[uuid.UUID]repository.LocationRow

		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	if req.IncludePhotos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := s.store.PhotosForItems(ctx, householdID, itemIDs)
			if err != nil {
				fail(err)
				return
			}
			photos = rows
		}()
	}
	if req.IncludeTags {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := s.store.TagsForItems(ctx, householdID, itemIDs)
			if err != nil {
				fail(err)
				return
			}
			tags = rows
		}()
	}
	if req.IncludeLocation {
		locationIDs := make([]uuid.UUID, 0, len(items))
		seen := make(map[uuid.UUID]bool)
		for _, item := range items {
			if item.LocationID != nil && !seen[*item.LocationID] {
				seen[*item.LocationID] = true
				locationIDs = append(locationIDs, *item.LocationID)
			}
		}
		if len(locationIDs) > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rows, err := s.store.LocationsByID(ctx, householdID, locationIDs)
				if err != nil {
					fail(err)
					return
				}
				locations = rows
			}()
		}
	}

	wg.Wait()
	err := errors.Join(errs...)

	for i := range items {
		if req.IncludePhotos {
			items[i].Photos = mapPhotos(photos[items[i].ID])
		}
		if req.IncludeTags {
			items[i].Tags = mapTags(tags[items[i].ID])
		}
		if req.IncludeLocation && items[i].LocationID != nil {
			if loc, ok := locations[*items[i].LocationID]; ok {
				items[i].Location = &transport.Location{ID: loc.ID, Name: loc.Name}
			}
		}
	}

	return err
}

func mapPhotos(rows []repository.PhotoRow) []transport.Photo {
	photos := make([]transport.Photo, len(rows))
	for i, row := range rows {
		photos[i] = transport.Photo{
			ID:        row.ID,
			URL:       row.URL,
			IsPrimary: row.IsPrimary,
		}
		if row.ThumbnailURL != nil {
			photos[i].ThumbnailURL = *row.ThumbnailURL
		}
	}
	return photos
}

func mapTags(rows []repository.TagRow) []transport.Tag {
	tags := make([]transport.Tag, len(rows))
	for i, row := range rows {
		tags[i] = transport.Tag{ID: row.ID, Name: row.Name}
	}
	return tags
}
