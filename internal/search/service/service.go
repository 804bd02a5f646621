// Package service orchestrates the search request: validation, strategy
// fallback, score normalization, enrichment, and analytics recording.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"inventory_backend/internal/search/analytics"
	"inventory_backend/internal/search/capability"
	"inventory_backend/internal/search/repository"
	"inventory_backend/internal/search/transport"
	"inventory_backend/platform/apperr"
	"inventory_backend/platform/logger"
)

const (
	maxQueryLength = 500
	defaultLimit   = 20
	maxLimit       = 100
)

// Store is the strategy and enrichment query surface the service needs.
// Tests inject fakes with per-stage failures to exercise the fallback chain
// without a data store.
type Store interface {
	FullTextSearch(ctx context.Context, p repository.QueryParams) ([]repository.ItemRow, error)
	TrigramSearch(ctx context.Context, p repository.QueryParams) ([]repository.ItemRow, error)
	ILikeSearch(ctx context.Context, p repository.QueryParams) ([]repository.ItemRow, error)
	PhotosForItems(ctx context.Context, householdID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID][]repository.PhotoRow, error)
	TagsForItems(ctx context.Context, householdID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID][]repository.TagRow, error)
	LocationsByID(ctx context.Context, householdID uuid.UUID, locationIDs []uuid.UUID) (map[uuid.UUID]repository.LocationRow, error)
}

type Service struct {
	store        Store
	capabilities capability.StatusSource
	recorder     analytics.Recorder
	log          *logger.Logger
	queryTimeout time.Duration
}

func New(store Store, capabilities capability.StatusSource, recorder analytics.Recorder, log *logger.Logger, queryTimeout time.Duration) *Service {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Service{
		store:        store,
		capabilities: capabilities,
		recorder:     recorder,
		log:          log,
		queryTimeout: queryTimeout,
	}
}

// Search runs the full pipeline for one request under the given household
// scope. The scope is mandatory: it becomes a predicate of every strategy
// query, never just an API-edge check.
func (s *Service) Search(ctx context.Context, householdID, userID uuid.UUID, req transport.SearchRequest) (*transport.SearchResult, error) {
	start := time.Now()

	if householdID == uuid.Nil {
		return nil, apperr.Forbidden("household scope is required").WithOp("search.Search")
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	cfg := capability.Resolve(s.capabilities.Status())
	strat := StartStrategy(cfg)

	text := strings.TrimSpace(req.Text)
	if text == "" {
		result := &transport.SearchResult{
			Items:          []transport.RankedItem{},
			TotalCount:     0,
			SearchMethod:   strat.Method(),
			HasMore:        false,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
		return result, nil
	}

	params, err := buildQueryParams(householdID, text, req, cfg)
	if err != nil {
		return nil, err
	}

	rows, used, err := s.executeWithFallback(ctx, params, strat)
	if err != nil {
		return nil, err
	}

	items := normalize(rows, used)
	var total int64
	if len(rows) > 0 {
		total = rows[0].Total
	} else if req.Offset > 0 {
		// The window total rides on the rows; an offset past the last match
		// returns none, so recover the count from the first page.
		total = s.countBeyondWindow(ctx, params, used)
	}

	if err := s.enrich(ctx, householdID, items, req); err != nil {
		// Enrichment is best-effort; a failed relation leaves the field
		// empty and the ranked list untouched.
		s.log.DatabaseError("search.enrich", err)
	}

	result := &transport.SearchResult{
		Items:          items,
		TotalCount:     total,
		SearchMethod:   used.Method(),
		HasMore:        int64(req.Offset+len(items)) < total,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}

	s.recorder.Record(ctx, analytics.Event{
		HouseholdID:  householdID,
		UserID:       userID,
		QueryLength:  len(text),
		SearchMethod: used.Method(),
		ResultCount:  len(items),
		DurationMs:   result.ResponseTimeMs,
	})

	return result, nil
}

// executeWithFallback walks the strategy chain. Each state runs at most once
// under its own timeout; a query error or timeout advances to the next
// state, and only exhaustion of the chain surfaces an error.
func (s *Service) executeWithFallback(ctx context.Context, params repository.QueryParams, start Strategy) ([]repository.ItemRow, Strategy, error) {
	strat := start
	for {
		queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		rows, err := s.runStrategy(queryCtx, strat, params)
		cancel()

		if err == nil {
			return rows, strat, nil
		}

		// Caller gone: abandon instead of burning the remaining strategies.
		if ctx.Err() != nil {
			appErr := apperr.Internal("search cancelled").WithOp("search.executeWithFallback")
			appErr.Err = ctx.Err()
			return nil, strat, appErr
		}

		next, ok := strat.Next()
		if !ok {
			appErr := apperr.Unavailable("search is currently unavailable").
				WithCode(apperr.CodeSearchUnavailable).
				WithOp("search.executeWithFallback")
			appErr.Err = err
			return nil, strat, appErr
		}

		s.log.SearchFallback(strat.Method(), next.Method(), err)
		strat = next
	}
}

// countBeyondWindow re-runs the winning strategy for a single row at offset
// zero to read the COUNT(*) OVER() total when the requested page was empty.
// Best-effort: a failure reports zero matches rather than failing the search.
func (s *Service) countBeyondWindow(ctx context.Context, params repository.QueryParams, strat Strategy) int64 {
	firstPage := params
	firstPage.Offset = 0
	firstPage.Limit = 1

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.runStrategy(queryCtx, strat, firstPage)
	if err != nil {
		s.log.DatabaseError("search.countBeyondWindow", err)
		return 0
	}
	if len(rows) == 0 {
		return 0
	}
	return rows[0].Total
}

func (s *Service) runStrategy(ctx context.Context, strat Strategy, params repository.QueryParams) ([]repository.ItemRow, error) {
	switch strat {
	case StrategyFullText:
		return s.store.FullTextSearch(ctx, params)
	case StrategyTrigram:
		return s.store.TrigramSearch(ctx, params)
	default:
		return s.store.ILikeSearch(ctx, params)
	}
}

// normalize maps raw strategy scores onto the strategy-agnostic [0,1] scale.
// Full-text ts_rank values are divided by the maximum score observed in the
// page (1.0 when the page is empty), so the page's best match always scores
// 1.0 and short queries don't produce unexplainably low scores. Trigram
// similarity is already in [0,1] and passes through; ILIKE matches are
// binary 1.0. Scores are only comparable within one response.
func normalize(rows []repository.ItemRow, strat Strategy) []transport.RankedItem {
	items := make([]transport.RankedItem, len(rows))

	maxScore := 0.0
	if strat == StrategyFullText {
		for _, row := range rows {
			if row.Score > maxScore {
				maxScore = row.Score
			}
		}
	}
	if maxScore <= 0 {
		maxScore = 1.0
	}

	for i, row := range rows {
		score := row.Score
		if strat == StrategyFullText {
			score = row.Score / maxScore
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}

		item := transport.RankedItem{
			ID:             row.ID,
			Name:           row.Name,
			Status:         row.Status,
			ValueCents:     row.ValueCents,
			LocationID:     row.LocationID,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			RelevanceScore: score,
		}
		if row.Description != nil {
			item.Description = *row.Description
		}
		items[i] = item
	}

	return items
}

func validateRequest(req *transport.SearchRequest) error {
	fields := map[string]string{}
	if len(req.Text) > maxQueryLength {
		fields["text"] = "must be at most 500 characters"
	}
	if req.Limit < 0 || req.Limit > maxLimit {
		fields["limit"] = "must be between 1 and 100"
	}
	if req.Offset < 0 {
		fields["offset"] = "must be non-negative"
	}
	if req.Filters.ValueRange != nil {
		vr := req.Filters.ValueRange
		if vr.MinCents != nil && vr.MaxCents != nil && *vr.MinCents > *vr.MaxCents {
			fields["filters.valueRange"] = "minCents must not exceed maxCents"
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid search query").WithDetails(fields).WithOp("search.validate")
	}

	if req.Limit == 0 {
		req.Limit = defaultLimit
	}
	return nil
}

func buildQueryParams(householdID uuid.UUID, text string, req transport.SearchRequest, cfg capability.SearchConfiguration) (repository.QueryParams, error) {
	params := repository.QueryParams{
		HouseholdID: householdID,
		Text:        text,
		Limit:       req.Limit,
		Offset:      req.Offset,
		Statuses:    req.Filters.Statuses,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
		UseUnaccent: cfg.UseUnaccent,
	}
	if req.Filters.ValueRange != nil {
		params.MinValueCents = req.Filters.ValueRange.MinCents
		params.MaxValueCents = req.Filters.ValueRange.MaxCents
	}
	for _, raw := range req.Filters.LocationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return repository.QueryParams{}, apperr.Validation("invalid location id").
				WithDetails(map[string]string{"filters.locationIds": raw}).
				WithOp("search.buildQueryParams")
		}
		params.LocationIDs = append(params.LocationIDs, id)
	}
	return params, nil
}
