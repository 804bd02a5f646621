package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"inventory_backend/internal/search/analytics"
	"inventory_backend/internal/search/capability"
	"inventory_backend/internal/search/repository"
	"inventory_backend/internal/search/transport"
	"inventory_backend/platform/apperr"
	"inventory_backend/platform/logger"
)

type fixedStatus struct {
	status capability.ExtensionStatus
}

func (f fixedStatus) Status() capability.ExtensionStatus { return f.status }

var allCapable = fixedStatus{capability.ExtensionStatus{
	PgTrgm:                true,
	Unaccent:              true,
	FullTextSearchCapable: true,
}}

type fakeStore struct {
	fullTextRows []repository.ItemRow
	fullTextErr  error
	trigramRows  []repository.ItemRow
	trigramErr   error
	ilikeRows    []repository.ItemRow
	ilikeErr     error

	// fullTextFn, when set, overrides fullTextRows/fullTextErr so a test
	// can answer differently per query window.
	fullTextFn func(p repository.QueryParams) ([]repository.ItemRow, error)

	fullTextCalls int
	trigramCalls  int
	ilikeCalls    int

	photos    map[uuid.UUID][]repository.PhotoRow
	photosErr error
	tags      map[uuid.UUID][]repository.TagRow
	// tagsWait delays the tag query, honoring context cancellation in the
	// meantime, so tests can observe whether sibling failures abort it.
	tagsWait  time.Duration
	locations map[uuid.UUID]repository.LocationRow
}

func (f *fakeStore) FullTextSearch(_ context.Context, p repository.QueryParams) ([]repository.ItemRow, error) {
	f.fullTextCalls++
	if f.fullTextFn != nil {
		return f.fullTextFn(p)
	}
	return f.fullTextRows, f.fullTextErr
}

func (f *fakeStore) TrigramSearch(_ context.Context, _ repository.QueryParams) ([]repository.ItemRow, error) {
	f.trigramCalls++
	return f.trigramRows, f.trigramErr
}

func (f *fakeStore) ILikeSearch(_ context.Context, _ repository.QueryParams) ([]repository.ItemRow, error) {
	f.ilikeCalls++
	return f.ilikeRows, f.ilikeErr
}

func (f *fakeStore) PhotosForItems(_ context.Context, _ uuid.UUID, _ []uuid.UUID) (map[uuid.UUID][]repository.PhotoRow, error) {
	return f.photos, f.photosErr
}

func (f *fakeStore) TagsForItems(ctx context.Context, _ uuid.UUID, _ []uuid.UUID) (map[uuid.UUID][]repository.TagRow, error) {
	if f.tagsWait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.tagsWait):
		}
	}
	return f.tags, nil
}

func (f *fakeStore) LocationsByID(_ context.Context, _ uuid.UUID, _ []uuid.UUID) (map[uuid.UUID]repository.LocationRow, error) {
	return f.locations, nil
}

type captureRecorder struct {
	events []analytics.Event
}

func (c *captureRecorder) Record(_ context.Context, ev analytics.Event) {
	c.events = append(c.events, ev)
}

func newTestService(store Store, caps capability.StatusSource) *Service {
	return New(store, caps, analytics.NopRecorder{}, logger.New("development"), time.Second)
}

func itemRow(name string, score float64, total int64) repository.ItemRow {
	return repository.ItemRow{
		ID:        uuid.New(),
		Name:      name,
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Score:     score,
		Total:     total,
	}
}

func TestSearchUsesFullTextWhenCapable(t *testing.T) {
	store := &fakeStore{fullTextRows: []repository.ItemRow{itemRow("drill", 0.4, 1)}}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SearchMethod != transport.MethodFullText {
		t.Fatalf("searchMethod = %q, want %q", result.SearchMethod, transport.MethodFullText)
	}
	if store.trigramCalls != 0 || store.ilikeCalls != 0 {
		t.Fatal("successful full-text search must not touch other strategies")
	}
}

func TestSearchFallsBackOnStrategyError(t *testing.T) {
	store := &fakeStore{
		fullTextErr: errors.New("relation does not exist"),
		trigramRows: []repository.ItemRow{itemRow("drill", 0.6, 1)},
	}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SearchMethod != transport.MethodTrigram {
		t.Fatalf("searchMethod = %q, want %q", result.SearchMethod, transport.MethodTrigram)
	}
	if store.fullTextCalls != 1 || store.trigramCalls != 1 {
		t.Fatalf("each strategy runs at most once: fts=%d trigram=%d", store.fullTextCalls, store.trigramCalls)
	}
}

func TestSearchUnavailableWhenAllStrategiesFail(t *testing.T) {
	store := &fakeStore{
		fullTextErr: errors.New("boom"),
		trigramErr:  errors.New("boom"),
		ilikeErr:    errors.New("boom"),
	}
	svc := newTestService(store, allCapable)

	_, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err == nil {
		t.Fatal("expected an error when the chain is exhausted")
	}

	appErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Kind != apperr.KindUnavailable {
		t.Fatalf("kind = %v, want KindUnavailable", appErr.Kind)
	}
	if appErr.Code != apperr.CodeSearchUnavailable {
		t.Fatalf("code = %q, want %q", appErr.Code, apperr.CodeSearchUnavailable)
	}

	if store.fullTextCalls != 1 || store.trigramCalls != 1 || store.ilikeCalls != 1 {
		t.Fatalf("each strategy attempted exactly once: %d/%d/%d",
			store.fullTextCalls, store.trigramCalls, store.ilikeCalls)
	}
}

func TestSearchStartsAtConfiguredStrategy(t *testing.T) {
	store := &fakeStore{trigramRows: []repository.ItemRow{itemRow("drill", 0.5, 1)}}
	svc := newTestService(store, fixedStatus{capability.ExtensionStatus{PgTrgm: true}})

	// pg_trgm without full-text capability starts the chain at trigram.
	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SearchMethod != transport.MethodTrigram {
		t.Fatalf("searchMethod = %q, want %q", result.SearchMethod, transport.MethodTrigram)
	}
	if store.fullTextCalls != 0 {
		t.Fatal("full text must not run when the capability is absent")
	}
}

func TestSearchEmptyTextShortCircuits(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "   "})
	if err != nil {
		t.Fatalf("empty text is not an error: %v", err)
	}
	if len(result.Items) != 0 || result.TotalCount != 0 || result.HasMore {
		t.Fatalf("empty text must yield an empty result, got %+v", result)
	}
	if result.SearchMethod != transport.MethodFullText {
		t.Fatalf("empty result still reports the configured method, got %q", result.SearchMethod)
	}
	if store.fullTextCalls+store.trigramCalls+store.ilikeCalls != 0 {
		t.Fatal("empty text must not reach the data store")
	}
}

func TestSearchRejectsInvalidRequests(t *testing.T) {
	long := make([]byte, maxQueryLength+1)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name string
		req  transport.SearchRequest
	}{
		{"overlong text", transport.SearchRequest{Text: string(long)}},
		{"limit too high", transport.SearchRequest{Text: "drill", Limit: 101}},
		{"negative offset", transport.SearchRequest{Text: "drill", Offset: -1}},
		{"inverted value range", transport.SearchRequest{
			Text: "drill",
			Filters: transport.SearchFilters{ValueRange: &transport.ValueRange{
				MinCents: int64Ptr(100), MaxCents: int64Ptr(50),
			}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := newTestService(store, allCapable)

			_, err := svc.Search(context.Background(), uuid.New(), uuid.New(), tc.req)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
			if store.fullTextCalls+store.trigramCalls+store.ilikeCalls != 0 {
				t.Fatal("invalid requests must be rejected before any data-store call")
			}
		})
	}
}

func TestSearchRequiresHouseholdScope(t *testing.T) {
	svc := newTestService(&fakeStore{}, allCapable)

	_, err := svc.Search(context.Background(), uuid.Nil, uuid.New(), transport.SearchRequest{Text: "drill"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected a forbidden error for missing scope, got %v", err)
	}
}

func TestFullTextScoresNormalizedByPageMax(t *testing.T) {
	store := &fakeStore{fullTextRows: []repository.ItemRow{
		itemRow("drill", 4.0, 3),
		itemRow("drill bits", 2.0, 3),
		itemRow("hand drill", 1.0, 3),
	}}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{1.0, 0.5, 0.25}
	for i, item := range result.Items {
		if item.RelevanceScore != want[i] {
			t.Fatalf("item %d score = %v, want %v", i, item.RelevanceScore, want[i])
		}
	}
}

func TestFullTextWeakScoresStillNormalizedByPageMax(t *testing.T) {
	// Short queries yield tiny raw ts_rank values. The divisor is the page
	// maximum even when it sits well below 1.0, so the best match of the
	// page always scores 1.0 and the rest scale relative to it.
	store := &fakeStore{fullTextRows: []repository.ItemRow{
		itemRow("drill", 0.06, 2),
		itemRow("drill bits", 0.03, 2),
	}}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Items[0].RelevanceScore != 1.0 {
		t.Fatalf("top score = %v, want 1.0", result.Items[0].RelevanceScore)
	}
	if got := result.Items[1].RelevanceScore; math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("second score = %v, want 0.5", got)
	}
}

func TestTrigramScoresPassThrough(t *testing.T) {
	store := &fakeStore{trigramRows: []repository.ItemRow{itemRow("dril", 0.73, 1)}}
	svc := newTestService(store, fixedStatus{capability.ExtensionStatus{PgTrgm: true}})

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Items[0].RelevanceScore != 0.73 {
		t.Fatalf("trigram score = %v, want 0.73", result.Items[0].RelevanceScore)
	}
}

func TestILikeScoresAreBinary(t *testing.T) {
	store := &fakeStore{ilikeRows: []repository.ItemRow{
		itemRow("drill", 1.0, 2),
		itemRow("drill press", 1.0, 2),
	}}
	svc := newTestService(store, fixedStatus{capability.ExtensionStatus{}})

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, item := range result.Items {
		if item.RelevanceScore != 1.0 {
			t.Fatalf("item %d score = %v, want 1.0", i, item.RelevanceScore)
		}
	}
	if result.SearchMethod != transport.MethodILike {
		t.Fatalf("searchMethod = %q, want %q", result.SearchMethod, transport.MethodILike)
	}
}

func TestHasMoreFollowsWindowTotal(t *testing.T) {
	cases := []struct {
		name    string
		offset  int
		rows    int
		total   int64
		hasMore bool
	}{
		{"first page of many", 0, 20, 50, true},
		{"last partial page", 40, 10, 50, false},
		{"exact fit", 0, 50, 50, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := make([]repository.ItemRow, tc.rows)
			for i := range rows {
				rows[i] = itemRow("item", 0.5, tc.total)
			}
			store := &fakeStore{fullTextRows: rows}
			svc := newTestService(store, allCapable)

			result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{
				Text: "item", Limit: 50, Offset: tc.offset,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.TotalCount != tc.total {
				t.Fatalf("totalCount = %d, want %d", result.TotalCount, tc.total)
			}
			if result.HasMore != tc.hasMore {
				t.Fatalf("hasMore = %v, want %v", result.HasMore, tc.hasMore)
			}
		})
	}
}

func TestTotalCountReportedWhenOffsetPastLastMatch(t *testing.T) {
	// Seven matches exist but the client paged to offset 40: the page comes
	// back empty, so the total is recovered from the first page instead of
	// being reported as zero.
	store := &fakeStore{
		fullTextFn: func(p repository.QueryParams) ([]repository.ItemRow, error) {
			if p.Offset > 0 {
				return nil, nil
			}
			return []repository.ItemRow{itemRow("drill", 0.9, 7)}, nil
		},
	}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{
		Text: "drill", Limit: 20, Offset: 40,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatalf("page past the end must be empty, got %d items", len(result.Items))
	}
	if result.TotalCount != 7 {
		t.Fatalf("totalCount = %d, want 7", result.TotalCount)
	}
	if result.HasMore {
		t.Fatal("hasMore must be false when the offset is past the last match")
	}
}

func TestEnrichmentPreservesOrderAndAttachesRelations(t *testing.T) {
	locID := uuid.New()
	rows := []repository.ItemRow{
		itemRow("drill", 0.9, 3),
		itemRow("drill bits", 0.6, 3),
		itemRow("hand drill", 0.3, 3),
	}
	rows[1].LocationID = &locID

	store := &fakeStore{
		fullTextRows: rows,
		photos: map[uuid.UUID][]repository.PhotoRow{
			rows[0].ID: {{ID: uuid.New(), ItemID: rows[0].ID, URL: "https://cdn/p1.jpg", IsPrimary: true}},
		},
		tags: map[uuid.UUID][]repository.TagRow{
			rows[2].ID: {{ID: uuid.New(), ItemID: rows[2].ID, Name: "tools"}},
		},
		locations: map[uuid.UUID]repository.LocationRow{
			locID: {ID: locID, Name: "Garage"},
		},
	}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{
		Text:            "drill",
		IncludePhotos:   true,
		IncludeTags:     true,
		IncludeLocation: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("enrichment changed the result count: %d", len(result.Items))
	}
	for i, row := range rows {
		if result.Items[i].ID != row.ID {
			t.Fatalf("enrichment reordered results at position %d", i)
		}
	}
	if len(result.Items[0].Photos) != 1 || !result.Items[0].Photos[0].IsPrimary {
		t.Fatalf("first item should carry its primary photo, got %+v", result.Items[0].Photos)
	}
	if len(result.Items[2].Tags) != 1 || result.Items[2].Tags[0].Name != "tools" {
		t.Fatalf("third item should carry its tag, got %+v", result.Items[2].Tags)
	}
	if result.Items[1].Location == nil || result.Items[1].Location.Name != "Garage" {
		t.Fatalf("second item should carry its location, got %+v", result.Items[1].Location)
	}
	if result.Items[0].Location != nil {
		t.Fatal("items without a location id stay unlocated")
	}
}

func TestEnrichmentFailureDoesNotFailSearch(t *testing.T) {
	store := &fakeStore{
		fullTextRows: []repository.ItemRow{itemRow("drill", 0.9, 1)},
		photosErr:    errors.New("photos table is on fire"),
	}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{
		Text:          "drill",
		IncludePhotos: true,
	})
	if err != nil {
		t.Fatalf("enrichment failure must not fail the search: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("ranked results survive enrichment failure, got %d items", len(result.Items))
	}
}

func TestEnrichmentSourcesFailIndependently(t *testing.T) {
	locID := uuid.New()
	row := itemRow("drill", 0.9, 1)
	row.LocationID = &locID

	// Photos fail immediately while tags are still in flight: the slower
	// sources must finish and attach their relations regardless.
	store := &fakeStore{
		fullTextRows: []repository.ItemRow{row},
		photosErr:    errors.New("photos table is on fire"),
		tags: map[uuid.UUID][]repository.TagRow{
			row.ID: {{ID: uuid.New(), ItemID: row.ID, Name: "tools"}},
		},
		tagsWait: 20 * time.Millisecond,
		locations: map[uuid.UUID]repository.LocationRow{
			locID: {ID: locID, Name: "Garage"},
		},
	}
	svc := newTestService(store, allCapable)

	result, err := svc.Search(context.Background(), uuid.New(), uuid.New(), transport.SearchRequest{
		Text:            "drill",
		IncludePhotos:   true,
		IncludeTags:     true,
		IncludeLocation: true,
	})
	if err != nil {
		t.Fatalf("enrichment failure must not fail the search: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("ranked results survive enrichment failure, got %d items", len(result.Items))
	}
	if len(result.Items[0].Tags) != 1 || result.Items[0].Tags[0].Name != "tools" {
		t.Fatalf("tags must survive a failed sibling source, got %+v", result.Items[0].Tags)
	}
	if result.Items[0].Location == nil || result.Items[0].Location.Name != "Garage" {
		t.Fatalf("location must survive a failed sibling source, got %+v", result.Items[0].Location)
	}
	if len(result.Items[0].Photos) != 0 {
		t.Fatalf("failed source leaves its field empty, got %+v", result.Items[0].Photos)
	}
}

func TestSearchRecordsAnalytics(t *testing.T) {
	store := &fakeStore{fullTextRows: []repository.ItemRow{itemRow("drill", 0.9, 1)}}
	rec := &captureRecorder{}
	svc := New(store, allCapable, rec, logger.New("development"), time.Second)

	householdID, userID := uuid.New(), uuid.New()
	_, err := svc.Search(context.Background(), householdID, userID, transport.SearchRequest{Text: "drill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("expected one analytics event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.HouseholdID != householdID || ev.UserID != userID {
		t.Fatal("analytics event carries the wrong identity")
	}
	if ev.QueryLength != len("drill") || ev.SearchMethod != transport.MethodFullText || ev.ResultCount != 1 {
		t.Fatalf("analytics event fields wrong: %+v", ev)
	}
	if ev.Suggestion {
		t.Fatal("plain search must not be flagged as a suggestion")
	}
}

func int64Ptr(v int64) *int64 { return &v }
