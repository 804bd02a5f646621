package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"inventory_backend/internal/search/analytics"
	"inventory_backend/internal/search/repository"
	"inventory_backend/internal/search/transport"
	"inventory_backend/platform/apperr"
	"inventory_backend/platform/logger"
)

// Suggestion source types.
const (
	SuggestionTypeItem        = "item"
	SuggestionTypeLocation    = "location"
	SuggestionTypeTag         = "tag"
	SuggestionTypeDescription = "description"
)

// Per-source base scores. Structured name matches rank above keyword hits
// scraped from unstructured description text.
const (
	itemBaseScore        = 1.0
	locationBaseScore    = 0.9
	tagBaseScore         = 0.8
	descriptionBaseScore = 0.5
)

const (
	defaultSuggestionLimit = 10
	maxSuggestionLimit     = 50
)

// SuggestionStore is the per-source query surface.
type SuggestionStore interface {
	ItemNameSuggestions(ctx context.Context, householdID uuid.UUID, text string, limit int) ([]repository.NameCount, error)
	LocationNameSuggestions(ctx context.Context, householdID uuid.UUID, text string, limit int) ([]repository.NameCount, error)
	TagNameSuggestions(ctx context.Context, householdID uuid.UUID, text string, limit int) ([]repository.NameCount, error)
	MatchingDescriptions(ctx context.Context, householdID uuid.UUID, text string) ([]string, error)
}

// Budget is the proportional result share per source, in percent. A fixed
// split keeps any single source from crowding out the others; the values
// are configuration, not derived optima.
type Budget struct {
	ItemShare        int
	LocationShare    int
	TagShare         int
	DescriptionShare int
}

// DefaultBudget is the 40/30/20/10 split.
var DefaultBudget = Budget{ItemShare: 40, LocationShare: 30, TagShare: 20, DescriptionShare: 10}

// Suggester produces ranked, deduplicated autocomplete suggestions from up
// to four entity sources queried in parallel.
type Suggester struct {
	store    SuggestionStore
	recorder analytics.Recorder
	log      *logger.Logger
	budget   Budget
}

func NewSuggester(store SuggestionStore, recorder analytics.Recorder, log *logger.Logger, budget Budget) *Suggester {
	if budget == (Budget{}) {
		budget = DefaultBudget
	}
	return &Suggester{store: store, recorder: recorder, log: log, budget: budget}
}

// Suggest generates suggestions for the given text within the household
// scope. A failing source contributes nothing rather than failing the
// request; only all-sources failure would yield an empty list.
func (s *Suggester) Suggest(ctx context.Context, householdID, userID uuid.UUID, text string, limit int, types []string) (*transport.SuggestionResult, error) {
	start := time.Now()

	if householdID == uuid.Nil {
		return nil, apperr.Forbidden("household scope is required").WithOp("search.Suggest")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("suggestion text is required").WithOp("search.Suggest")
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}

	wanted := wantedTypes(types)

	var (
		itemResults     []repository.NameCount
		locationResults []repository.NameCount
		tagResults      []repository.NameCount
		descriptions    []string
	)

	g, gctx := errgroup.WithContext(ctx)

	if wanted[SuggestionTypeItem] {
		budget := shareOf(limit, s.budget.ItemShare)
		g.Go(func() error {
			var err error
			itemResults, err = s.store.ItemNameSuggestions(gctx, householdID, text, budget)
			if err != nil {
				s.log.DatabaseError("suggest.items", err)
			}
			return nil
		})
	}
	if wanted[SuggestionTypeLocation] {
		budget := shareOf(limit, s.budget.LocationShare)
		g.Go(func() error {
			var err error
			locationResults, err = s.store.LocationNameSuggestions(gctx, householdID, text, budget)
			if err != nil {
				s.log.DatabaseError("suggest.locations", err)
			}
			return nil
		})
	}
	if wanted[SuggestionTypeTag] {
		budget := shareOf(limit, s.budget.TagShare)
		g.Go(func() error {
			var err error
			tagResults, err = s.store.TagNameSuggestions(gctx, householdID, text, budget)
			if err != nil {
				s.log.DatabaseError("suggest.tags", err)
			}
			return nil
		})
	}
	if wanted[SuggestionTypeDescription] {
		g.Go(func() error {
			var err error
			descriptions, err = s.store.MatchingDescriptions(gctx, householdID, text)
			if err != nil {
				s.log.DatabaseError("suggest.descriptions", err)
			}
			return nil
		})
	}

	_ = g.Wait()

	candidates := make([]transport.SearchSuggestion, 0, limit*2)
	candidates = append(candidates, scoreSource(itemResults, SuggestionTypeItem, itemBaseScore)...)
	candidates = append(candidates, scoreSource(locationResults, SuggestionTypeLocation, locationBaseScore)...)
	candidates = append(candidates, scoreSource(tagResults, SuggestionTypeTag, tagBaseScore)...)
	candidates = append(candidates, descriptionKeywords(descriptions, text, shareOf(limit, s.budget.DescriptionShare))...)

	merged := mergeSuggestions(candidates)
	hasMore := len(merged) > limit
	if hasMore {
		merged = merged[:limit]
	}

	result := &transport.SuggestionResult{
		Suggestions:    merged,
		HasMore:        hasMore,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}

	s.recorder.Record(ctx, analytics.Event{
		HouseholdID:  householdID,
		UserID:       userID,
		QueryLength:  len(text),
		SearchMethod: "suggestions",
		ResultCount:  len(merged),
		DurationMs:   result.ResponseTimeMs,
		Suggestion:   true,
	})

	return result, nil
}

func wantedTypes(types []string) map[string]bool {
	wanted := map[string]bool{}
	for _, t := range types {
		switch strings.TrimSpace(strings.ToLower(t)) {
		case SuggestionTypeItem, SuggestionTypeLocation, SuggestionTypeTag, SuggestionTypeDescription:
			wanted[strings.TrimSpace(strings.ToLower(t))] = true
		}
	}
	if len(wanted) == 0 {
		return map[string]bool{
			SuggestionTypeItem:        true,
			SuggestionTypeLocation:    true,
			SuggestionTypeTag:         true,
			SuggestionTypeDescription: true,
		}
	}
	return wanted
}

// shareOf converts a percentage share of the limit into a per-source result
// budget, always granting at least one slot to a non-zero share.
func shareOf(limit, share int) int {
	if share <= 0 {
		return 0
	}
	n := limit * share / 100
	if n < 1 {
		n = 1
	}
	return n
}

// scoreSource assigns a decreasing score by rank position within a source.
func scoreSource(rows []repository.NameCount, suggestionType string, base float64) []transport.SearchSuggestion {
	suggestions := make([]transport.SearchSuggestion, len(rows))
	for i, row := range rows {
		suggestions[i] = transport.SearchSuggestion{
			Text:  row.Name,
			Type:  suggestionType,
			Count: row.Count,
			Score: positionScore(base, i),
		}
	}
	return suggestions
}

func positionScore(base float64, index int) float64 {
	score := base - float64(index)*0.1
	if score < 0.1 {
		return 0.1
	}
	return score
}

// descriptionKeywords extracts candidate words from unstructured description
// text. This is the weakest signal: no structured match exists, so words are
// split client-side and ranked by frequency.
func descriptionKeywords(descriptions []string, text string, budget int) []transport.SearchSuggestion {
	if budget == 0 || len(descriptions) == 0 {
		return nil
	}

	prefix := strings.ToLower(text)
	freq := make(map[string]int)
	for _, desc := range descriptions {
		words := strings.FieldsFunc(desc, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			lower := strings.ToLower(word)
			if len(lower) >= 3 && strings.HasPrefix(lower, prefix) {
				freq[lower]++
			}
		}
	}
	if len(freq) == 0 {
		return nil
	}

	keywords := make([]repository.NameCount, 0, len(freq))
	for word, count := range freq {
		keywords = append(keywords, repository.NameCount{Name: word, Count: count})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Name < keywords[j].Name
	})
	if len(keywords) > budget {
		keywords = keywords[:budget]
	}

	return scoreSource(keywords, SuggestionTypeDescription, descriptionBaseScore)
}

// mergeSuggestions deduplicates by (text, type): the max score wins and
// counts are summed. The merged list is re-sorted globally by score.
func mergeSuggestions(candidates []transport.SearchSuggestion) []transport.SearchSuggestion {
	type key struct {
		text string
		typ  string
	}
	byKey := make(map[key]transport.SearchSuggestion, len(candidates))
	order := make([]key, 0, len(candidates))

	for _, c := range candidates {
		k := key{text: c.Text, typ: c.Type}
		existing, ok := byKey[k]
		if !ok {
			byKey[k] = c
			order = append(order, k)
			continue
		}
		existing.Count += c.Count
		if c.Score > existing.Score {
			existing.Score = c.Score
		}
		byKey[k] = existing
	}

	merged := make([]transport.SearchSuggestion, 0, len(byKey))
	for _, k := range order {
		merged = append(merged, byKey[k])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].Count != merged[j].Count {
			return merged[i].Count > merged[j].Count
		}
		return merged[i].Text < merged[j].Text
	})

	return merged
}
