package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func baseParams() QueryParams {
	return QueryParams{
		HouseholdID: uuid.New(),
		Text:        "drill",
		Limit:       20,
		Offset:      0,
	}
}

func TestStrategyQueriesAreHouseholdScoped(t *testing.T) {
	builders := map[string]func(QueryParams) (string, []any){
		"full_text": buildFullTextQuery,
		"trigram":   buildTrigramQuery,
		"ilike":     buildILikeQuery,
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			p := baseParams()
			query, args := build(p)
			lower := strings.ToLower(query)

			if !strings.Contains(lower, "i.household_id = $") {
				t.Fatalf("%s query is missing the household scope predicate:\n%s", name, query)
			}

			found := false
			for _, arg := range args {
				if id, ok := arg.(uuid.UUID); ok && id == p.HouseholdID {
					found = true
				}
			}
			if !found {
				t.Fatalf("%s query arguments do not include the household id", name)
			}
		})
	}
}

func TestScopePredicateComesFirst(t *testing.T) {
	p := baseParams()
	p.Statuses = []string{"active"}
	min := int64(100)
	p.MinValueCents = &min

	a := &argList{}
	clauses := scopeAndFilters(p, a)

	if len(clauses) < 3 {
		t.Fatalf("expected scope plus two filters, got %d clauses", len(clauses))
	}
	if !strings.HasPrefix(clauses[0], "i.household_id = ") {
		t.Fatalf("first predicate must be the household scope, got %q", clauses[0])
	}
	if a.args[0] != p.HouseholdID {
		t.Fatalf("first argument must be the household id, got %v", a.args[0])
	}
}

func TestFiltersAppearInEveryStrategy(t *testing.T) {
	p := baseParams()
	p.Statuses = []string{"active", "archived"}
	min, max := int64(500), int64(10000)
	p.MinValueCents = &min
	p.MaxValueCents = &max
	p.LocationIDs = []uuid.UUID{uuid.New()}

	fragments := []string{
		"i.status = ANY(",
		"i.value_cents >= ",
		"i.value_cents <= ",
		"i.location_id = ANY(",
	}

	for name, build := range map[string]func(QueryParams) (string, []any){
		"full_text": buildFullTextQuery,
		"trigram":   buildTrigramQuery,
		"ilike":     buildILikeQuery,
	} {
		query, _ := build(p)
		for _, fragment := range fragments {
			if !strings.Contains(query, fragment) {
				t.Fatalf("%s query is missing filter fragment %q", name, fragment)
			}
		}
	}
}

func TestILikeQueryEscapesPattern(t *testing.T) {
	p := baseParams()
	p.Text = "100%_done\\x"

	_, args := buildILikeQuery(p)

	pattern, ok := args[0].(string)
	if !ok {
		t.Fatalf("first argument should be the pattern, got %T", args[0])
	}
	want := `%100\%\_done\\x%`
	if pattern != want {
		t.Fatalf("pattern = %q, want %q", pattern, want)
	}
}

func TestUnaccentWrapping(t *testing.T) {
	p := baseParams()
	p.UseUnaccent = true

	query, _ := buildFullTextQuery(p)
	if !strings.Contains(query, "unaccent(coalesce(i.name, ''))") {
		t.Fatalf("expected unaccent-wrapped name expression:\n%s", query)
	}

	p.UseUnaccent = false
	query, _ = buildFullTextQuery(p)
	if strings.Contains(query, "unaccent(") {
		t.Fatalf("unaccent must not appear when the extension is absent:\n%s", query)
	}
}

func TestTieBreakFollowsCallerSort(t *testing.T) {
	cases := []struct {
		name      string
		sortBy    string
		sortOrder string
		want      string
	}{
		{"default", "", "", "i.created_at DESC"},
		{"name asc", "name", "asc", "i.name ASC"},
		{"updated desc", "updated_at", "desc", "i.updated_at DESC"},
		{"value asc", "value", "asc", "i.value_cents ASC"},
		{"unknown column", "evil; DROP TABLE items", "asc", "i.created_at DESC"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := baseParams()
			p.SortBy = tc.sortBy
			p.SortOrder = tc.sortOrder
			if got := tieBreak(p, "i.created_at DESC"); got != tc.want {
				t.Fatalf("tieBreak = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestILikeDefaultOrderIsRecency(t *testing.T) {
	query, _ := buildILikeQuery(baseParams())
	if !strings.Contains(query, "ORDER BY i.created_at DESC") {
		t.Fatalf("ilike fallback should order by recency when no sort is given:\n%s", query)
	}
}

func TestQueriesCountTotalOverWindow(t *testing.T) {
	for name, build := range map[string]func(QueryParams) (string, []any){
		"full_text": buildFullTextQuery,
		"trigram":   buildTrigramQuery,
		"ilike":     buildILikeQuery,
	} {
		query, _ := build(baseParams())
		if !strings.Contains(query, "COUNT(*) OVER() AS total") {
			t.Fatalf("%s query must compute the window total", name)
		}
	}
}

func TestArgListNumbersSequentially(t *testing.T) {
	a := &argList{}
	if got := a.add("x"); got != "$1" {
		t.Fatalf("first placeholder = %q, want $1", got)
	}
	if got := a.add(42); got != "$2" {
		t.Fatalf("second placeholder = %q, want $2", got)
	}
	if got := a.add(time.Now()); got != "$3" {
		t.Fatalf("third placeholder = %q, want $3", got)
	}
	if len(a.args) != 3 {
		t.Fatalf("args length = %d, want 3", len(a.args))
	}
}
