package repository

import (
	"context"
	"fmt"
	"strings"
)

// FullTextSearch runs the ranked tsvector query. The returned scores are raw
// ts_rank values; the service normalizes them against the page maximum.
func (r *Repository) FullTextSearch(ctx context.Context, p QueryParams) ([]ItemRow, error) {
	query, args := buildFullTextQuery(p)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search query failed: %w", err)
	}
	return r.scanItemRows(rows)
}

// TrigramSearch runs similarity-based fuzzy matching. Scores are raw
// similarity coefficients, already in [0,1].
func (r *Repository) TrigramSearch(ctx context.Context, p QueryParams) ([]ItemRow, error) {
	query, args := buildTrigramQuery(p)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trigram search query failed: %w", err)
	}
	return r.scanItemRows(rows)
}

// ILikeSearch runs the case-insensitive substring fallback. Relevance is
// binary (1.0 for any match); ordering falls back to recency unless the
// caller asked for a specific sort.
func (r *Repository) ILikeSearch(ctx context.Context, p QueryParams) ([]ItemRow, error) {
	query, args := buildILikeQuery(p)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ilike search query failed: %w", err)
	}
	return r.scanItemRows(rows)
}

func buildFullTextQuery(p QueryParams) (string, []any) {
	a := &argList{}
	textArg := a.add(p.Text)

	vector := fmt.Sprintf(
		"setweight(to_tsvector('english', %s), 'A') || setweight(to_tsvector('english', %s), 'B')",
		unaccentWrap("coalesce(i.name, '')", p.UseUnaccent),
		unaccentWrap("coalesce(i.description, '')", p.UseUnaccent),
	)
	tsquery := fmt.Sprintf("websearch_to_tsquery('english', %s)", unaccentWrap(textArg, p.UseUnaccent))

	clauses := scopeAndFilters(p, a)
	clauses = append(clauses, fmt.Sprintf("(%s) @@ %s", vector, tsquery))

	query := fmt.Sprintf(`
		SELECT %s,
			ts_rank(%s, %s) AS score,
			COUNT(*) OVER() AS total
		FROM items i
		WHERE %s
		ORDER BY score DESC, %s
		LIMIT %s OFFSET %s
	`, itemColumns, vector, tsquery,
		strings.Join(clauses, "\n\t\t\tAND "),
		tieBreak(p, "i.name ASC"),
		a.add(p.Limit), a.add(p.Offset))

	return query, a.args
}

func buildTrigramQuery(p QueryParams) (string, []any) {
	a := &argList{}
	textArg := a.add(p.Text)

	queryExpr := unaccentWrap(textArg, p.UseUnaccent)
	nameExpr := unaccentWrap("i.name", p.UseUnaccent)
	descExpr := unaccentWrap("coalesce(i.description, '')", p.UseUnaccent)

	clauses := scopeAndFilters(p, a)
	clauses = append(clauses, fmt.Sprintf("(%s %% %s OR %s %% %s)", nameExpr, queryExpr, descExpr, queryExpr))

	query := fmt.Sprintf(`
		SELECT %s,
			GREATEST(similarity(%s, %s), similarity(%s, %s))::float8 AS score,
			COUNT(*) OVER() AS total
		FROM items i
		WHERE %s
		ORDER BY score DESC, %s
		LIMIT %s OFFSET %s
	`, itemColumns,
		nameExpr, queryExpr, descExpr, queryExpr,
		strings.Join(clauses, "\n\t\t\tAND "),
		tieBreak(p, "i.name ASC"),
		a.add(p.Limit), a.add(p.Offset))

	return query, a.args
}

func buildILikeQuery(p QueryParams) (string, []any) {
	a := &argList{}
	patternArg := a.add("%" + escapeLike(p.Text) + "%")

	clauses := scopeAndFilters(p, a)
	clauses = append(clauses, fmt.Sprintf("(i.name ILIKE %s OR i.description ILIKE %s)", patternArg, patternArg))

	query := fmt.Sprintf(`
		SELECT %s,
			1.0::float8 AS score,
			COUNT(*) OVER() AS total
		FROM items i
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s
	`, itemColumns,
		strings.Join(clauses, "\n\t\t\tAND "),
		tieBreak(p, "i.created_at DESC"),
		a.add(p.Limit), a.add(p.Offset))

	return query, a.args
}
