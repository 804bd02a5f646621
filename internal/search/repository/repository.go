// Package repository issues the hand-written strategy queries against the
// data store. No ORM: each strategy builds its own SQL, but scope and
// filter predicates come from one shared builder so result sets stay
// consistent across fallback paths.
package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ItemRow is one raw strategy hit. Score semantics differ per strategy
// (ts_rank, similarity, constant 1.0); the service normalizes them.
type ItemRow struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Status      string
	ValueCents  *int64
	LocationID  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Score       float64
	Total       int64
}

// QueryParams carries the validated query plus the mandatory household scope.
type QueryParams struct {
	HouseholdID   uuid.UUID
	Text          string
	Limit         int
	Offset        int
	Statuses      []string
	MinValueCents *int64
	MaxValueCents *int64
	LocationIDs   []uuid.UUID
	SortBy        string
	SortOrder     string
	UseUnaccent   bool
}

// argList numbers positional SQL arguments as they are appended.
type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return "$" + strconv.Itoa(len(a.args))
}

// scopeAndFilters builds the WHERE predicates shared by every strategy.
// The household scope is always the first predicate and is never optional;
// filters are applied pre-ranking so a caller cannot tell strategies apart
// by filter behavior.
func scopeAndFilters(p QueryParams, a *argList) []string {
	clauses := []string{"i.household_id = " + a.add(p.HouseholdID)}

	if len(p.Statuses) > 0 {
		clauses = append(clauses, "i.status = ANY("+a.add(p.Statuses)+")")
	}
	if p.MinValueCents != nil {
		clauses = append(clauses, "i.value_cents >= "+a.add(*p.MinValueCents))
	}
	if p.MaxValueCents != nil {
		clauses = append(clauses, "i.value_cents <= "+a.add(*p.MaxValueCents))
	}
	if len(p.LocationIDs) > 0 {
		clauses = append(clauses, "i.location_id = ANY("+a.add(p.LocationIDs)+")")
	}

	return clauses
}

var sortColumns = map[string]string{
	"name":       "i.name",
	"created_at": "i.created_at",
	"updated_at": "i.updated_at",
	"value":      "i.value_cents",
}

// tieBreak resolves equal scores by the caller's sortBy/sortOrder, falling
// back to the given per-strategy default.
func tieBreak(p QueryParams, defaultOrder string) string {
	col, ok := sortColumns[p.SortBy]
	if !ok {
		return defaultOrder
	}
	dir := "ASC"
	if strings.EqualFold(p.SortOrder, "desc") {
		dir = "DESC"
	}
	return col + " " + dir
}

// escapeLike escapes LIKE metacharacters in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// unaccentWrap wraps an expression in unaccent() when the extension is
// available, so accented text matches its plain form.
func unaccentWrap(expr string, useUnaccent bool) string {
	if useUnaccent {
		return "unaccent(" + expr + ")"
	}
	return expr
}

const itemColumns = `i.id, i.name, i.description, i.status, i.value_cents, i.location_id, i.created_at, i.updated_at`

func (r *Repository) scanItemRows(rows pgx.Rows) ([]ItemRow, error) {
	defer rows.Close()

	items := make([]ItemRow, 0)
	for rows.Next() {
		var item ItemRow
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.Status,
			&item.ValueCents,
			&item.LocationID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Score,
			&item.Total,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
