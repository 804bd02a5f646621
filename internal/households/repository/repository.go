// Package repository provides data access for household membership.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when the user id does not exist.
var ErrUserNotFound = errors.New("user not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const membershipQuery = `
	SELECT hm.household_id
	FROM users u
	LEFT JOIN household_members hm ON hm.user_id = u.id
	WHERE u.id = $1
	ORDER BY hm.joined_at ASC
	LIMIT 1
`

// HouseholdForUser returns the user's household id, or nil when the user
// exists but belongs to no household.
func (r *Repository) HouseholdForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var householdID *uuid.UUID
	err := r.pool.QueryRow(ctx, membershipQuery, userID).Scan(&householdID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query household membership: %w", err)
	}
	return householdID, nil
}
