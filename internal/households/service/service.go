// Package service resolves the authenticated user to their household scope.
// Every search request runs under exactly one household; modules must call
// Resolve rather than trusting any scope carried by the token.
package service

import (
	"context"
	"errors"

	"inventory_backend/internal/households/repository"
	"inventory_backend/platform/apperr"

	"github.com/google/uuid"
)

// MembershipReader is the repository surface the resolver needs.
type MembershipReader interface {
	HouseholdForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

type Service struct {
	repo MembershipReader
}

func New(repo MembershipReader) *Service {
	return &Service{repo: repo}
}

// Resolve maps the authenticated user to their single household scope.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	householdID, err := s.repo.HouseholdForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return uuid.Nil, apperr.NotFound("user not found").
				WithCode(apperr.CodeUserNotFound).
				WithOp("households.Resolve")
		}
		appErr := apperr.Internal("failed to resolve household").WithOp("households.Resolve")
		appErr.Err = err
		return uuid.Nil, appErr
	}
	if householdID == nil || *householdID == uuid.Nil {
		return uuid.Nil, apperr.NotFound("user has no household").
			WithCode(apperr.CodeNoHousehold).
			WithOp("households.Resolve")
	}
	return *householdID, nil
}
