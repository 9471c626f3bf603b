package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/repository"
	apperrors "github.com/spec-kit/checkin-service/pkg/util"
)

// IdentityService answers identity listings and per-identity check queries.
type IdentityService struct {
	identities repository.IdentityRepository
	checks     repository.CheckRepository
	now        func() time.Time
}

// NewIdentityService builds the service.
func NewIdentityService(identities repository.IdentityRepository, checks repository.CheckRepository) *IdentityService {
	return &IdentityService{identities: identities, checks: checks, now: time.Now}
}

// List returns a page of identities.
func (s *IdentityService) List(ctx context.Context, limit, offset int) ([]domain.Identity, error) {
	return s.identities.List(ctx, limit, offset)
}

// TodayChecks returns the identity's check events for the current UTC day.
// Gate identities participate as the offering side, everyone else as the
// scanning side.
func (s *IdentityService) TodayChecks(ctx context.Context, identity *domain.Identity) ([]domain.CheckEvent, error) {
	since := startOfDayUTC(s.now())
	return s.checks.ListForIdentitySince(ctx, identity.ID, since, identity.Role == domain.RoleGate)
}

// TodayChecksFor resolves the identity first, then lists its checks.
func (s *IdentityService) TodayChecksFor(ctx context.Context, identityID string) ([]domain.CheckEvent, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("identity", nil)
		}
		return nil, err
	}
	return s.TodayChecks(ctx, identity)
}
