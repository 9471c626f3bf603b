package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/config"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/events"
	"github.com/spec-kit/checkin-service/internal/observability"
	"github.com/spec-kit/checkin-service/internal/repository"
	apperrors "github.com/spec-kit/checkin-service/pkg/util"
)

// ReplayGuard marks redeemed presence-credential correlation ids. A false
// first return means the credential was redeemed before. Unmark releases a
// mark when the redemption fails after it was placed.
type ReplayGuard interface {
	MarkRedeemed(ctx context.Context, correlationID string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, correlationID string)
}

// RedeemInput is one redemption attempt by an authenticated scanner.
type RedeemInput struct {
	Scanner           *domain.Identity
	OfferedCredential string
	// CooldownOverride replaces the configured cooldown window for this
	// attempt when positive.
	CooldownOverride time.Duration
}

// RedeemResult is the outcome of a successful redemption.
type RedeemResult struct {
	Check            *domain.CheckEvent
	OfferingIdentity *domain.Identity
}

// RedemptionService validates offered presence credentials and turns them
// into alternating check-in/check-out records.
type RedemptionService struct {
	identities repository.IdentityRepository
	checks     repository.CheckRepository
	replay     ReplayGuard
	dispatcher events.Dispatcher
	tokens     *auth.TokenManager
	cooldown   time.Duration
	locks      *pairLocks
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// RedemptionDependencies bundles the collaborators of the service.
type RedemptionDependencies struct {
	IdentityRepo repository.IdentityRepository
	CheckRepo    repository.CheckRepository
	ReplayGuard  ReplayGuard
	Dispatcher   events.Dispatcher
	TokenManager *auth.TokenManager
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewRedemptionService builds the service.
func NewRedemptionService(cfg config.PresenceConfig, deps RedemptionDependencies) *RedemptionService {
	return &RedemptionService{
		identities: deps.IdentityRepo,
		checks:     deps.CheckRepo,
		replay:     deps.ReplayGuard,
		dispatcher: deps.Dispatcher,
		tokens:     deps.TokenManager,
		cooldown:   cfg.Cooldown(),
		locks:      newPairLocks(),
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// WithClock overrides the authoritative clock source. Intended for tests.
func (s *RedemptionService) WithClock(now func() time.Time) *RedemptionService {
	s.now = now
	return s
}

// Redeem runs one attempt through verification, cooldown, type computation
// and persistence. Exactly one check record is appended per success; no
// record exists for any failure. Delivery happens after the append and its
// failure never rolls the record back.
func (s *RedemptionService) Redeem(ctx context.Context, in RedeemInput) (*RedeemResult, error) {
	cred, err := s.tokens.Verify(in.OfferedCredential)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			s.metrics.RecordRedemption("expired")
			return nil, apperrors.NewInvalidCredential("credential expired, request a fresh one")
		}
		s.metrics.RecordRedemption("invalid")
		return nil, apperrors.NewUnauthorized("invalid credential")
	}
	if cred.Purpose != domain.PurposePresence {
		s.metrics.RecordRedemption("invalid")
		return nil, apperrors.NewUnauthorized("invalid credential")
	}

	offering, err := s.identities.GetByID(ctx, cred.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.RecordRedemption("not_found")
			return nil, apperrors.NewNotFound("offering identity", nil)
		}
		s.metrics.RecordRedemption("error")
		return nil, apperrors.NewInternalError(err)
	}

	release := s.locks.acquire(pairKey(in.Scanner.ID, offering.ID))
	defer release()

	if err := s.checkCooldown(ctx, in, offering); err != nil {
		return nil, err
	}

	now := s.now()
	nonceMarked := false
	if fresh, err := s.replay.MarkRedeemed(ctx, cred.CorrelationID, cred.ExpiresAt.Sub(now)); err != nil {
		s.logger.Warn("replay guard unavailable, continuing",
			zap.String("correlation_id", cred.CorrelationID), zap.Error(err))
	} else if !fresh {
		s.metrics.RecordRedemption("replayed")
		return nil, apperrors.NewInvalidCredential("credential already redeemed")
	} else {
		nonceMarked = true
	}

	count, err := s.checks.CountForPairSince(ctx, in.Scanner.ID, offering.ID, startOfDayUTC(now))
	if err != nil {
		if nonceMarked {
			s.replay.Unmark(ctx, cred.CorrelationID)
		}
		s.metrics.RecordRedemption("error")
		return nil, apperrors.NewInternalError(err)
	}
	checkType := domain.CheckTypeEntry
	if count%2 == 1 {
		checkType = domain.CheckTypeExit
	}

	check := &domain.CheckEvent{
		CorrelationID:      cred.CorrelationID,
		OfferingIdentityID: offering.ID,
		ScanningIdentityID: in.Scanner.ID,
		Type:               checkType,
	}
	if err := s.checks.Create(ctx, check); err != nil {
		// the credential was never consumed; release it for a retry
		if nonceMarked {
			s.replay.Unmark(ctx, cred.CorrelationID)
		}
		s.metrics.RecordRedemption("error")
		return nil, apperrors.NewInternalError(err)
	}
	s.metrics.RecordRedemption("success")

	if err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCheckCreated,
		Timestamp: now,
		Payload: events.CheckCreatedPayload{
			Check:            *check,
			OfferingIdentity: *offering,
			ScanningIdentity: *in.Scanner,
		},
	}); err != nil {
		// the record is persisted; clients can re-fetch current state
		s.logger.Error("check delivery failed", zap.String("check_id", check.ID), zap.Error(err))
	}

	return &RedeemResult{Check: check, OfferingIdentity: offering}, nil
}

func (s *RedemptionService) checkCooldown(ctx context.Context, in RedeemInput, offering *domain.Identity) error {
	last, err := s.checks.LastForPair(ctx, in.Scanner.ID, offering.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		s.metrics.RecordRedemption("error")
		return apperrors.NewInternalError(err)
	}

	window := s.cooldown
	if in.CooldownOverride > 0 {
		window = in.CooldownOverride
	}

	elapsed := s.now().Sub(last.ScanTime)
	if elapsed < window {
		remaining := int64((window - elapsed + time.Second - 1) / time.Second)
		s.metrics.RecordRedemption("too_soon")
		return apperrors.NewTooSoon(remaining)
	}
	return nil
}

// startOfDayUTC returns midnight of the instant's UTC calendar day. The
// alternation window is evaluated in UTC, matching the store's timestamps.
func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
