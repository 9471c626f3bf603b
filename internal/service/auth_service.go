package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/config"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/repository"
)

// ErrInvalidCredentials is returned for any login failure, without
// distinguishing an unknown username from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates identities and issues access credentials.
type AuthService struct {
	identities repository.IdentityRepository
	tokens     *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, identities repository.IdentityRepository) *AuthService {
	return &AuthService{
		identities: identities,
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// Login verifies the password and issues an access credential.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Identity, string, time.Time, error) {
	identity, err := s.identities.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}

	hash, err := s.identities.GetPasswordHashByUsername(ctx, username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(hash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	raw, cred, err := s.tokens.IssueAccess(identity.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return identity, raw, cred.ExpiresAt, nil
}

// TokenManager exposes the underlying token manager for middleware and
// realtime wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
