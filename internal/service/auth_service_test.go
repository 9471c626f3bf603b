package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/config"
	"github.com/spec-kit/checkin-service/internal/domain"
)

func newAuthFixture(t *testing.T) (*AuthService, *domain.Identity) {
	t.Helper()

	identity := &domain.Identity{ID: "user-1", Username: "alice", Role: domain.RoleUser}
	hash, err := auth.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	repo := &stubIdentityRepo{
		identities: map[string]*domain.Identity{identity.ID: identity},
		passwords:  map[string]string{identity.Username: hash},
	}
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30}}
	return NewAuthService(cfg, repo), identity
}

func TestLoginIssuesAccessCredential(t *testing.T) {
	svc, want := newAuthFixture(t)

	identity, raw, expiresAt, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if identity.ID != want.ID {
		t.Fatalf("identity = %q, want %q", identity.ID, want.ID)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry %v already past", expiresAt)
	}

	cred, err := svc.TokenManager().Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if cred.SubjectID != want.ID || cred.Purpose != domain.PurposeAccess {
		t.Fatalf("cred = %+v", cred)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	if _, _, _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRejectsUnknownUsername(t *testing.T) {
	svc, _ := newAuthFixture(t)

	if _, _, _, err := svc.Login(context.Background(), "nobody", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}
