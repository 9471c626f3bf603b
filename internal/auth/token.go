package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// Verification failure modes. Verification is pure: the decision is made
// from the raw token, the signing secret and the clock alone.
var (
	ErrTokenMalformed    = errors.New("credential malformed")
	ErrTokenExpired      = errors.New("credential expired")
	ErrTokenBadSignature = errors.New("credential signature mismatch")
)

// Claims describes the JWT payload shared by access and presence credentials.
// The correlation id is minted only for presence credentials.
type Claims struct {
	Purpose       domain.CredentialPurpose `json:"type"`
	CorrelationID string                   `json:"qr_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed, time-boxed credentials.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTLMinutes int) *TokenManager {
	if accessTTLMinutes <= 0 {
		accessTTLMinutes = 30
	}
	return &TokenManager{
		secret:    []byte(secret),
		accessTTL: time.Duration(accessTTLMinutes) * time.Minute,
		now:       time.Now,
	}
}

// WithClock overrides the authoritative clock source. Intended for tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// IssueAccess mints an access credential used to authenticate HTTP requests
// and socket handshakes.
func (tm *TokenManager) IssueAccess(subjectID string) (string, domain.Credential, error) {
	return tm.issue(subjectID, domain.PurposeAccess, tm.accessTTL, "")
}

// IssuePresence mints a short-lived rotating presence credential carrying a
// fresh correlation id.
func (tm *TokenManager) IssuePresence(subjectID string, ttl time.Duration) (string, domain.Credential, error) {
	return tm.issue(subjectID, domain.PurposePresence, ttl, uuid.NewString())
}

func (tm *TokenManager) issue(subjectID string, purpose domain.CredentialPurpose, ttl time.Duration, correlationID string) (string, domain.Credential, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)

	claims := &Claims{
		Purpose:       purpose,
		CorrelationID: correlationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", domain.Credential{}, err
	}

	return signed, domain.Credential{
		SubjectID:     subjectID,
		Purpose:       purpose,
		CorrelationID: correlationID,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}, nil
}

// Verify decodes and validates a raw credential. The expiry bound is
// exclusive: a token presented at exactly its expiry instant is expired.
func (tm *TokenManager) Verify(raw string) (domain.Credential, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenBadSignature
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Credential{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return domain.Credential{}, ErrTokenBadSignature
		default:
			return domain.Credential{}, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Credential{}, ErrTokenMalformed
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return domain.Credential{}, ErrTokenMalformed
	}

	cred := domain.Credential{
		SubjectID:     claims.Subject,
		Purpose:       claims.Purpose,
		CorrelationID: claims.CorrelationID,
		ExpiresAt:     claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	return cred, nil
}

// AccessTTL exposes the configured access credential lifetime.
func (tm *TokenManager) AccessTTL() time.Duration {
	return tm.accessTTL
}
