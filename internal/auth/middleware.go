package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/repository"
	apperrors "github.com/spec-kit/checkin-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller together with the
// capabilities derived from its role and the credential that proved it.
type Principal struct {
	Identity     *domain.Identity
	Capabilities map[domain.Capability]struct{}
	Credential   domain.Credential
}

// Has reports whether the principal holds every required capability.
func (p *Principal) Has(required ...domain.Capability) bool {
	for _, cap := range required {
		if _, ok := p.Capabilities[cap]; !ok {
			return false
		}
	}
	return true
}

// AuthMiddleware resolves inbound credentials to identities. Strategies are
// tried in order (bearer header, then cookie); the first credential that
// verifies and maps to a persisted identity wins.
type AuthMiddleware struct {
	tokens     *TokenManager
	identities repository.IdentityRepository
	cookieName string
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, identities repository.IdentityRepository, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, identities: identities, cookieName: cookieName}
}

type tokenExtractor func(c *fiber.Ctx) (string, bool)

func extractBearer(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func (m *AuthMiddleware) extractCookie(c *fiber.Ctx) (string, bool) {
	raw := c.Cookies(m.cookieName)
	return raw, raw != ""
}

// Handle enforces authentication for protected routes. Failures are reported
// with a single generic message so callers cannot distinguish a missing
// credential from an expired or tampered one.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	strategies := []tokenExtractor{extractBearer, m.extractCookie}
	for _, extract := range strategies {
		raw, ok := extract(c)
		if !ok {
			continue
		}
		principal, err := m.Resolve(c.Context(), raw)
		if err != nil {
			continue
		}
		c.Locals(principalKey, principal)
		return c.Next()
	}
	return apperrors.NewUnauthorized("please authenticate")
}

// Resolve verifies a raw access credential and loads its identity. Shared by
// the HTTP strategies and the socket handshake.
func (m *AuthMiddleware) Resolve(ctx context.Context, raw string) (*Principal, error) {
	cred, err := m.tokens.Verify(raw)
	if err != nil {
		return nil, apperrors.NewUnauthorized("please authenticate")
	}
	if cred.Purpose != domain.PurposeAccess {
		return nil, apperrors.NewUnauthorized("please authenticate")
	}

	identity, err := m.identities.GetByID(ctx, cred.SubjectID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("please authenticate")
	}

	return &Principal{
		Identity:     identity,
		Capabilities: CapabilitiesFor(identity.Role),
		Credential:   cred,
	}, nil
}

// RequireCapabilities guards a route behind the given capability set.
func RequireCapabilities(required ...domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("please authenticate")
		}
		if !principal.Has(required...) {
			return apperrors.NewForbidden("forbidden")
		}
		return c.Next()
	}
}

// RequireCapabilitiesOrSelf is like RequireCapabilities but lets a caller
// through when the path parameter names its own identity. Only mounted on
// operations explicitly designed for self-service.
func RequireCapabilitiesOrSelf(param string, required ...domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("please authenticate")
		}
		if c.Params(param) == principal.Identity.ID {
			return c.Next()
		}
		if !principal.Has(required...) {
			return apperrors.NewForbidden("forbidden")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
