package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/checkin-service/internal/api/http/handlers"
	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Checkins       *handlers.CheckinsHandler
	Identities     *handlers.IdentitiesHandler
	AuthMiddleware *auth.AuthMiddleware
	SocketUpgrade  fiber.Handler
	SocketHandler  fiber.Handler
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP and websocket routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))

	app.Post("/auth/login", cfg.Auth.Login)

	// handshake auth happens in the upgrade middleware, not the bearer chain
	app.Get("/ws", cfg.SocketUpgrade, cfg.SocketHandler)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	protected.Post("/checkins/redeem", cfg.Checkins.Redeem)
	// self-targeted resets are self-service; the handler demands the
	// ResetTimer capability for any other target
	protected.Post("/checkins/reset-timer", cfg.Checkins.ResetTimer)

	protected.Get("/my/checks", cfg.Identities.MyChecks)
	protected.Get("/identities",
		auth.RequireCapabilities(domain.CapabilityListIdentities), cfg.Identities.List)
	protected.Get("/identities/:identityID/checks",
		auth.RequireCapabilitiesOrSelf("identityID", domain.CapabilityListIdentities),
		cfg.Identities.ChecksForIdentity)
}
