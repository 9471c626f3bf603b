package realtime

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/observability"
	apperrors "github.com/spec-kit/checkin-service/pkg/util"
)

const handshakePrincipalKey = "ws_principal"

// UpgradeMiddleware authenticates the websocket handshake. The connection is
// rejected here, before any room join, when the handshake token is missing
// or does not resolve to a persisted identity.
func UpgradeMiddleware(resolver *auth.AuthMiddleware) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		principal, err := resolver.Resolve(c.Context(), c.Query("token"))
		if err != nil {
			return apperrors.NewUnauthorized("please authenticate")
		}
		c.Locals(handshakePrincipalKey, principal)
		return c.Next()
	}
}

// Handler services one realtime connection: it joins the identity's room,
// attaches the credential session, serializes outbound envelopes on a single
// writer, and handles inbound self-scoped reset-timer messages.
func Handler(hub *Hub, sessions *SessionManager, logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, ok := conn.Locals(handshakePrincipalKey).(*auth.Principal)
		if !ok {
			_ = conn.Close()
			return
		}

		client := hub.Join(principal.Identity.ID)
		session := sessions.Attach(client, principal)
		metrics.ConnectionOpened()
		logger.Info("client connected",
			zap.String("identity_id", principal.Identity.ID),
			zap.String("role", string(principal.Identity.Role)))

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for env := range client.Outbox() {
				if err := conn.WriteJSON(env); err != nil {
					return
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			if env.Event == MessageResetTimer {
				var req ResetTimerMessage
				if len(env.Data) > 0 {
					_ = json.Unmarshal(env.Data, &req)
				}
				// self-service: a connection may only reset its own timer
				session.Reset(time.Duration(req.TimerSeconds)*time.Second, false)
			}
		}

		sessions.Detach(session)
		hub.Leave(client)
		metrics.ConnectionClosed()
		<-writeDone
		logger.Info("client disconnected",
			zap.String("identity_id", principal.Identity.ID))
	})
}
