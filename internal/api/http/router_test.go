package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/api/http/handlers"
	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/events"
)

type stubIdentityStore struct {
	identities map[string]*domain.Identity
}

func (s *stubIdentityStore) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	identity, ok := s.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return identity, nil
}

func (s *stubIdentityStore) GetByUsername(context.Context, string) (*domain.Identity, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubIdentityStore) GetPasswordHashByUsername(context.Context, string) (string, error) {
	return "", pgx.ErrNoRows
}

func (s *stubIdentityStore) List(context.Context, int, int) ([]domain.Identity, error) {
	return nil, nil
}

type timerResetRecorder struct {
	mu       sync.Mutex
	payloads []events.TimerResetPayload
}

func (r *timerResetRecorder) record(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TimerResetPayload)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *timerResetRecorder) all() []events.TimerResetPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.TimerResetPayload{}, r.payloads...)
}

type appFixture struct {
	app      *fiber.App
	tokens   *auth.TokenManager
	recorder *timerResetRecorder
	user     *domain.Identity
	manager  *domain.Identity
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()

	user := &domain.Identity{ID: "user-1", Username: "alice", Role: domain.RoleUser}
	manager := &domain.Identity{ID: "manager-1", Username: "bob", Role: domain.RoleManager}
	store := &stubIdentityStore{identities: map[string]*domain.Identity{
		user.ID:    user,
		manager.ID: manager,
	}}

	tokens := auth.NewTokenManager("test-secret", 30)
	recorder := &timerResetRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTimerReset, recorder.record)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)

	rejectUpgrade := func(c *fiber.Ctx) error { return fiber.ErrUpgradeRequired }
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(nil),
		Checkins:       handlers.NewCheckinsHandler(nil, dispatcher),
		Identities:     handlers.NewIdentitiesHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store, "access_token"),
		SocketUpgrade:  rejectUpgrade,
		SocketHandler:  rejectUpgrade,
		Metrics:        http.NotFoundHandler(),
	})

	return &appFixture{app: app, tokens: tokens, recorder: recorder, user: user, manager: manager}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *appFixture) post(t *testing.T, path string, identity *domain.Identity, body any) (*http.Response, []byte) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		raw, _, err := f.tokens.IssueAccess(identity.ID)
		if err != nil {
			t.Fatalf("IssueAccess: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+raw)
	}

	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func decodeError(t *testing.T, raw []byte) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode error body %q: %v", raw, err)
	}
	return body
}

func TestResetTimerIsSelfServiceForOwnSessions(t *testing.T) {
	f := newAppFixture(t)

	resp, raw := f.post(t, "/checkins/reset-timer", f.user, fiber.Map{"timer_seconds": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s, want 200", resp.StatusCode, raw)
	}

	published := f.recorder.all()
	if len(published) != 1 {
		t.Fatalf("published %d reset events, want 1", len(published))
	}
	if published[0].IdentityID != f.user.ID || published[0].IntervalSeconds != 5 {
		t.Fatalf("payload = %+v", published[0])
	}
}

func TestResetTimerCrossIdentityRequiresCapability(t *testing.T) {
	f := newAppFixture(t)

	resp, raw := f.post(t, "/checkins/reset-timer", f.user, fiber.Map{
		"timer_seconds": 5,
		"identity_id":   f.manager.ID,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if body := decodeError(t, raw); body.Error.Code != "FORBIDDEN" {
		t.Fatalf("code = %q, want FORBIDDEN", body.Error.Code)
	}
	if published := f.recorder.all(); len(published) != 0 {
		t.Fatalf("published %d reset events after rejection", len(published))
	}

	resp, _ = f.post(t, "/checkins/reset-timer", f.manager, fiber.Map{
		"timer_seconds": 5,
		"identity_id":   f.user.ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manager status = %d, want 200", resp.StatusCode)
	}
	published := f.recorder.all()
	if len(published) != 1 || published[0].IdentityID != f.user.ID {
		t.Fatalf("published = %+v", published)
	}
}

func TestResetTimerRequiresAuthentication(t *testing.T) {
	f := newAppFixture(t)

	resp, raw := f.post(t, "/checkins/reset-timer", nil, fiber.Map{"timer_seconds": 5})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body := decodeError(t, raw); body.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("code = %q, want UNAUTHORIZED", body.Error.Code)
	}
}

func TestRedeemValidatesRequestBody(t *testing.T) {
	f := newAppFixture(t)

	resp, raw := f.post(t, "/checkins/redeem", f.user, fiber.Map{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body := decodeError(t, raw); body.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("code = %q, want VALIDATION_FAILED", body.Error.Code)
	}
}
