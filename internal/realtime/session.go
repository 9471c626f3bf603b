package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/config"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/observability"
)

// Session owns the credential regeneration timer of one live connection.
// Exactly one regeneration loop runs at a time: Reset fully stops the
// previous loop before starting the next, and Close stops it synchronously,
// so no push can be emitted after either returns.
type Session struct {
	client      *Client
	identity    *domain.Identity
	canShow     bool
	authExpiry  time.Time
	tokens      *auth.TokenManager
	presenceTTL time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Identity returns the owning identity.
func (s *Session) Identity() *domain.Identity {
	return s.identity
}

// Reset cancels any running regeneration loop, waits for it to finish, and
// starts a new one at the given interval. The first credential is pushed
// immediately; identities without the show-credential capability receive
// only that initial push, and only when initial is set.
func (s *Session) Reset(interval time.Duration, initial bool) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()

	if !s.canShow && !initial {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.run(ctx, done, interval)
}

// Close stops the regeneration loop and marks the session dead. It blocks
// until any in-flight timer fire has completed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Session) run(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)

	if !s.push(ctx) {
		return
	}
	if !s.canShow {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.push(ctx) {
				return
			}
		}
	}
}

// push mints and delivers one presence credential. It returns false when the
// loop should stop: the session was cancelled, or the connection's own
// authentication credential has lapsed and the client must re-authenticate.
func (s *Session) push(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	now := s.now()
	if !s.authExpiry.IsZero() && now.After(s.authExpiry) {
		s.client.Send(Envelope{Event: EventCredentialExpired})
		s.logger.Info("auth credential lapsed, client must re-authenticate",
			zap.String("identity_id", s.identity.ID))
		return false
	}

	raw, cred, err := s.tokens.IssuePresence(s.identity.ID, s.presenceTTL)
	if err != nil {
		s.logger.Error("presence credential issue failed",
			zap.String("identity_id", s.identity.ID), zap.Error(err))
		return true
	}

	env, err := NewEnvelope(EventCredentialRefresh, CredentialRefreshPayload{
		Credential: raw,
		IssuedAt:   cred.IssuedAt,
		TTLSeconds: int(s.presenceTTL / time.Second),
	})
	if err != nil {
		s.logger.Error("credential payload marshal failed", zap.Error(err))
		return true
	}

	if s.client.Send(env) {
		s.metrics.RecordCredentialPush()
	}
	return true
}

// SessionManager tracks the live sessions of each identity so redemptions
// and reset requests can rotate credentials on every device at once.
type SessionManager struct {
	hub     *Hub
	tokens  *auth.TokenManager
	cfg     config.PresenceConfig
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]map[*Session]struct{}
}

// NewSessionManager builds the manager.
func NewSessionManager(hub *Hub, tokens *auth.TokenManager, cfg config.PresenceConfig, logger *zap.Logger, metrics *observability.Metrics) *SessionManager {
	return &SessionManager{
		hub:      hub,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Attach creates the session for an authenticated connection and starts its
// initial regeneration loop.
func (m *SessionManager) Attach(client *Client, principal *auth.Principal) *Session {
	session := &Session{
		client:      client,
		identity:    principal.Identity,
		canShow:     principal.Has(domain.CapabilityShowCredential),
		authExpiry:  principal.Credential.ExpiresAt,
		tokens:      m.tokens,
		presenceTTL: m.cfg.TokenTTL(),
		logger:      m.logger,
		metrics:     m.metrics,
		now:         m.now,
	}

	m.mu.Lock()
	set, ok := m.sessions[principal.Identity.ID]
	if !ok {
		set = make(map[*Session]struct{})
		m.sessions[principal.Identity.ID] = set
	}
	set[session] = struct{}{}
	m.mu.Unlock()

	session.Reset(m.cfg.RefreshInterval(), true)
	return session
}

// Detach closes the session and forgets it.
func (m *SessionManager) Detach(session *Session) {
	m.mu.Lock()
	if set, ok := m.sessions[session.identity.ID]; ok {
		delete(set, session)
		if len(set) == 0 {
			delete(m.sessions, session.identity.ID)
		}
	}
	m.mu.Unlock()

	session.Close()
}

// ResetFor restarts the regeneration timers of every live session owned by
// the identity. No live session is a silent no-op.
func (m *SessionManager) ResetFor(identityID string, interval time.Duration, initial bool) {
	if interval <= 0 {
		interval = m.cfg.RefreshInterval()
	}

	m.mu.Lock()
	targets := make([]*Session, 0, len(m.sessions[identityID]))
	for session := range m.sessions[identityID] {
		targets = append(targets, session)
	}
	m.mu.Unlock()

	for _, session := range targets {
		session.Reset(interval, initial)
	}
}
