package realtime

import (
	"sync"

	"go.uber.org/zap"
)

const clientSendBuffer = 16

// Client is one live connection's delivery endpoint. It belongs to exactly
// one identity room for its whole lifetime.
type Client struct {
	identityID string

	mu     sync.Mutex
	closed bool
	send   chan Envelope
}

// IdentityID names the room the client is joined to.
func (c *Client) IdentityID() string {
	return c.identityID
}

// Send queues an envelope for delivery. It never blocks: a closed client or
// a full buffer drops the message and reports false. Slow consumers lose
// refresh pushes rather than stalling the protocol; they recover on the next
// rotation.
func (c *Client) Send(env Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// Outbox exposes the delivery channel for the connection's writer loop. It
// is closed when the client leaves its room.
func (c *Client) Outbox() <-chan Envelope {
	return c.send
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Hub owns the identity-to-room mapping. All membership mutation goes
// through Join/Leave; delivery never iterates rooms outside the hub.
type Hub struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates an empty router.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]map[*Client]struct{}),
	}
}

// Join registers a new client in the identity's room and returns it.
func (h *Hub) Join(identityID string) *Client {
	client := &Client{
		identityID: identityID,
		send:       make(chan Envelope, clientSendBuffer),
	}

	h.mu.Lock()
	room, ok := h.rooms[identityID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[identityID] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	return client
}

// Leave removes the client from its room and closes its outbox. Idempotent.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[client.identityID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.identityID)
		}
	}
	h.mu.Unlock()

	client.close()
}

// Broadcast delivers an event to every live connection in any of the given
// identities' rooms. A room with zero connections is a silent no-op.
func (h *Hub) Broadcast(identityIDs []string, event string, payload any) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		h.logger.Error("broadcast payload marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	seen := make(map[string]struct{}, len(identityIDs))
	targets := make([]*Client, 0, 4)

	h.mu.RLock()
	for _, id := range identityIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		for client := range h.rooms[id] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.Send(env) {
			h.logger.Debug("dropped realtime message",
				zap.String("event", event),
				zap.String("identity_id", client.identityID))
		}
	}
}

// DirectTo is the single-identity form of Broadcast.
func (h *Hub) DirectTo(identityID, event string, payload any) {
	h.Broadcast([]string{identityID}, event, payload)
}
