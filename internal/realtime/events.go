package realtime

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// Server-to-client event names and client-to-server message names.
const (
	EventCredentialRefresh = "credential.refresh"
	EventCredentialScanned = "credential.scanned"
	EventCredentialExpired = "credential.expired"
	EventCheckinCreated    = "checkin.created"

	MessageResetTimer = "reset-timer"
)

// Envelope frames every message on the realtime channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals the payload into a framed message.
func NewEnvelope(event string, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return env, err
	}
	env.Data = data
	return env, nil
}

// CredentialRefreshPayload carries a freshly minted presence credential.
type CredentialRefreshPayload struct {
	Credential string    `json:"credential"`
	IssuedAt   time.Time `json:"issued_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// IdentitySummary is the client-facing projection of an identity.
type IdentitySummary struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role"`
}

// SummarizeIdentity projects an identity for realtime payloads.
func SummarizeIdentity(identity domain.Identity) IdentitySummary {
	return IdentitySummary{
		ID:        identity.ID,
		Username:  identity.Username,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Role:      identity.Role,
	}
}

// CheckinCreatedPayload announces a persisted check event to both rooms.
type CheckinCreatedPayload struct {
	ID               string           `json:"id"`
	Type             domain.CheckType `json:"check_type"`
	ScanTime         time.Time        `json:"scan_time"`
	OfferingIdentity IdentitySummary  `json:"offering_identity"`
	ScanningIdentity IdentitySummary  `json:"scanning_identity"`
}

// ResetTimerMessage is the client-to-server payload for a self-scoped reset.
type ResetTimerMessage struct {
	TimerSeconds int `json:"timer_seconds"`
}
