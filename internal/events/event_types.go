package events

import (
	"time"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventCheckCreated fires after a check record has been persisted.
	// Handlers run after the append; their failures never roll it back.
	EventCheckCreated EventType = "check_created"
	// EventTimerReset asks the realtime layer to restart the credential
	// regeneration timers of an identity's live sessions.
	EventTimerReset EventType = "timer_reset"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CheckCreatedPayload carries the persisted record and both participants.
type CheckCreatedPayload struct {
	Check            domain.CheckEvent `json:"check"`
	OfferingIdentity domain.Identity   `json:"offering_identity"`
	ScanningIdentity domain.Identity   `json:"scanning_identity"`
}

// TimerResetPayload names the identity whose sessions should restart their
// timers, and the new interval.
type TimerResetPayload struct {
	IdentityID      string `json:"identity_id"`
	IntervalSeconds int    `json:"interval_seconds"`
	Initial         bool   `json:"initial"`
}
