package dto

import (
	"time"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// RedeemRequest payload for presenting an offered credential.
type RedeemRequest struct {
	OfferedCredential       string `json:"offered_credential"`
	CooldownOverrideSeconds int    `json:"cooldown_override_seconds,omitempty"`
}

// ResetTimerRequest payload for restarting credential timers.
type ResetTimerRequest struct {
	TimerSeconds int `json:"timer_seconds"`
	// IdentityID targets another identity's sessions; defaults to the caller.
	IdentityID string `json:"identity_id,omitempty"`
}

// IdentityResponse is the client-facing projection of an identity.
type IdentityResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role"`
}

// NewIdentityResponse maps a domain identity.
func NewIdentityResponse(identity *domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:        identity.ID,
		Username:  identity.Username,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Role:      identity.Role,
	}
}

// CheckEventResponse is the client-facing projection of a check record.
type CheckEventResponse struct {
	ID       string           `json:"id"`
	Type     domain.CheckType `json:"check_type"`
	ScanTime time.Time        `json:"scan_time"`
}

// NewCheckEventResponse maps a domain check event.
func NewCheckEventResponse(check *domain.CheckEvent) CheckEventResponse {
	return CheckEventResponse{
		ID:       check.ID,
		Type:     check.Type,
		ScanTime: check.ScanTime,
	}
}

// RedeemResponse is returned on a successful redemption.
type RedeemResponse struct {
	Event            CheckEventResponse `json:"event"`
	OfferingIdentity IdentityResponse   `json:"offering_identity"`
}
