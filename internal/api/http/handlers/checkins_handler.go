package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/checkin-service/internal/api/dto"
	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/events"
	"github.com/spec-kit/checkin-service/internal/service"
	apperrors "github.com/spec-kit/checkin-service/pkg/util"
)

// CheckinsHandler exposes credential redemption and timer control.
type CheckinsHandler struct {
	redemption *service.RedemptionService
	dispatcher events.Dispatcher
}

// NewCheckinsHandler constructs handler.
func NewCheckinsHandler(redemption *service.RedemptionService, dispatcher events.Dispatcher) *CheckinsHandler {
	return &CheckinsHandler{redemption: redemption, dispatcher: dispatcher}
}

// Redeem handles POST /checkins/redeem.
func (h *CheckinsHandler) Redeem(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("please authenticate")
	}

	var req dto.RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OfferedCredential == "" {
		return apperrors.NewValidationError("offered_credential required", nil)
	}

	result, err := h.redemption.Redeem(c.Context(), service.RedeemInput{
		Scanner:           principal.Identity,
		OfferedCredential: req.OfferedCredential,
		CooldownOverride:  time.Duration(req.CooldownOverrideSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.RedeemResponse{
		Event:            dto.NewCheckEventResponse(result.Check),
		OfferingIdentity: dto.NewIdentityResponse(result.OfferingIdentity),
	})
}

// ResetTimer handles POST /checkins/reset-timer. Resetting the caller's own
// timers is self-service; targeting another identity requires the ResetTimer
// capability.
func (h *CheckinsHandler) ResetTimer(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("please authenticate")
	}

	var req dto.ResetTimerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	target := req.IdentityID
	if target == "" {
		target = principal.Identity.ID
	}
	if target != principal.Identity.ID && !principal.Has(domain.CapabilityResetTimer) {
		return apperrors.NewForbidden("forbidden")
	}

	if err := h.dispatcher.Publish(context.WithoutCancel(c.Context()), events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTimerReset,
		Timestamp: time.Now(),
		Payload: events.TimerResetPayload{
			IdentityID:      target,
			IntervalSeconds: req.TimerSeconds,
			Initial:         false,
		},
	}); err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.SendStatus(http.StatusOK)
}
