package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-service/internal/api/dto"
	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/service"
	apperrors "github.com/spec-kit/checkin-service/pkg/util"
)

// IdentitiesHandler exposes identity listings and check history.
type IdentitiesHandler struct {
	identities *service.IdentityService
}

// NewIdentitiesHandler constructs handler.
func NewIdentitiesHandler(identityService *service.IdentityService) *IdentitiesHandler {
	return &IdentitiesHandler{identities: identityService}
}

// List handles GET /identities.
func (h *IdentitiesHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	identities, err := h.identities.List(c.Context(), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.IdentityResponse, 0, len(identities))
	for i := range identities {
		out = append(out, dto.NewIdentityResponse(&identities[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// MyChecks handles GET /my/checks.
func (h *IdentitiesHandler) MyChecks(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("please authenticate")
	}

	checks, err := h.identities.TodayChecks(c.Context(), principal.Identity)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": checkResponses(checks)})
}

// ChecksForIdentity handles GET /identities/:identityID/checks.
func (h *IdentitiesHandler) ChecksForIdentity(c *fiber.Ctx) error {
	identityID := c.Params("identityID")
	if identityID == "" {
		return apperrors.NewValidationError("identity id required", nil)
	}

	checks, err := h.identities.TodayChecksFor(c.Context(), identityID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": checkResponses(checks)})
}

func checkResponses(checks []domain.CheckEvent) []dto.CheckEventResponse {
	out := make([]dto.CheckEventResponse, 0, len(checks))
	for i := range checks {
		out = append(out, dto.NewCheckEventResponse(&checks[i]))
	}
	return out
}
