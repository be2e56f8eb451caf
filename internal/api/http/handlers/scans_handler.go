package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-gate/internal/api/dto"
	"github.com/spec-kit/access-gate/internal/auth"
	"github.com/spec-kit/access-gate/internal/service"
)

// ScansHandler exposes the scan decision endpoint.
type ScansHandler struct {
	scans *service.ScanService
}

// NewScansHandler constructs handler.
func NewScansHandler(scans *service.ScanService) *ScansHandler {
	return &ScansHandler{scans: scans}
}

// Validate handles POST /api/scans. Rejections come back with status 200 and
// success=false; the caller branches on the flag, not on the HTTP status.
func (h *ScansHandler) Validate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ScanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Credential == "" || req.Actor == "" || req.Location == "" {
		return fiber.NewError(http.StatusBadRequest, "credential, actor, location required")
	}

	result, err := h.scans.ValidateScan(c.Context(), principal.IdentityID, service.ScanInput{
		Credential: req.Credential,
		Kind:       req.Kind,
		Actor:      req.Actor,
		Location:   req.Location,
		Note:       req.Note,
	})
	if err != nil {
		return err
	}

	resp := dto.ScanResponse{
		Success:    result.Success,
		Error:      result.Error,
		ScanID:     result.ScanID,
		IdentityID: result.IdentityID,
		Name:       result.Name,
		Kind:       string(result.Kind),
	}
	if result.Success {
		ts := result.Timestamp
		resp.Timestamp = &ts
	}
	return c.JSON(fiber.Map{"data": resp})
}
