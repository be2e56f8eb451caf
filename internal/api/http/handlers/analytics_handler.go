package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-gate/internal/api/dto"
	"github.com/spec-kit/access-gate/internal/auth"
	"github.com/spec-kit/access-gate/internal/service"
)

// AnalyticsHandler exposes audit log rollups.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Rollup handles GET /api/analytics/rollup?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *AnalyticsHandler) Rollup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	start, err := time.Parse(dateLayout, c.Query("start"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "start must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, c.Query("end"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "end must be YYYY-MM-DD")
	}

	rollup, err := h.analytics.Rollup(c.Context(), principal.IdentityID, start, end)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.RollupResponse{
		TotalScans:       rollup.TotalScans,
		UniqueIdentities: rollup.UniqueIdentities,
		EntryScans:       rollup.EntryScans,
		ExitScans:        rollup.ExitScans,
	}})
}
