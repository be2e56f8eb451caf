package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-gate/internal/api/dto"
	"github.com/spec-kit/access-gate/internal/auth"
	"github.com/spec-kit/access-gate/internal/domain"
)

// TokensHandler mints caller tokens on behalf of the external registration
// flow. This service does not authenticate people itself; the provisioning
// key is the trust boundary.
type TokensHandler struct {
	tokens          *auth.TokenManager
	provisioningKey string
}

// NewTokensHandler constructs handler.
func NewTokensHandler(tokens *auth.TokenManager, provisioningKey string) *TokensHandler {
	return &TokensHandler{tokens: tokens, provisioningKey: provisioningKey}
}

// Mint handles POST /api/tokens.
func (h *TokensHandler) Mint(c *fiber.Ctx) error {
	if h.provisioningKey == "" || c.Get("X-Provisioning-Key") != h.provisioningKey {
		return fiber.NewError(http.StatusForbidden, "invalid provisioning key")
	}

	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.IdentityID == "" {
		return fiber.NewError(http.StatusBadRequest, "identity_id required")
	}

	claim := domain.RoleClaimStandard
	if req.RoleClaim != "" {
		claim = domain.RoleClaim(req.RoleClaim)
		if claim != domain.RoleClaimStandard && claim != domain.RoleClaimAdmin {
			return fiber.NewError(http.StatusBadRequest, "role_claim must be STANDARD or ADMIN")
		}
	}

	token, exp, err := h.tokens.GenerateToken(req.IdentityID, claim)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.TokenResponse{Token: token, ExpiresAt: exp},
	})
}
