package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-gate/internal/api/dto"
	"github.com/spec-kit/access-gate/internal/auth"
	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/service"
)

const dateLayout = "2006-01-02"

// IdentitiesHandler exposes identity, credential and history endpoints.
type IdentitiesHandler struct {
	identities      *service.IdentityService
	credentials     *service.CredentialService
	scans           *service.ScanService
	provisioningKey string
}

// NewIdentitiesHandler constructs handler.
func NewIdentitiesHandler(identities *service.IdentityService, credentials *service.CredentialService, scans *service.ScanService, provisioningKey string) *IdentitiesHandler {
	return &IdentitiesHandler{
		identities:      identities,
		credentials:     credentials,
		scans:           scans,
		provisioningKey: provisioningKey,
	}
}

// Provision handles POST /api/identities. The endpoint is gated by the shared
// provisioning key presented by the external registration flow; the role
// claim in the payload is trusted as-is, its provenance is that flow's
// responsibility.
func (h *IdentitiesHandler) Provision(c *fiber.Ctx) error {
	if h.provisioningKey == "" || c.Get("X-Provisioning-Key") != h.provisioningKey {
		return fiber.NewError(http.StatusForbidden, "invalid provisioning key")
	}

	var req dto.ProvisionIdentityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.ID == "" || req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "id and name required")
	}

	claim := domain.RoleClaimStandard
	if req.RoleClaim != "" {
		claim = domain.RoleClaim(req.RoleClaim)
		if claim != domain.RoleClaimStandard && claim != domain.RoleClaimAdmin {
			return fiber.NewError(http.StatusBadRequest, "role_claim must be STANDARD or ADMIN")
		}
	}

	validUntil, err := parseDatePtr(req.ValidUntil)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "valid_until must be YYYY-MM-DD")
	}

	identity, err := h.identities.Provision(c.Context(), service.ProvisionInput{
		ID:         req.ID,
		Name:       req.Name,
		RoleClaim:  claim,
		ValidUntil: validUntil,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": identityResponse(identity)})
}

// Get handles GET /api/identities/:id.
func (h *IdentitiesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	identity, err := h.identities.Get(c.Context(), principal.IdentityID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": identityResponse(identity)})
}

// IssueCredential handles POST /api/identities/:id/credential.
func (h *IdentitiesHandler) IssueCredential(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.IssueCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "name required")
	}
	validUntil, err := parseDatePtr(req.ValidUntil)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "valid_until must be YYYY-MM-DD")
	}

	identity, err := h.credentials.Issue(c.Context(), principal.IdentityID, c.Params("id"), req.Name, validUntil)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CredentialResponse{
		IdentityID: identity.ID,
		Credential: derefString(identity.Credential),
	}})
}

// RotateCredential handles POST /api/identities/:id/credential/rotate.
func (h *IdentitiesHandler) RotateCredential(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	identity, err := h.credentials.Rotate(c.Context(), principal.IdentityID, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.CredentialResponse{
		IdentityID: identity.ID,
		Credential: derefString(identity.Credential),
	}})
}

// UpdateSubscription handles PUT /api/identities/:id/subscription.
func (h *IdentitiesHandler) UpdateSubscription(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.UpdateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	validUntil, err := parseDatePtr(req.ValidUntil)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "valid_until must be YYYY-MM-DD")
	}

	identity, err := h.identities.UpdateSubscription(c.Context(), principal.IdentityID, c.Params("id"), validUntil)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": identityResponse(identity)})
}

// Remove handles DELETE /api/identities/:id.
func (h *IdentitiesHandler) Remove(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	if err := h.identities.Remove(c.Context(), principal.IdentityID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// History handles GET /api/identities/:id/scans.
func (h *IdentitiesHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	events, err := h.scans.HistoryFor(c.Context(), principal.IdentityID, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}

	out := make([]dto.ScanEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, dto.ScanEventResponse{
			ID:         event.ID,
			IdentityID: event.IdentityID,
			Kind:       string(event.Kind),
			Actor:      event.Actor,
			Location:   event.Location,
			Note:       event.Note,
			OccurredAt: event.OccurredAt,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// GetMembership handles GET /api/identities/:id/membership.
func (h *IdentitiesHandler) GetMembership(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	membership, err := h.identities.GetMembership(c.Context(), principal.IdentityID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MembershipResponse{
		IdentityID:     membership.IdentityID,
		Name:           membership.Name,
		LastActivityAt: membership.LastActivityAt,
	}})
}

// GrantMembership handles PUT /api/identities/:id/membership.
func (h *IdentitiesHandler) GrantMembership(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	if err := h.identities.GrantRole(c.Context(), principal.IdentityID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RevokeMembership handles DELETE /api/identities/:id/membership.
func (h *IdentitiesHandler) RevokeMembership(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	if err := h.identities.RevokeRole(c.Context(), principal.IdentityID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func identityResponse(identity *domain.Identity) dto.IdentityResponse {
	resp := dto.IdentityResponse{
		ID:                 identity.ID,
		Name:               identity.Name,
		SubscriptionStatus: string(domain.ResolveSubscription(identity.ValidUntil, time.Now())),
		HasCredential:      identity.HasCredential(),
		CreatedAt:          identity.CreatedAt,
	}
	if identity.ValidUntil != nil {
		formatted := identity.ValidUntil.Format(dateLayout)
		resp.ValidUntil = &formatted
	}
	return resp
}

func parseDatePtr(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
