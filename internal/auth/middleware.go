package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/repository"
	apperrors "github.com/spec-kit/access-gate/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. RoleClaim is the hint minted
// into the token at registration; it is not consulted for authorization.
type Principal struct {
	IdentityID string
	Identity   *domain.Identity
	RoleClaim  domain.RoleClaim
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens     *TokenManager
	identities repository.IdentityRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, identities repository.IdentityRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, identities: identities}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	identity, err := m.identities.GetByID(c.Context(), claims.IdentityID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("identity not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{
		IdentityID: identity.ID,
		Identity:   identity,
		RoleClaim:  claims.RoleClaim,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
