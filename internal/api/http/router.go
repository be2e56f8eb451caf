package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-gate/internal/api/http/handlers"
	"github.com/spec-kit/access-gate/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Identities     *handlers.IdentitiesHandler
	Scans          *handlers.ScansHandler
	Analytics      *handlers.AnalyticsHandler
	Tokens         *handlers.TokensHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	// Provisioning-key gated endpoints used by the external registration flow.
	api.Post("/tokens", cfg.Tokens.Mint)
	api.Post("/identities", cfg.Identities.Provision)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/identities/:id", cfg.Identities.Get)
	protected.Put("/identities/:id/subscription", cfg.Identities.UpdateSubscription)
	protected.Delete("/identities/:id", cfg.Identities.Remove)
	protected.Post("/identities/:id/credential", cfg.Identities.IssueCredential)
	protected.Post("/identities/:id/credential/rotate", cfg.Identities.RotateCredential)
	protected.Get("/identities/:id/scans", cfg.Identities.History)
	protected.Get("/identities/:id/membership", cfg.Identities.GetMembership)
	protected.Put("/identities/:id/membership", cfg.Identities.GrantMembership)
	protected.Delete("/identities/:id/membership", cfg.Identities.RevokeMembership)

	protected.Post("/scans", cfg.Scans.Validate)
	protected.Get("/analytics/rollup", cfg.Analytics.Rollup)
}
