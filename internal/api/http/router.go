package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	EmailLogs      *handlers.EmailLogsHandler
	AuthMiddleware *auth.AuthMiddleware
	Notifications  fiber.Handler
	UpgradeGate    fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	api.Post("/agents", auth.RequireAgent(), cfg.Users.RegisterAgent)
	api.Get("/email-logs", auth.RequireAgent(), cfg.EmailLogs.List)

	api.Post("/tickets", cfg.Tickets.Create)
	api.Get("/tickets", cfg.Tickets.List)
	api.Get("/tickets/:id", cfg.Tickets.Get)
	api.Patch("/tickets/:id", cfg.Tickets.Update)
	api.Delete("/tickets/:id", auth.RequireAgent(), cfg.Tickets.Delete)
	api.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
	api.Get("/tickets/:id/comments", cfg.Tickets.ListComments)

	// Websocket auth happens inside the upgraded handler itself, since the
	// token travels as a query parameter rather than a header.
	app.Get("/ws/notifications", cfg.UpgradeGate, cfg.Notifications)
}
