package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Chat           *handlers.ChatHandler
	Tickets        *handlers.TicketsHandler
	Metrics        nethttp.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)

	chat := app.Group("/chat", cfg.AuthMiddleware.Handle, auth.RequireUser())
	chat.Post("", cfg.Chat.Send)
	chat.Post("/reset", cfg.Chat.Reset)
	chat.Get("/history", cfg.Chat.History)
	chat.Post("/ticket", cfg.Chat.OpenTicket)

	app.Get("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Tickets.ListTickets)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleAdmin, domain.StaffRoleTeamLead, domain.StaffRoleAgent))
	admin.Get("/activity", cfg.Staff.Activity)
}
