package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Assignment     *handlers.AssignmentHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/remaining-time", cfg.Tickets.RemainingTime)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/escalations", cfg.Tickets.ListEscalations)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/evaluation", cfg.Tickets.Evaluate)

	staff := auth.RequireStaff()
	tickets.Patch("/:id/status", staff, cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/escalations", staff, cfg.Tickets.Escalate)
	tickets.Post("/:id/reopen/response", staff, cfg.Tickets.RespondReopen)
	tickets.Post("/:id/close", staff, cfg.Tickets.ForceClose)

	api.Get("/services/:id/technician", staff, cfg.Assignment.SuggestTechnician)
}
