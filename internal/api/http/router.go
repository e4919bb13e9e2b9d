package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/permission"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Workload       *handlers.WorkloadHandler
	Analytics      *handlers.AnalyticsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Authorizer     auth.Authorizer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("", cfg.AuthMiddleware.Handle)
	guard := func(action permission.Action) fiber.Handler {
		return auth.RequirePermission(cfg.Authorizer, action)
	}

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Post("/:id/assign", guard(permission.ActionAssignTicket), cfg.Workload.AssignTicket)
	tickets.Post("/:id/auto-assign", guard(permission.ActionAssignTicket), cfg.Workload.AutoAssign)

	staff := api.Group("/staff")
	staff.Get("/workload", guard(permission.ActionViewWorkload), cfg.Workload.Workload)
	staff.Post("/balance", guard(permission.ActionAssignTicket), cfg.Workload.Balance)

	api.Get("/analytics/stats", guard(permission.ActionViewAnalytics), cfg.Analytics.Stats)

	users := api.Group("/users", guard(permission.ActionManageUsers))
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Patch("/:identity", cfg.Users.Update)
}
