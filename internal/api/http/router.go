package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairdesk/internal/api/http/handlers"
	"github.com/spec-kit/repairdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	ServiceRequests *handlers.ServiceRequestsHandler
	Quotes          *handlers.QuotesHandler
	Pickups         *handlers.PickupsHandler
	Jobs            *handlers.JobsHandler
	Streams         *handlers.StreamsHandler
	Customers       *handlers.CustomersHandler
	Staff           *handlers.StaffHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/customers/register", cfg.Customers.Register)
	authGroup.Post("/customers/login", cfg.Customers.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)

	// Public intake and tracking. A customer token, when sent, links the request.
	app.Post("/service-requests", cfg.AuthMiddleware.OptionalHandle, cfg.ServiceRequests.Create)
	app.Get("/track/:ticketNumber", cfg.ServiceRequests.Track)

	quotes := app.Group("/quotes")
	quotes.Post("", cfg.AuthMiddleware.OptionalHandle, cfg.Quotes.Create)
	quotes.Post("/:id/accept", cfg.Quotes.Accept)
	quotes.Post("/:id/decline", cfg.Quotes.Decline)
	quotes.Post("/:id/convert", cfg.Quotes.Convert)

	requests := app.Group("/service-requests", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	requests.Get("", cfg.ServiceRequests.List)
	requests.Get("/:id", cfg.ServiceRequests.Get)
	requests.Patch("/:id", cfg.ServiceRequests.Update)
	requests.Get("/:id/events", cfg.ServiceRequests.Events)
	requests.Get("/:id/next-stages", cfg.ServiceRequests.NextStages)
	requests.Post("/:id/transition-stage", cfg.ServiceRequests.Transition)
	requests.Put("/:id/expected-dates", cfg.ServiceRequests.ExpectedDates)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	admin.Get("/quotes", cfg.Quotes.AdminList)
	admin.Patch("/quotes/:id/price", cfg.Quotes.Price)
	admin.Get("/pickups", cfg.Pickups.List)
	admin.Patch("/pickups/:id/status", cfg.Pickups.UpdateStatus)
	admin.Get("/jobs/:id", cfg.Jobs.Get)
	admin.Patch("/jobs/:id/technician", cfg.Jobs.AssignTechnician)
	admin.Get("/staff", cfg.Staff.ListStaff)
	admin.Post("/staff", cfg.Staff.CreateStaff)
	admin.Patch("/staff/:id", cfg.Staff.UpdateStaff)
	admin.Get("/events", cfg.Streams.Admin)

	customer := app.Group("/customer", cfg.AuthMiddleware.Handle, auth.RequireUser())
	customer.Get("/service-requests", cfg.ServiceRequests.CustomerList)
	customer.Get("/service-requests/:id", cfg.ServiceRequests.CustomerGet)
	customer.Get("/events", cfg.Streams.Customer)
}
