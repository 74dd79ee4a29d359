package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/thesishub/thesishub-api/internal/config"
	"github.com/thesishub/thesishub-api/internal/handler"
	"github.com/thesishub/thesishub-api/internal/middleware"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProjectHandler      *handler.ProjectHandler
	StageHandler        *handler.StageHandler
	TopicHandler        *handler.TopicHandler
	NotificationHandler *handler.NotificationHandler
	MessageHandler      *handler.MessageHandler
	DashboardHandler    *handler.DashboardHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	supervisorOnly := middleware.RequireRole(models.RoleSupervisor, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.ProjectHandler != nil {
		projects := api.Group("/projects", jwtMiddleware)
		deps.ProjectHandler.Register(projects, adminOnly)

		if deps.StageHandler != nil {
			deps.StageHandler.Register(projects, supervisorOnly)
		}
		if deps.MessageHandler != nil {
			deps.MessageHandler.Register(projects, middleware.RateLimit("project-messages", 30, time.Minute))
		}
	}

	if deps.TopicHandler != nil {
		topics := api.Group("/topics", jwtMiddleware)
		deps.TopicHandler.Register(topics, supervisorOnly)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.DashboardHandler != nil {
		dashboard := api.Group("/dashboard", jwtMiddleware, supervisorOnly)
		deps.DashboardHandler.Register(dashboard)
	}
}
