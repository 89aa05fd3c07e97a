// app/routes/routes.go
package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"speeddating/app/controllers"
	"speeddating/app/middlewares"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Handlers groups everything the HTTP routes dispatch to
type Handlers struct {
	Sessions  *controllers.SessionController
	Feedback  *controllers.FeedbackController
	System    *controllers.SystemController
	JWTSecret string
	Timeout   time.Duration
	Checks    map[string]HealthCheck
	Name      string
	Version   string
}

func SetupRoutes(app *fiber.App, h Handlers) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		status := "ok"
		services := map[string]string{}
		for name, check := range h.Checks {
			if err := check(ctx); err != nil {
				services[name] = "error: " + err.Error()
				status = "degraded"
				continue
			}
			services[name] = "ok"
		}

		code := fiber.StatusOK
		if status != "ok" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services":  services,
		})
	})

	// API version endpoint
	app.Get("/api/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":   h.Version,
			"name":      h.Name,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := app.Group("/api/v1", middlewares.JWTMiddleware(h.JWTSecret), middlewares.RequestTimeout(h.Timeout))

	sessions := api.Group("/sessions")
	sessions.Post("", h.Sessions.Create)
	sessions.Get("", h.Sessions.FindAvailable)
	sessions.Get("/mine", h.Sessions.Mine)
	sessions.Get("/:id", h.Sessions.Get)
	sessions.Post("/:id/register", h.Sessions.Register)
	sessions.Post("/:id/leave", h.Sessions.Leave)
	sessions.Post("/:id/cancel", h.Sessions.Cancel)
	sessions.Patch("/:id/status", h.Sessions.UpdateStatus)
	sessions.Post("/:id/rounds/advance", h.Sessions.AdvanceRound)
	sessions.Post("/:id/feedback", h.Feedback.Submit)
	sessions.Get("/:id/feedback", h.Feedback.Get)

	api.Get("/stats", h.System.Stats)
	api.Post("/admin/scheduler/run", h.System.RunScheduler)
}
