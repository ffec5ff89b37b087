package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pgh-dev/moim-api/internal/config"
	"github.com/pgh-dev/moim-api/internal/handler"
	"github.com/pgh-dev/moim-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GroupHandler  *handler.GroupHandler
	RoomHandler   *handler.RoomHandler
	ChatHandler   *handler.ChatHandler
	UploadHandler *handler.UploadHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	groups := api.Group("/groups")
	rooms := api.Group("/rooms")

	if deps.GroupHandler != nil {
		deps.GroupHandler.Register(groups)
	}

	if deps.RoomHandler != nil {
		deps.RoomHandler.Register(groups, rooms)
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat")
		deps.ChatHandler.Register(chat)
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/uploads")
		deps.UploadHandler.Register(uploads)
	}
}
