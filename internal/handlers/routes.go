package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/logging"
)

// Version is reported by /health.
const Version = "1.0.0"

// Routes holds what the HTTP API serves.
type Routes struct {
	Tasks        TaskService
	Videos       VideoLister
	Logs         *logging.Buffer
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// Register mounts every endpoint on app.
func Register(app *fiber.App, r Routes) {
	logger := r.Logger.With().Str("component", "http").Logger()

	createHandler := NewCreateHandler(r.Tasks, logger)
	statusHandler := NewStatusHandler(r.Tasks, r.PollInterval, logger)
	videosHandler := NewVideosHandler(r.Videos)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": Version,
		})
	})

	app.Post("/create", createHandler.Handle)
	app.Get("/status/:id", statusHandler.Handle)
	app.Get("/videos", videosHandler.Handle)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status/:id", websocket.New(statusHandler.HandleWS))

	app.Get("/logs", func(c *fiber.Ctx) error {
		var lines []string
		if r.Logs != nil {
			lines = r.Logs.Lines()
		}
		return c.JSON(fiber.Map{"logs": lines})
	})
}
