package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video2podcast/internal/logging"
	"github.com/codebuildervaibhav/video2podcast/internal/queue"
)

// Version is reported by /health.
const Version = "1.0.0"

// Server bundles what the HTTP routes need
type Server struct {
	WorkerPool    *queue.WorkerPool
	Registry      *queue.Registry
	Logs          *logging.Buffer
	TempDir       string
	MaxFileSizeMB int
	Defaults      JobDefaults
}

// Register mounts every route on app
func Register(app *fiber.App, s Server) {
	process := NewProcessHandler(s.WorkerPool, s.Defaults)
	upload := NewUploadHandler(s.WorkerPool, s.TempDir, s.MaxFileSizeMB, s.Defaults)
	gdrive := NewGDriveHandler(s.WorkerPool, s.TempDir, s.MaxFileSizeMB, s.Defaults)
	jobs := NewJobsHandler(s.Registry)
	watch := NewWatchHandler(s.Registry)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": Version,
		})
	})

	app.Post("/process", process.Handle)
	app.Post("/upload", upload.Handle)
	app.Post("/gdrive", gdrive.Handle)

	app.Get("/jobs", jobs.List)
	app.Get("/jobs/:id", jobs.Get)
	app.Get("/jobs/:id/dialogue", jobs.Dialogue)
	app.Get("/jobs/:id/transcript", jobs.Transcript)

	// WebSocket route
	app.Use("/ws", watch.Upgrade)
	app.Get("/ws/jobs/:id", websocket.New(watch.Handle))

	app.Get("/logs", func(c *fiber.Ctx) error {
		var lines []string
		if s.Logs != nil {
			lines = s.Logs.Lines()
		}
		return c.JSON(fiber.Map{"logs": lines})
	})
}
