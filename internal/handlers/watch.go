package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video2podcast/internal/queue"
)

// WatchHandler pushes job snapshots over a WebSocket until the job finishes
type WatchHandler struct {
	registry *queue.Registry
}

// NewWatchHandler creates a new watch handler
func NewWatchHandler(registry *queue.Registry) *WatchHandler {
	return &WatchHandler{registry: registry}
}

// Upgrade rejects plain HTTP requests on websocket routes
func (h *WatchHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle streams one JSON message per state change. Jobs from earlier runs
// are sent once as their stored snapshot.
func (h *WatchHandler) Handle(c *websocket.Conn) {
	defer c.Close()
	jobID := c.Params("id")

	updates, cancel, ok := h.registry.Watch(jobID)
	if !ok {
		rec, err := h.registry.Get(jobID)
		if err != nil {
			c.WriteJSON(fiber.Map{"error": "Job not found", "code": "ERR_JOB_NOT_FOUND"})
			return
		}
		c.WriteJSON(rec)
		return
	}
	defer cancel()

	// Reader loop: a client disconnect stops the watch
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	slog.Debug("websocket watch started", slog.String("job_id", jobID))
	for rec := range updates {
		if err := c.WriteJSON(rec); err != nil {
			slog.Debug("websocket write failed", slog.String("job_id", jobID), slog.Any("error", err))
			return
		}
	}
	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
}
