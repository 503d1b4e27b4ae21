package handlers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/video2podcast/internal/queue"
	"github.com/codebuildervaibhav/video2podcast/internal/types"
	"github.com/codebuildervaibhav/video2podcast/internal/youtube"
)

// ProcessHandler starts the video to podcast pipeline for a video link
type ProcessHandler struct {
	workerPool *queue.WorkerPool
	defaults   JobDefaults
}

// NewProcessHandler creates a new process handler
func NewProcessHandler(workerPool *queue.WorkerPool, defaults JobDefaults) *ProcessHandler {
	return &ProcessHandler{
		workerPool: workerPool,
		defaults:   defaults,
	}
}

// ProcessRequest is accepted as a JSON body or as query parameters
type ProcessRequest struct {
	URL string `json:"url" form:"url" query:"url"`
	JobOptions
}

// Handle validates the request, enqueues a job and answers 202 with its id.
// The pipeline itself runs on the worker pool.
func (h *ProcessHandler) Handle(c *fiber.Ctx) error {
	var req ProcessRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BODY", "Invalid request body")
		}
	} else if err := c.QueryParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_QUERY", "Invalid query parameters")
	}

	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_URL", "URL is required")
	}
	if err := req.validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BACKEND", err.Error())
	}

	id := uuid.New().String()
	var job *queue.Job
	if videoID, err := youtube.ExtractVideoID(req.URL); err == nil {
		if req.Name == "" {
			req.Name = "youtube_" + videoID
		}
		job = queue.NewJob(id, req.Name, types.SourceYouTube, "https://www.youtube.com/watch?v="+videoID)
	} else {
		// Any other site is left to yt-dlp, which reports unsupported URLs itself.
		if !isHTTPURL(req.URL) {
			return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_URL", "URL must be a YouTube video id or an http(s) link")
		}
		if req.Name == "" {
			req.Name = "video_" + id[:8]
		}
		job = queue.NewJob(id, req.Name, types.SourceURL, req.URL)
	}
	req.apply(job, h.defaults)

	return enqueue(c, h.workerPool, job, "Video queued; follow progress at /jobs/"+job.ID)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
