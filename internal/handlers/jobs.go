package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video2podcast/internal/queue"
	"github.com/codebuildervaibhav/video2podcast/internal/storage"
	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

const defaultListLimit = 50

// JobsHandler exposes job status and the text artifacts of finished jobs
type JobsHandler struct {
	registry *queue.Registry
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(registry *queue.Registry) *JobsHandler {
	return &JobsHandler{registry: registry}
}

// List returns recent jobs, newest first
func (h *JobsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}
	jobs, err := h.registry.List(limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_LIST_FAILED", err.Error())
	}
	return c.JSON(jobs)
}

// Get returns one job's status, stage, error and result
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	rec, ok, err := h.lookup(c)
	if !ok {
		return err
	}
	return c.JSON(rec)
}

// Dialogue returns the generated dialogue text
func (h *JobsHandler) Dialogue(c *fiber.Ctx) error {
	return h.artifact(c, types.ArtifactDialogue)
}

// Transcript returns the whisper transcript text
func (h *JobsHandler) Transcript(c *fiber.Ctx) error {
	return h.artifact(c, types.ArtifactTranscript)
}

func (h *JobsHandler) artifact(c *fiber.Ctx, kind string) error {
	rec, ok, err := h.lookup(c)
	if !ok {
		return err
	}
	if rec.Status != types.StatusCompleted {
		return errorJSON(c, fiber.StatusConflict, "ERR_NOT_READY", "Job is "+rec.Status)
	}
	if rec.Result == nil || rec.Result.Artifacts[kind] == "" {
		return errorJSON(c, fiber.StatusNotFound, "ERR_NO_ARTIFACT", "Job has no "+kind)
	}

	text, err := storage.ReadText(rec.Result.Artifacts[kind])
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_READ_FAILED", "Failed to read "+kind+" file")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(text)
}

// lookup resolves :id. When ok is false the 404 has been written and err is
// what the handler should return.
func (h *JobsHandler) lookup(c *fiber.Ctx) (rec types.JobRecord, ok bool, err error) {
	rec, err = h.registry.Get(c.Params("id"))
	if errors.Is(err, queue.ErrJobNotFound) {
		return rec, false, errorJSON(c, fiber.StatusNotFound, "ERR_JOB_NOT_FOUND", "Job not found")
	}
	if err != nil {
		return rec, false, err
	}
	return rec, true, nil
}
