package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video2podcast/internal/llm"
	"github.com/codebuildervaibhav/video2podcast/internal/queue"
	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

// JobDefaults fills request fields the caller left blank.
type JobDefaults struct {
	TargetLang string
	Host       string
	Guest      string
	Backend    string
}

// JobOptions are the per-request dialogue settings shared by every input
type JobOptions struct {
	Name       string `json:"name" form:"name" query:"name"`
	TargetLang string `json:"target_lang" form:"target_lang" query:"target_lang"`
	Host       string `json:"host" form:"host" query:"host"`
	Guest      string `json:"guest" form:"guest" query:"guest"`
	Backend    string `json:"backend" form:"backend" query:"backend"`
}

func (o JobOptions) validate() error {
	if o.Backend == "" {
		return nil
	}
	for _, b := range llm.Backends {
		if strings.EqualFold(o.Backend, b) {
			return nil
		}
	}
	return errors.New("unknown backend " + o.Backend + " (choose one of " + strings.Join(llm.Backends, ", ") + ")")
}

func (o JobOptions) apply(job *queue.Job, d JobDefaults) {
	job.TargetLang = firstNonEmpty(o.TargetLang, d.TargetLang)
	job.Host = firstNonEmpty(o.Host, d.Host)
	job.Guest = firstNonEmpty(o.Guest, d.Guest)
	job.Backend = strings.ToLower(firstNonEmpty(o.Backend, d.Backend))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func errorJSON(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

// enqueue hands the job to the pool and writes the 202 reply.
func enqueue(c *fiber.Ctx, pool *queue.WorkerPool, job *queue.Job, message string) error {
	if err := pool.EnqueueJob(job); err != nil {
		slog.Warn("job rejected", slog.String("job_id", job.ID), slog.Any("error", err))
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrPoolClosed) {
			return errorJSON(c, fiber.StatusServiceUnavailable, "ERR_QUEUE_FULL", err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_ENQUEUE_FAILED", err.Error())
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  types.StatusQueued,
		"message": message,
	})
}
