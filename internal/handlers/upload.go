package handlers

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/video2podcast/internal/queue"
	"github.com/codebuildervaibhav/video2podcast/internal/transcription"
	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

// UploadHandler handles audio file uploads; the pipeline skips the download stage
type UploadHandler struct {
	workerPool *queue.WorkerPool
	tempDir    string
	maxSizeMB  int
	defaults   JobDefaults
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(workerPool *queue.WorkerPool, tempDir string, maxSizeMB int, defaults JobDefaults) *UploadHandler {
	return &UploadHandler{
		workerPool: workerPool,
		tempDir:    tempDir,
		maxSizeMB:  maxSizeMB,
		defaults:   defaults,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	// Get uploaded file
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_FILE", "No file uploaded")
	}

	var opts JobOptions
	if err := c.BodyParser(&opts); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BODY", "Invalid form fields")
	}
	if err := opts.validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BACKEND", err.Error())
	}
	if opts.Name == "" {
		opts.Name = "untitled"
	}

	// Validate file size
	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_FILE_TOO_LARGE", fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB))
	}

	// Validate file format
	if !transcription.ValidateAudioFormat(file.Filename) {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_FORMAT", "Unsupported audio format")
	}

	// Generate unique filename
	jobID := uuid.New().String()
	tempPath := filepath.Join(h.tempDir, jobID+filepath.Ext(file.Filename))

	if err := c.SaveFile(file, tempPath); err != nil {
		slog.Error("failed to save uploaded file", slog.String("path", tempPath), slog.Any("error", err))
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_SAVE_FAILED", "Failed to save file")
	}

	job := queue.NewJob(jobID, opts.Name, types.SourceUpload, tempPath)
	opts.apply(job, h.defaults)

	return enqueue(c, h.workerPool, job, "File uploaded successfully, processing started")
}
