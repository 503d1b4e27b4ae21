package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/video2podcast/internal/queue"
	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

const gdriveDownloadURL = "https://drive.google.com/uc?export=download&id=%s"

var (
	gdriveFilePath = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	gdriveIDParam  = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	gdriveBareID   = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// GDriveHandler handles public Google Drive links
type GDriveHandler struct {
	workerPool  *queue.WorkerPool
	tempDir     string
	maxSizeMB   int
	defaults    JobDefaults
	client      *http.Client
	downloadURL string
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(workerPool *queue.WorkerPool, tempDir string, maxSizeMB int, defaults JobDefaults) *GDriveHandler {
	return &GDriveHandler{
		workerPool:  workerPool,
		tempDir:     tempDir,
		maxSizeMB:   maxSizeMB,
		defaults:    defaults,
		client:      &http.Client{Timeout: 10 * time.Minute},
		downloadURL: gdriveDownloadURL,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL string `json:"url" form:"url"`
	JobOptions
}

// Handle downloads the shared file and enqueues it like an upload
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BODY", "Invalid request body")
	}
	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_URL", "URL is required")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_URL", "Invalid Google Drive URL")
	}
	if err := req.validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BACKEND", err.Error())
	}
	if req.Name == "" {
		req.Name = "gdrive_file"
	}

	jobID := uuid.New().String()
	tempPath := filepath.Join(h.tempDir, jobID+".mp3")

	slog.Info("downloading from google drive", slog.String("file_id", fileID))
	status, err := h.fetch(c, fmt.Sprintf(h.downloadURL, fileID), tempPath)
	if err != nil {
		os.Remove(tempPath)
		slog.Error("google drive download failed", slog.String("file_id", fileID), slog.Any("error", err))
		if status != 0 && status != http.StatusOK {
			return errorJSON(c, fiber.StatusBadRequest, "ERR_FILE_NOT_ACCESSIBLE", "File not accessible (may be private or doesn't exist)")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_DOWNLOAD_FAILED", "Failed to download file from Google Drive")
	}

	job := queue.NewJob(jobID, req.Name, types.SourceGDrive, tempPath)
	req.apply(job, h.defaults)

	return enqueue(c, h.workerPool, job, "Google Drive file downloaded, processing started")
}

// fetch copies the remote file to path and reports the HTTP status seen.
func (h *GDriveHandler) fetch(c *fiber.Ctx, url, path string) (int, error) {
	httpReq, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return resp.StatusCode, err
	}
	defer out.Close()

	var body io.Reader = resp.Body
	if h.maxSizeMB > 0 {
		limit := int64(h.maxSizeMB) * 1024 * 1024
		body = io.LimitReader(resp.Body, limit+1)
		n, err := io.Copy(out, body)
		if err != nil {
			return resp.StatusCode, err
		}
		if n > limit {
			return resp.StatusCode, fmt.Errorf("file exceeds %dMB", h.maxSizeMB)
		}
		return resp.StatusCode, nil
	}
	_, err = io.Copy(out, body)
	return resp.StatusCode, err
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// Pattern 1: https://drive.google.com/file/d/{ID}/view
	if matches := gdriveFilePath.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	// Pattern 2: https://drive.google.com/open?id={ID}
	if matches := gdriveIDParam.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	// Pattern 3: Direct ID (25-40 characters)
	if matches := gdriveBareID.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	return ""
}
