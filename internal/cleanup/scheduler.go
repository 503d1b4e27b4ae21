package cleanup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler handles cleanup of temporary files
type Scheduler struct {
	cron    *cron.Cron
	tempDir string
	maxAge  time.Duration
	now     func() time.Time
}

// NewScheduler creates a cleanup scheduler running on a cron spec such as
// "@every 30m" or "0 */2 * * *".
func NewScheduler(tempDir, spec string, maxAgeHours int) (*Scheduler, error) {
	if maxAgeHours <= 0 {
		maxAgeHours = 24
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tempDir: tempDir,
		maxAge:  time.Duration(maxAgeHours) * time.Hour,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs an initial sweep and then schedules the periodic one.
func (s *Scheduler) Start() {
	slog.Info("running initial temp file cleanup", slog.String("dir", s.tempDir))
	s.Sweep()
	s.cron.Start()
	slog.Info("cleanup scheduler started", slog.Duration("max_age", s.maxAge))
}

// Stop stops the scheduler, waiting briefly for a running sweep.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		slog.Warn("cleanup sweep still running at shutdown")
	}
	slog.Info("cleanup scheduler stopped")
}

// Sweep removes files older than the max age from the temp directory and
// returns how many were deleted.
func (s *Scheduler) Sweep() int {
	now := s.now()

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		size := info.Size()
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to delete old file", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		deletedCount++
		deletedSize += size
		slog.Debug("deleted old temp file",
			slog.String("file", filepath.Base(path)),
			slog.Duration("age", age.Round(time.Hour)),
			slog.Int64("size_kb", size/1024))
		return nil
	})
	if err != nil {
		slog.Error("error during cleanup", slog.Any("error", err))
	}

	if deletedCount > 0 {
		slog.Info("cleanup complete",
			slog.Int("files", deletedCount),
			slog.String("freed", fmt.Sprintf("%.2fMB", float64(deletedSize)/(1024*1024))))
	}
	return deletedCount
}

// EnsureDir creates dir if it doesn't exist
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	slog.Debug("directory ready", slog.String("dir", dir))
	return nil
}
