package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"

	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

var (
	// ErrQueueFull is returned by Enqueue when the buffer is exhausted.
	ErrQueueFull = errors.New("job queue is full")
	// ErrPoolClosed is returned by Enqueue after Shutdown.
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// ProcessFunc runs the pipeline for one job, reporting stage changes.
type ProcessFunc func(ctx context.Context, job *Job, stage func(string)) (*types.PipelineResult, error)

// WorkerPool manages a pool of workers processing podcast jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	registry    *Registry
	process     ProcessFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount, queueSize int, registry *Registry, process ProcessFunc) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		registry:    registry,
		process:     process,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)
	slog.Info("starting worker pool", slog.Int("workers", wp.workerCount), slog.Int("queue_size", cap(wp.jobQueue)))
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// EnqueueJob registers the job and hands it to a worker. A full queue is
// reported immediately and the job is recorded as FAILED.
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return ErrPoolClosed
	}

	job.Status = types.StatusQueued
	wp.registry.Add(job)

	select {
	case wp.jobQueue <- job:
		slog.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("source", job.SourceType),
			slog.String("name", job.RequestName))
		return nil
	default:
		wp.registry.Fail(job.ID, ErrQueueFull)
		cleanupTempFile(job)
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued work to drain. When ctx
// expires first, running pipelines are cancelled.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobQueue)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.stop()
		return nil
	case <-ctx.Done():
		wp.stop()
		<-done
		return ctx.Err()
	}
}

func (wp *WorkerPool) stop() {
	if wp.cancel != nil {
		wp.cancel()
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	slog.Debug("worker started", slog.Int("worker", id))

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("worker panic",
						slog.Int("worker", id),
						slog.String("job_id", job.ID),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())))
					wp.registry.Fail(job.ID, fmt.Errorf("worker panic: %v", r))
				}
			}()

			wp.processJob(id, job)
		}()
		cleanupTempFile(job)
	}
}

// processJob runs the pipeline and records the outcome on the job
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	if err := wp.ctx.Err(); err != nil {
		wp.registry.Fail(job.ID, fmt.Errorf("not started: %w", err))
		return
	}

	slog.Info("processing job", slog.Int("worker", workerID), slog.String("job_id", job.ID))
	wp.registry.Update(job.ID, func(j *Job) { j.Status = types.StatusProcessing })

	result, err := wp.process(wp.ctx, job, func(stage string) {
		slog.Info("job stage", slog.String("job_id", job.ID), slog.String("stage", stage))
		wp.registry.SetStage(job.ID, stage)
	})
	if err != nil {
		slog.Error("job failed", slog.Int("worker", workerID), slog.String("job_id", job.ID), slog.Any("error", err))
		wp.registry.Fail(job.ID, err)
		return
	}

	wp.registry.Complete(job.ID, result)
	slog.Info("job completed", slog.Int("worker", workerID), slog.String("job_id", job.ID))
}

// cleanupTempFile removes an uploaded or fetched input once it is no longer needed
func cleanupTempFile(job *Job) {
	if types.IsRemote(job.SourceType) || job.Source == "" {
		return
	}
	if err := os.Remove(job.Source); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to cleanup temp file", slog.String("path", job.Source), slog.Any("error", err))
	}
}
