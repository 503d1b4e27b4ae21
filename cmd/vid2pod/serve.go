package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video2podcast/internal/cleanup"
	"github.com/codebuildervaibhav/video2podcast/internal/config"
	"github.com/codebuildervaibhav/video2podcast/internal/download"
	"github.com/codebuildervaibhav/video2podcast/internal/handlers"
	"github.com/codebuildervaibhav/video2podcast/internal/llm"
	"github.com/codebuildervaibhav/video2podcast/internal/logging"
	"github.com/codebuildervaibhav/video2podcast/internal/pipeline"
	"github.com/codebuildervaibhav/video2podcast/internal/queue"
	"github.com/codebuildervaibhav/video2podcast/internal/storage"
	"github.com/codebuildervaibhav/video2podcast/internal/transcription"
	"github.com/codebuildervaibhav/video2podcast/internal/translate"
	"github.com/codebuildervaibhav/video2podcast/internal/youtube"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	// Custom logger setup: stdout plus the ring served at /logs
	logBuffer := logging.NewBuffer(1000)
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logging.Setup(level, os.Stdout, logBuffer)

	// Ensure directories exist
	if err := cleanup.EnsureDir(cfg.Storage.TempDir); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := cleanup.EnsureDir(cfg.Storage.OutputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	slog.Info("initializing components")

	// Whisper transcriber
	transcriber := transcription.NewWhisperTranscriber(
		cfg.Whisper.Binary,
		cfg.Whisper.ModelDir,
		cfg.Whisper.ModelName,
		cfg.Whisper.Threads,
		cfg.Whisper.Language,
	)
	if err := transcriber.CheckModel(); err != nil {
		return fmt.Errorf("failed to initialize whisper: %w", err)
	}

	// Database
	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if n, err := db.MarkInterrupted(); err != nil {
		return fmt.Errorf("failed to reconcile unfinished jobs: %w", err)
	} else if n > 0 {
		slog.Warn("marked unfinished jobs as failed", slog.Int64("jobs", n))
	}

	runner := &pipeline.Runner{
		Downloader:  download.NewDownloader(cfg.Download.Binary, cfg.Storage.TempDir, cfg.Download.AudioFormat),
		Normalizer:  transcription.NewFFmpegNormalizer(cfg.Whisper.FFmpeg, cfg.Storage.TempDir),
		Transcriber: transcriber,
		Generators: func(ctx context.Context, backend string) (llm.DialogueGenerator, error) {
			return llm.NewDialogueGenerator(ctx, cfg, backend)
		},
		Store:          storage.NewLocalStorage(cfg.Storage.OutputDir),
		DefaultBackend: cfg.Dialogue.Backend,
		CommentLimit:   cfg.YouTube.CommentLimit,
	}
	if err := wireOptionalSteps(ctx, runner); err != nil {
		return err
	}

	// Worker pool
	registry := queue.NewRegistry(db)
	workerPool := queue.NewWorkerPool(cfg.Workers.Count, cfg.Workers.QueueSize, registry, runner.ProcessFunc())
	workerPool.Start(context.Background())

	// Cleanup scheduler
	cleanupScheduler, err := cleanup.NewScheduler(cfg.Storage.TempDir, cfg.Cleanup.Schedule, cfg.Cleanup.MaxAgeHours)
	if err != nil {
		return err
	}
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: io.MultiWriter(os.Stdout, logBuffer)}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handlers.Register(app, handlers.Server{
		WorkerPool:    workerPool,
		Registry:      registry,
		Logs:          logBuffer,
		TempDir:       cfg.Storage.TempDir,
		MaxFileSizeMB: cfg.Limits.MaxFileSizeMB,
		Defaults: handlers.JobDefaults{
			TargetLang: cfg.Dialogue.Language,
			Host:       cfg.Dialogue.Host,
			Guest:      cfg.Dialogue.Guest,
			Backend:    cfg.Dialogue.Backend,
		},
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("server starting", slog.String("addr", addr))
	slog.Info("endpoints: POST /process /upload /gdrive; GET /jobs /jobs/:id /jobs/:id/dialogue /jobs/:id/transcript /ws/jobs/:id /logs /health")

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down gracefully")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Error("http shutdown failed", slog.Any("error", err))
		}
	}()

	listenErr := app.Listen(addr)

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := workerPool.Shutdown(drainCtx); err != nil {
		slog.Warn("worker pool did not drain", slog.Any("error", err))
	}

	if listenErr != nil {
		return fmt.Errorf("server failed: %w", listenErr)
	}
	return nil
}

// wireOptionalSteps attaches comment retrieval, translation and Drive upload
// when they are configured.
func wireOptionalSteps(ctx context.Context, runner *pipeline.Runner) error {
	key, keyErr := cfg.YouTubeKey("comment retrieval")

	if cfg.YouTube.CommentLimit > 0 {
		if keyErr != nil {
			slog.Warn("youtube comments disabled for the pipeline", slog.Any("reason", keyErr))
		} else {
			fetcher, err := youtube.NewCommentFetcher(ctx, key, cfg.YouTube.PageSize, cfg.YouTube.PagesPerSecond)
			if err != nil {
				return err
			}
			fetcher.Order = youtube.OrderRelevance
			runner.Comments = fetcher
		}
	}

	if cfg.Translate.Enabled {
		tkey, err := cfg.YouTubeKey("translation")
		if err != nil {
			return err
		}
		tr, err := translate.NewTranslator(ctx, tkey, cfg.Translate.Endpoint)
		if err != nil {
			return err
		}
		runner.Translator = tr
		slog.Info("translation enabled")
	}

	// Google Drive client (optional - requires `vid2pod drive-auth` once)
	if cfg.GoogleDrive.Enabled {
		dc, err := storage.NewDriveClient(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName)
		switch {
		case err == nil:
			runner.Uploader = dc
			slog.Info("google drive integration enabled")
		case errors.Is(err, storage.ErrNoDriveToken):
			slog.Warn("google drive not authorized; artifacts will only be saved locally", slog.Any("error", err))
		default:
			slog.Warn("google drive not available; artifacts will only be saved locally", slog.Any("error", err))
		}
	}

	gen, err := llm.NewDialogueGenerator(ctx, cfg, cfg.Dialogue.Backend)
	if err != nil {
		var missing *config.MissingCredentialError
		if errors.As(err, &missing) {
			slog.Warn("default dialogue backend is not usable; jobs will fail until configured", slog.Any("error", err))
			return nil
		}
		return err
	}
	llm.Release(gen)
	return nil
}
