package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/codebuildervaibhav/video2podcast/internal/llm"
	"github.com/codebuildervaibhav/video2podcast/internal/queue"
	"github.com/codebuildervaibhav/video2podcast/internal/translate"
	"github.com/codebuildervaibhav/video2podcast/internal/types"
	"github.com/codebuildervaibhav/video2podcast/internal/youtube"
)

// ErrEmptyTranscript is returned when whisper produced no text at all.
var ErrEmptyTranscript = errors.New("transcription produced no text")

type Downloader interface {
	Download(ctx context.Context, videoURL, name string) (string, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

type CommentSource interface {
	Fetch(ctx context.Context, videoID string, limit int) ([]string, error)
}

type ArtifactStore interface {
	SaveArtifacts(requestName string, texts map[string]string, result *types.PipelineResult) error
	UpdateMeta(requestName string, result *types.PipelineResult) error
}

type Uploader interface {
	UploadArtifacts(ctx context.Context, requestName string, result *types.PipelineResult) (string, error)
}

// GeneratorFactory resolves a backend name to a dialogue generator.
type GeneratorFactory func(ctx context.Context, backend string) (llm.DialogueGenerator, error)

// Input describes one run.
type Input struct {
	JobID      string
	Name       string
	SourceType string
	Source     string
	TargetLang string
	Host       string
	Guest      string
	Backend    string
}

// Runner executes the forward-only video to podcast pipeline. Optional
// steps (Normalizer, Translator, Comments, Uploader) are skipped when nil.
type Runner struct {
	Downloader  Downloader
	Normalizer  Normalizer
	Transcriber Transcriber
	Translator  Translator
	Comments    CommentSource
	Generators  GeneratorFactory
	Store       ArtifactStore
	Uploader    Uploader

	DefaultBackend string
	CommentLimit   int

	UploadAttempts int
	// backoff is swapped out by tests
	backoff func(attempt int) time.Duration
}

func (r *Runner) uploadBackoff(attempt int) time.Duration {
	if r.backoff != nil {
		return r.backoff(attempt)
	}
	return time.Duration(attempt*attempt) * time.Second
}

// Run executes every stage in order. Any stage error aborts the run; the
// returned error names the stage it came from.
func (r *Runner) Run(ctx context.Context, in Input, stage func(string)) (*types.PipelineResult, error) {
	if stage == nil {
		stage = func(string) {}
	}
	log := slog.With(slog.String("job_id", in.JobID))

	result := &types.PipelineResult{
		JobID:    in.JobID,
		Backend:  r.backend(in),
		Language: language(in.TargetLang),
	}

	// Step 1: acquire audio
	audioPath := in.Source
	if types.IsRemote(in.SourceType) {
		stage(types.StageDownloading)
		path, err := r.Downloader.Download(ctx, in.Source, in.JobID)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		audioPath = path
		defer removeFile(path)
	}

	// Step 2: convert to whisper's input format
	if r.Normalizer != nil {
		stage(types.StageNormalizing)
		wav, err := r.Normalizer.Normalize(ctx, audioPath)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
		audioPath = wav
		defer removeFile(wav)
	}

	// Step 3: transcribe
	stage(types.StageTranscribing)
	transcript, err := r.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}
	result.WordCount = len(strings.Fields(transcript))
	log.Info("transcription finished", slog.Int("words", result.WordCount))

	texts := map[string]string{types.ArtifactTranscript: transcript}
	source := transcript

	// Step 4: translate when a non-english target is requested
	if r.Translator != nil && !translate.IsEnglish(result.Language) {
		stage(types.StageTranslating)
		translated, err := r.Translator.Translate(ctx, transcript, result.Language)
		if err != nil {
			return nil, fmt.Errorf("translate: %w", err)
		}
		texts[types.ArtifactTranslated] = translated
		source = translated
	}

	// Step 5: dialogue
	stage(types.StageGenerating)
	comments := r.fetchComments(ctx, in, result)
	gen, err := r.Generators(ctx, result.Backend)
	if err != nil {
		return nil, fmt.Errorf("dialogue backend: %w", err)
	}
	defer llm.Release(gen)
	dialogue, err := gen.GenerateDialogue(ctx, llm.DialogueRequest{
		Transcript: source,
		Comments:   comments,
		Host:       in.Host,
		Guest:      in.Guest,
		Language:   result.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("generate dialogue: %w", err)
	}
	if strings.TrimSpace(dialogue) == "" {
		log.Warn("dialogue generation returned no text")
		result.Warnings = append(result.Warnings, "dialogue generation returned no text; no dialogue saved")
	} else {
		texts[types.ArtifactDialogue] = dialogue
	}

	// Step 6: persist
	stage(types.StageSaving)
	result.ProcessedAt = time.Now()
	if err := r.Store.SaveArtifacts(requestName(in), texts, result); err != nil {
		return nil, fmt.Errorf("save artifacts: %w", err)
	}

	// Drive reads the saved files, so the link is only known afterwards.
	if r.Uploader != nil {
		r.upload(ctx, in, result)
		if err := r.Store.UpdateMeta(requestName(in), result); err != nil {
			log.Warn("failed to update metadata after upload", slog.Any("error", err))
		}
	}
	return result, nil
}

// fetchComments is best effort: a video with comments disabled still gets a
// dialogue.
func (r *Runner) fetchComments(ctx context.Context, in Input, result *types.PipelineResult) string {
	if r.Comments == nil || in.SourceType != types.SourceYouTube {
		return ""
	}
	videoID, err := youtube.ExtractVideoID(in.Source)
	if err != nil {
		return ""
	}
	comments, err := r.Comments.Fetch(ctx, videoID, r.CommentLimit)
	if err != nil {
		slog.Warn("comment retrieval failed", slog.String("job_id", in.JobID), slog.Any("error", err))
		result.Warnings = append(result.Warnings, "comments unavailable: "+err.Error())
	}
	return youtube.JoinComments(comments)
}

func (r *Runner) upload(ctx context.Context, in Input, result *types.PipelineResult) {
	attempts := r.UploadAttempts
	if attempts < 1 {
		attempts = 3
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var link string
		link, err = r.Uploader.UploadArtifacts(ctx, requestName(in), result)
		if err == nil {
			result.GDriveURL = link
			return
		}
		slog.Warn("google drive upload failed",
			slog.String("job_id", in.JobID),
			slog.Int("attempt", attempt),
			slog.Int("of", attempts),
			slog.Any("error", err))
		if attempt < attempts {
			select {
			case <-time.After(r.uploadBackoff(attempt)):
			case <-ctx.Done():
				result.Warnings = append(result.Warnings, "google drive upload abandoned: "+ctx.Err().Error())
				return
			}
		}
	}
	result.Warnings = append(result.Warnings, "google drive upload failed: "+err.Error())
}

func (r *Runner) backend(in Input) string {
	if in.Backend != "" {
		return strings.ToLower(in.Backend)
	}
	if r.DefaultBackend != "" {
		return r.DefaultBackend
	}
	return llm.BackendGemini
}

// ProcessFunc adapts the runner to the worker pool.
func (r *Runner) ProcessFunc() queue.ProcessFunc {
	return func(ctx context.Context, job *queue.Job, stage func(string)) (*types.PipelineResult, error) {
		return r.Run(ctx, Input{
			JobID:      job.ID,
			Name:       job.RequestName,
			SourceType: job.SourceType,
			Source:     job.Source,
			TargetLang: job.TargetLang,
			Host:       job.Host,
			Guest:      job.Guest,
			Backend:    job.Backend,
		}, stage)
	}
}

func requestName(in Input) string {
	if in.Name != "" {
		return in.Name
	}
	return in.JobID
}

func language(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return llm.DefaultLanguage
	}
	return lang
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove intermediate file", slog.String("path", path), slog.Any("error", err))
	}
}
