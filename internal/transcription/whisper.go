package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// DefaultModelName is the whisper.cpp model looked up inside the model dir.
// Use "ggml-base.bin" for multilingual audio.
const DefaultModelName = "ggml-base.en.bin"

var (
	// ErrModelNotFound means the model file is absent; nothing was executed.
	ErrModelNotFound = errors.New("whisper model not found")
	// ErrOutputMissing means whisper exited cleanly but wrote no transcript.
	ErrOutputMissing = errors.New("transcription failed: output file not found")
)

// ProcessError reports a whisper run that exited non-zero.
type ProcessError struct {
	Command string
	Output  string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("whisper transcription failed: %v\nCommand: %s\nOutput: %s", e.Err, e.Command, e.Output)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// WhisperTranscriber runs the whisper.cpp CLI against local audio files.
type WhisperTranscriber struct {
	binary    string
	modelDir  string
	modelName string
	threads   int
	language  string
	mu        sync.Mutex // one whisper process at a time
}

// NewWhisperTranscriber creates a transcriber. The model is checked on every
// call, not here, so a server can start before models are provisioned.
func NewWhisperTranscriber(binary, modelDir, modelName string, threads int, language string) *WhisperTranscriber {
	if modelName == "" {
		modelName = DefaultModelName
	}
	if modelDir == "" {
		modelDir = "./models"
	}
	slog.Info("whisper transcriber configured",
		slog.String("binary", binary),
		slog.String("model", filepath.Join(modelDir, modelName)))
	return &WhisperTranscriber{
		binary:    binary,
		modelDir:  modelDir,
		modelName: modelName,
		threads:   threads,
		language:  language,
	}
}

// ModelPath is where the model file is expected.
func (wt *WhisperTranscriber) ModelPath() string {
	return filepath.Join(wt.modelDir, wt.modelName)
}

// CheckModel reports ErrModelNotFound if the model file is missing.
func (wt *WhisperTranscriber) CheckModel() error {
	modelPath := wt.ModelPath()
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}
	return nil
}

// Transcribe runs whisper on audioPath and returns the recognized text.
// whisper.cpp is asked to write <audio-without-ext>.txt next to the input.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if err := wt.CheckModel(); err != nil {
		return "", err
	}

	wt.mu.Lock()
	defer wt.mu.Unlock()

	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	txtPath := outBase + ".txt"

	args := []string{
		"-m", wt.ModelPath(),
		"-f", audioPath,
		"-otxt",
		"-of", outBase,
	}
	if wt.threads > 0 {
		args = append(args, "-t", strconv.Itoa(wt.threads))
	}
	if wt.language != "" {
		args = append(args, "-l", wt.language)
	}

	command := wt.binary + " " + strings.Join(args, " ")
	slog.Info("running whisper", slog.String("command", command))

	cmd := exec.CommandContext(ctx, wt.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", &ProcessError{Command: command, Output: string(output), Err: err}
	}

	data, err := os.ReadFile(txtPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: expected %s", ErrOutputMissing, txtPath)
		}
		return "", fmt.Errorf("failed to read whisper output %s: %w", txtPath, err)
	}

	if err := os.Remove(txtPath); err != nil {
		slog.Warn("failed to remove whisper output", slog.String("path", txtPath), slog.Any("error", err))
	}

	text := strings.TrimSpace(string(data))
	slog.Info("transcription completed", slog.String("audio", audioPath), slog.Int("words", len(strings.Fields(text))))
	return text, nil
}
