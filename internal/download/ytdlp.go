package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ProcessError reports a yt-dlp run that exited non-zero.
type ProcessError struct {
	Command string
	Output  string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("yt-dlp failed: %v\nCommand: %s\nOutput: %s", e.Err, e.Command, e.Output)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Downloader extracts the audio track of a video URL with yt-dlp.
type Downloader struct {
	Binary      string
	OutputDir   string
	AudioFormat string
}

// NewDownloader creates a downloader writing into outputDir.
func NewDownloader(binary, outputDir, audioFormat string) *Downloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	if audioFormat == "" {
		audioFormat = "mp3"
	}
	return &Downloader{Binary: binary, OutputDir: outputDir, AudioFormat: audioFormat}
}

// Download fetches videoURL's best audio stream, re-encodes it to the
// configured format and returns the resulting file path. Format negotiation
// and encoding belong to yt-dlp/ffmpeg; failures are returned as-is.
func (d *Downloader) Download(ctx context.Context, videoURL, name string) (string, error) {
	if strings.TrimSpace(videoURL) == "" {
		return "", errors.New("video URL is required")
	}
	if err := os.MkdirAll(d.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	base := filepath.Join(d.OutputDir, SanitizeName(name))
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", d.AudioFormat,
		"--no-playlist",
		"-o", base + ".%(ext)s",
		videoURL,
	}

	slog.Info("downloading audio", slog.String("url", videoURL), slog.String("dest", base))
	cmd := exec.CommandContext(ctx, d.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", &ProcessError{
			Command: d.Binary + " " + strings.Join(args, " "),
			Output:  string(output),
			Err:     err,
		}
	}

	audioPath := base + "." + d.AudioFormat
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("yt-dlp exited cleanly but %s was not produced: %w", audioPath, err)
	}

	slog.Info("audio downloaded", slog.String("path", audioPath))
	return audioPath, nil
}

// SanitizeName turns a free-form request name into a safe file stem.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "audio"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			sb.WriteRune('_')
		case r < 32:
			continue
		default:
			sb.WriteRune(r)
		}
	}
	out := strings.Trim(sb.String(), ". ")
	if out == "" {
		return "audio"
	}
	if runes := []rune(out); len(runes) > 100 {
		out = string(runes[:100])
	}
	return out
}
