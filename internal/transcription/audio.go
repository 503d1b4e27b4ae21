package transcription

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FFmpegNormalizer converts audio into the 16kHz mono WAV whisper.cpp reads.
type FFmpegNormalizer struct {
	Binary  string
	TempDir string
}

// NewFFmpegNormalizer creates a normalizer writing into tempDir.
func NewFFmpegNormalizer(binary, tempDir string) *FFmpegNormalizer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegNormalizer{Binary: binary, TempDir: tempDir}
}

// Normalize converts inputPath and returns the path of the new WAV file.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	if err := os.MkdirAll(n.TempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	outputPath := filepath.Join(n.TempDir, fmt.Sprintf("normalized_%s.wav", uuid.New().String()))

	cmd := exec.CommandContext(ctx, n.Binary,
		"-i", inputPath,
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // mono
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}
	return outputPath, nil
}

var supportedFormats = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".opus": true,
	".flac": true, ".webm": true, ".aac": true, ".wma": true,
}

// ValidateAudioFormat checks if the file extension is one ffmpeg is expected to decode.
func ValidateAudioFormat(filename string) bool {
	return supportedFormats[strings.ToLower(filepath.Ext(filename))]
}
