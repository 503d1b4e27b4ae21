package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

// LocalStorage handles saving pipeline artifacts to the local filesystem
type LocalStorage struct {
	outputDir string
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SaveArtifacts writes every non-empty text in texts (keyed by artifact kind)
// plus a _meta.json describing result, and records the paths in result.Artifacts.
func (ls *LocalStorage) SaveArtifacts(requestName string, texts map[string]string, result *types.PipelineResult) error {
	// Create dated directory structure: storage/2025/01/23/
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return fmt.Errorf("failed to create date directory: %w", err)
	}

	// 20250123_143022_podcast_episode_dialogue.txt
	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(requestName))

	if result.Artifacts == nil {
		result.Artifacts = make(map[string]string)
	}

	kinds := make([]string, 0, len(texts))
	for kind := range texts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		text := texts[kind]
		if strings.TrimSpace(text) == "" {
			continue
		}
		path := filepath.Join(dateDir, fmt.Sprintf("%s_%s.txt", baseFilename, kind))
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to save %s: %w", kind, err)
		}
		result.Artifacts[kind] = path
	}

	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")
	if err := writeMeta(metaPath, requestName, result); err != nil {
		return err
	}
	result.Artifacts[types.ArtifactMeta] = metaPath
	return nil
}

// UpdateMeta rewrites the _meta.json saved by SaveArtifacts so it reflects
// fields set afterwards, such as the Drive link.
func (ls *LocalStorage) UpdateMeta(requestName string, result *types.PipelineResult) error {
	metaPath := result.Artifacts[types.ArtifactMeta]
	if metaPath == "" {
		return fmt.Errorf("no metadata file recorded for job %s", result.JobID)
	}
	return writeMeta(metaPath, requestName, result)
}

func writeMeta(path, requestName string, result *types.PipelineResult) error {
	artifacts := make(map[string]string, len(result.Artifacts))
	for kind, p := range result.Artifacts {
		if kind != types.ArtifactMeta {
			artifacts[kind] = p
		}
	}
	metadata := map[string]interface{}{
		"job_id":       result.JobID,
		"request_name": requestName,
		"word_count":   result.WordCount,
		"language":     result.Language,
		"backend":      result.Backend,
		"created_at":   result.ProcessedAt,
		"artifacts":    artifacts,
		"warnings":     result.Warnings,
		"gdrive_url":   result.GDriveURL,
	}

	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, metaJSON, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// ReadText loads a UTF-8 text file.
func ReadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// WriteText writes text to path, creating parent directories.
func WriteText(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// sanitizeFilename replaces characters that are invalid in file names
func sanitizeFilename(name string) string {
	result := strings.TrimSpace(filenameReplacer.Replace(name))
	result = strings.ReplaceAll(result, " ", "_")
	if result == "" {
		result = "episode"
	}
	if runes := []rune(result); len(runes) > 100 {
		result = string(runes[:100]) // Limit length
	}
	return result
}
