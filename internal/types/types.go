package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Pipeline stages reported while a job is PROCESSING
const (
	StageDownloading  = "downloading"
	StageNormalizing  = "normalizing"
	StageTranscribing = "transcribing"
	StageTranslating  = "translating"
	StageGenerating   = "generating"
	StageSaving       = "saving"
)

// Source type constants
const (
	SourceYouTube = "youtube"
	SourceURL     = "url"
	SourceUpload  = "upload"
	SourceGDrive  = "gdrive"
)

// IsRemote reports whether the source is a link the downloader fetches
// rather than a local file.
func IsRemote(sourceType string) bool {
	return sourceType == SourceYouTube || sourceType == SourceURL
}

// Artifact kinds written by the pipeline
const (
	ArtifactTranscript = "transcript"
	ArtifactTranslated = "translated"
	ArtifactDialogue   = "dialogue"
	ArtifactMeta       = "meta"
)

// IsTerminal reports whether a job in this status will not change again.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// PipelineResult is what a finished pipeline run leaves behind
type PipelineResult struct {
	JobID       string            `json:"job_id"`
	Language    string            `json:"language"`
	Backend     string            `json:"backend"`
	WordCount   int               `json:"word_count"`
	Artifacts   map[string]string `json:"artifacts"`
	GDriveURL   string            `json:"gdrive_url,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// JobRecord is the persisted and API-visible view of a job
type JobRecord struct {
	ID          string          `json:"job_id"`
	RequestName string          `json:"request_name"`
	SourceType  string          `json:"source_type"`
	Source      string          `json:"source,omitempty"`
	TargetLang  string          `json:"target_lang,omitempty"`
	Backend     string          `json:"backend,omitempty"`
	Status      string          `json:"status"`
	Stage       string          `json:"stage,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      *PipelineResult `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
