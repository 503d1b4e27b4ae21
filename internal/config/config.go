package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Workers     WorkersConfig     `mapstructure:"workers"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Download    DownloadConfig    `mapstructure:"download"`
	Whisper     WhisperConfig     `mapstructure:"whisper"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup"`
	GoogleDrive GoogleDriveConfig `mapstructure:"googleDrive"`
	Limits      LimitsConfig      `mapstructure:"limits"`
	YouTube     YouTubeConfig     `mapstructure:"youtube"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	DeepSeek    ChatConfig        `mapstructure:"deepseek"`
	Mistral     ChatConfig        `mapstructure:"mistral"`
	Translate   TranslateConfig   `mapstructure:"translate"`
	Dialogue    DialogueConfig    `mapstructure:"dialogue"`
	Prompts     PromptsConfig     `mapstructure:"prompts"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type WorkersConfig struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queueSize"`
}

type StorageConfig struct {
	TempDir   string `mapstructure:"tempDir"`
	OutputDir string `mapstructure:"outputDir"`
	Database  string `mapstructure:"database"`
}

type DownloadConfig struct {
	Binary      string `mapstructure:"binary"`
	AudioFormat string `mapstructure:"audioFormat"`
}

type WhisperConfig struct {
	Binary    string `mapstructure:"binary"`
	ModelDir  string `mapstructure:"modelDir"`
	ModelName string `mapstructure:"modelName"`
	Threads   int    `mapstructure:"threads"`
	Language  string `mapstructure:"language"`
	FFmpeg    string `mapstructure:"ffmpeg"`
}

type CleanupConfig struct {
	Schedule    string `mapstructure:"schedule"`
	MaxAgeHours int    `mapstructure:"maxAgeHours"`
}

type GoogleDriveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentialsFile"`
	TokenFile       string `mapstructure:"tokenFile"`
	FolderName      string `mapstructure:"folderName"`
}

type LimitsConfig struct {
	MaxFileSizeMB int `mapstructure:"maxFileSizeMB"`
}

type YouTubeConfig struct {
	APIKey           string   `mapstructure:"apiKey"`
	BaseURL          string   `mapstructure:"baseURL"`
	PageSize         int64    `mapstructure:"pageSize"`
	PagesPerSecond   float64  `mapstructure:"pagesPerSecond"`
	CaptionLanguages []string `mapstructure:"captionLanguages"`
	// CommentLimit caps the comments fed to the server pipeline; 0 disables them.
	CommentLimit int `mapstructure:"commentLimit"`
}

type GeminiConfig struct {
	APIKey          string  `mapstructure:"apiKey"`
	Model           string  `mapstructure:"model"`
	Endpoint        string  `mapstructure:"endpoint"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int64   `mapstructure:"maxOutputTokens"`
	TopP            float64 `mapstructure:"topP"`
	TopK            int64   `mapstructure:"topK"`
}

// ChatConfig covers any OpenAI-compatible chat/completions provider.
type ChatConfig struct {
	APIKey      string        `mapstructure:"apiKey"`
	BaseURL     string        `mapstructure:"baseURL"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"maxTokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TranslateConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type DialogueConfig struct {
	Backend  string `mapstructure:"backend"`
	Host     string `mapstructure:"host"`
	Guest    string `mapstructure:"guest"`
	Language string `mapstructure:"language"`
}

type PromptsConfig struct {
	File string `mapstructure:"file"`
}

// Environment variables holding credentials. Both spellings seen in the
// wild are accepted where providers disagree.
var credentialEnv = map[string][]string{
	"gemini.apiKey":   {"GEMINI_API_KEY"},
	"deepseek.apiKey": {"DEEPSEEK_APIKEY", "DEEPSEEK_API_KEY"},
	"mistral.apiKey":  {"MISTRAL_API_KEY"},
	"youtube.apiKey":  {"GOOGLE_APIKEY", "GOOGLE_API_KEY"},
}

// Load reads configuration from path (or ./config/config.yaml when path is
// empty), layering defaults and environment variables underneath.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for key, envs := range credentialEnv {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Warn("config file not found, using defaults and environment", slog.String("path", path))
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")

	v.SetDefault("workers.count", 1)
	v.SetDefault("workers.queueSize", 100)

	v.SetDefault("storage.tempDir", "temp")
	v.SetDefault("storage.outputDir", "storage")
	v.SetDefault("storage.database", "storage/jobs.db")

	v.SetDefault("download.binary", "yt-dlp")
	v.SetDefault("download.audioFormat", "mp3")

	v.SetDefault("whisper.binary", "/app/whisper.cpp/main")
	v.SetDefault("whisper.modelDir", "./models")
	v.SetDefault("whisper.modelName", "ggml-base.en.bin")
	v.SetDefault("whisper.threads", 4)
	v.SetDefault("whisper.ffmpeg", "ffmpeg")

	v.SetDefault("cleanup.schedule", "@every 30m")
	v.SetDefault("cleanup.maxAgeHours", 24)

	v.SetDefault("googleDrive.credentialsFile", "config/credentials.json")
	v.SetDefault("googleDrive.tokenFile", "config/token.json")
	v.SetDefault("googleDrive.folderName", "Podcasts")

	v.SetDefault("limits.maxFileSizeMB", 200)

	v.SetDefault("youtube.pageSize", 100)
	v.SetDefault("youtube.pagesPerSecond", 5)
	v.SetDefault("youtube.captionLanguages", []string{"en"})
	v.SetDefault("youtube.commentLimit", 100)

	v.SetDefault("gemini.model", "gemini-1.5-pro")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.maxOutputTokens", 2048)
	v.SetDefault("gemini.topP", 0.95)
	v.SetDefault("gemini.topK", 40)

	v.SetDefault("deepseek.baseURL", "https://api.deepseek.com/v1")
	v.SetDefault("deepseek.model", "deepseek-chat")
	v.SetDefault("deepseek.temperature", 0.7)
	v.SetDefault("deepseek.maxTokens", 1500)
	v.SetDefault("deepseek.timeout", 60*time.Second)

	v.SetDefault("mistral.baseURL", "https://api.mistral.ai/v1")
	v.SetDefault("mistral.model", "mistral-large-latest")
	v.SetDefault("mistral.temperature", 0.7)
	v.SetDefault("mistral.maxTokens", 1500)
	v.SetDefault("mistral.timeout", 60*time.Second)

	v.SetDefault("dialogue.backend", "gemini")
	v.SetDefault("dialogue.host", "Alex")
	v.SetDefault("dialogue.guest", "Dr. Expert")
	v.SetDefault("dialogue.language", "english")
}

// Chat returns the chat provider settings for a backend name.
func (c *Config) Chat(backend string) (ChatConfig, bool) {
	switch strings.ToLower(backend) {
	case "deepseek":
		return c.DeepSeek, true
	case "mistral":
		return c.Mistral, true
	}
	return ChatConfig{}, false
}

// CredentialEnv names the environment variable a credential is read from.
func CredentialEnv(key string) string {
	if envs, ok := credentialEnv[key]; ok {
		return envs[0]
	}
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
