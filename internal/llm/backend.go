package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/codebuildervaibhav/video2podcast/internal/config"
)

// Backend names accepted by NewDialogueGenerator.
const (
	BackendGemini   = "gemini"
	BackendDeepSeek = "deepseek"
	BackendMistral  = "mistral"
)

// Backends lists every dialogue backend.
var Backends = []string{BackendGemini, BackendMistral, BackendDeepSeek}

// DialogueGenerator turns a transcript and comments into podcast dialogue.
type DialogueGenerator interface {
	GenerateDialogue(ctx context.Context, req DialogueRequest) (string, error)
}

// Release closes a generator that holds connections. Others are left alone.
func Release(g DialogueGenerator) {
	if c, ok := g.(io.Closer); ok {
		c.Close()
	}
}

// NewDialogueGenerator builds the named backend from configuration. A missing
// credential is reported before any request is made.
func NewDialogueGenerator(ctx context.Context, cfg *config.Config, backend string) (DialogueGenerator, error) {
	switch strings.ToLower(backend) {
	case "", BackendGemini:
		key, err := cfg.GeminiKey()
		if err != nil {
			return nil, err
		}
		gc, err := NewGeminiClient(ctx, key, GeminiOptions{
			Model:           cfg.Gemini.Model,
			Endpoint:        cfg.Gemini.Endpoint,
			Temperature:     cfg.Gemini.Temperature,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
			TopP:            cfg.Gemini.TopP,
			TopK:            cfg.Gemini.TopK,
		})
		if err != nil {
			return nil, err
		}
		return gc, nil
	case BackendDeepSeek, BackendMistral:
		cc, err := NewChatFromConfig(cfg, backend)
		if err != nil {
			return nil, err
		}
		return cc, nil
	}
	return nil, fmt.Errorf("unknown dialogue backend %q (choose one of %s)", backend, strings.Join(Backends, ", "))
}

// NewChatFromConfig builds a chat client for deepseek or mistral, layering
// configured values over the provider preset.
func NewChatFromConfig(cfg *config.Config, backend string) (*ChatClient, error) {
	name := strings.ToLower(backend)
	key, err := cfg.ChatKey(name)
	if err != nil {
		return nil, err
	}
	opts, ok := ChatPreset(name)
	if !ok {
		return nil, fmt.Errorf("unknown chat backend %q", backend)
	}
	c, _ := cfg.Chat(name)
	opts.APIKey = key
	if c.BaseURL != "" {
		opts.BaseURL = c.BaseURL
	}
	if c.Model != "" {
		opts.Model = c.Model
	}
	if c.Temperature != 0 {
		opts.Temperature = c.Temperature
	}
	if c.MaxTokens != 0 {
		opts.MaxTokens = c.MaxTokens
	}
	if c.Timeout != 0 {
		opts.Timeout = c.Timeout
	}
	return NewChatClient(opts), nil
}
