package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Message is one entry of a chat/completions conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions configure an OpenAI-compatible chat/completions provider.
type ChatOptions struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// TimeoutHint overrides the remedy shown on timeout.
	TimeoutHint string
}

// Presets for the providers known to work with ChatClient.
var chatPresets = map[string]ChatOptions{
	"deepseek": {Name: "deepseek", BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat", Temperature: 0.7, MaxTokens: 1500, Timeout: 60 * time.Second},
	"mistral":  {Name: "mistral", BaseURL: "https://api.mistral.ai/v1", Model: "mistral-large-latest", Temperature: 0.7, MaxTokens: 1500, Timeout: 60 * time.Second},
}

// ChatPreset returns the defaults of a named provider.
func ChatPreset(name string) (ChatOptions, bool) {
	p, ok := chatPresets[strings.ToLower(name)]
	return p, ok
}

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Messages    []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// ChatClient talks to a /chat/completions endpoint.
type ChatClient struct {
	opts       ChatOptions
	httpClient *http.Client
}

// NewChatClient creates a client; the per-request timeout comes from opts.
func NewChatClient(opts ChatOptions) *ChatClient {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &ChatClient{opts: opts, httpClient: &http.Client{}}
}

// WithTimeout returns a copy of the client using a different timeout.
func (c *ChatClient) WithTimeout(d time.Duration) *ChatClient {
	cp := *c
	cp.opts.Timeout = d
	return &cp
}

// WithTimeoutHint returns a copy of the client that suggests hint when a
// request times out.
func (c *ChatClient) WithTimeoutHint(hint string) *ChatClient {
	cp := *c
	cp.opts.TimeoutHint = hint
	return &cp
}

func (c *ChatClient) timeoutHint() string {
	if c.opts.TimeoutHint != "" {
		return c.opts.TimeoutHint
	}
	return dialogueTimeoutHint
}

// WithMaxTokens returns a copy of the client with a different completion cap.
func (c *ChatClient) WithMaxTokens(n int) *ChatClient {
	cp := *c
	cp.opts.MaxTokens = n
	return &cp
}

// Complete sends messages and returns the trimmed content of the first choice.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &TimeoutError{Timeout: c.opts.Timeout, Hint: c.timeoutHint(), Err: err}
		}
		return "", fmt.Errorf("%s request failed: %w", c.name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", &TimeoutError{Timeout: c.opts.Timeout, Hint: c.timeoutHint(), Err: err}
		}
		return "", fmt.Errorf("failed to read %s response: %w", c.name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed %s response: %w", c.name(), err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("malformed " + c.name() + " response: no choices")
	}

	slog.Info("chat completion finished",
		slog.String("provider", c.name()),
		slog.String("model", c.opts.Model),
		slog.Duration("elapsed", time.Since(start)))
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// GenerateDialogue sends the persona prompt as the system message and the
// task prompt as the user message.
func (c *ChatClient) GenerateDialogue(ctx context.Context, req DialogueRequest) (string, error) {
	return c.Complete(ctx, []Message{
		{Role: "system", Content: DialogueSystemPrompt(req)},
		{Role: "user", Content: DialogueUserPrompt(req)},
	})
}

// GenerateFromTemplates produces dialogue from caller-supplied prompts.
func (c *ChatClient) GenerateFromTemplates(ctx context.Context, tpl PromptTemplates, transcript, comments string) (string, error) {
	user := fmt.Sprintf("Comments:\n%s\n\nTranscript:\n%s\n\n\n\n%s", comments, transcript, tpl.RenderUser(comments, transcript))
	return c.Complete(ctx, []Message{
		{Role: "system", Content: tpl.System},
		{Role: "user", Content: user},
	})
}

func (c *ChatClient) name() string {
	if c.opts.Name != "" {
		return c.opts.Name
	}
	return "chat"
}
