package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiOptions are the generation parameters sent with every request.
type GeminiOptions struct {
	Model           string
	Endpoint        string
	Temperature     float64
	MaxOutputTokens int64
	TopP            float64
	TopK            int64
	Timeout         time.Duration
}

// DefaultGeminiOptions mirrors the settings the dialogue prompt was tuned with.
func DefaultGeminiOptions() GeminiOptions {
	return GeminiOptions{
		Model:           "gemini-1.5-pro",
		Temperature:     0.7,
		MaxOutputTokens: 2048,
		TopP:            0.95,
		TopK:            40,
	}
}

// GeminiClient generates dialogue through the generateContent endpoint.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	opts   GeminiOptions
}

// NewGeminiClient creates a client authenticated with apiKey.
func NewGeminiClient(ctx context.Context, apiKey string, opts GeminiOptions, clientOpts ...option.ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key must not be empty")
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiOptions().Model
	}
	all := []option.ClientOption{option.WithAPIKey(apiKey)}
	if opts.Endpoint != "" {
		all = append(all, option.WithEndpoint(opts.Endpoint))
	}
	all = append(all, clientOpts...)

	client, err := genai.NewClient(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(float32(opts.Temperature))
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxOutputTokens))
	}
	if opts.TopP > 0 {
		model.SetTopP(float32(opts.TopP))
	}
	if opts.TopK > 0 {
		model.SetTopK(int32(opts.TopK))
	}
	return &GeminiClient{client: client, model: model, opts: opts}, nil
}

// Close releases the underlying connections.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// GenerateDialogue renders the full dialogue prompt and submits it.
func (c *GeminiClient) GenerateDialogue(ctx context.Context, req DialogueRequest) (string, error) {
	return c.Generate(ctx, BuildDialoguePrompt(req))
}

// Generate submits a single prompt and returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return "", &APIError{StatusCode: gerr.Code, Body: gerr.Body}
		}
		if isTimeout(err) {
			return "", &TimeoutError{Timeout: c.opts.Timeout, Hint: dialogueTimeoutHint, Err: err}
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini response has no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			for _, rating := range candidate.SafetyRatings {
				slog.Warn("gemini safety rating",
					slog.String("category", rating.Category.String()),
					slog.String("probability", rating.Probability.String()))
			}
			return "", fmt.Errorf("gemini returned no content, finish reason %s", candidate.FinishReason)
		}
		return "", errors.New("gemini response has no content parts")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	slog.Info("gemini generation finished",
		slog.String("model", c.opts.Model),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("finish_reason", candidate.FinishReason.String()))
	return sb.String(), nil
}
