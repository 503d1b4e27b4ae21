package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/video2podcast/internal/config"
)

var sampleReq = DialogueRequest{
	Transcript: "Leadership is mostly listening.",
	Comments:   "How do I start?\n\nIs this for introverts?",
}

func TestBuildDialoguePrompt_Defaults(t *testing.T) {
	p := BuildDialoguePrompt(sampleReq)
	assert.Contains(t, p, "Alex – curious, engaging interviewer")
	assert.Contains(t, p, "Dr. Expert (emotional tone):")
	assert.Contains(t, p, "Leadership is mostly listening.")
	assert.Contains(t, p, "Is this for introverts?")
	assert.NotContains(t, p, "Generate the dialogue in")
}

func TestBuildDialoguePrompt_Language(t *testing.T) {
	for _, lang := range []string{"english", "English", "ENGLISH", "", "en", "EN", "en-GB"} {
		assert.Empty(t, LanguageInstruction(lang), lang)
	}

	req := sampleReq
	req.Language = "Spanish"
	req.Host = "Ana"
	req.Guest = "Luis"
	p := BuildDialoguePrompt(req)
	assert.Contains(t, p, "Generate the dialogue in Spanish. Ensure it sounds natural for native Spanish speakers.")
	assert.Contains(t, p, "Ana MUST address Luis by name")
	assert.NotContains(t, DialogueUserPrompt(req), "Generate the dialogue in")

	req.Language = "en"
	assert.NotContains(t, BuildDialoguePrompt(req), "Generate the dialogue in")
}

func TestDialogueUserPrompt_SinglePass(t *testing.T) {
	req := DialogueRequest{Transcript: "literal {host} stays"}
	assert.Contains(t, DialogueUserPrompt(req), "literal {host} stays")
}

type geminiCall struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int64   `json:"maxOutputTokens"`
		TopP            float64 `json:"topP"`
		TopK            int64   `json:"topK"`
	} `json:"generationConfig"`
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := DefaultGeminiOptions()
	opts.Endpoint = srv.URL
	c, err := NewGeminiClient(context.Background(), "test-key", opts, option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGemini_Success(t *testing.T) {
	var got geminiCall
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-pro:generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"🎙️ Episode Title: Listening"}],"role":"model"},"finishReason":"STOP"}]}`)
	})

	out, err := c.GenerateDialogue(context.Background(), sampleReq)
	require.NoError(t, err)
	assert.Equal(t, "🎙️ Episode Title: Listening", out)

	require.Len(t, got.Contents, 1)
	assert.Contains(t, got.Contents[0].Parts[0].Text, "Leadership is mostly listening.")
	assert.Equal(t, 0.7, got.GenerationConfig.Temperature)
	assert.Equal(t, int64(2048), got.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, 0.95, got.GenerationConfig.TopP)
	assert.Equal(t, int64(40), got.GenerationConfig.TopK)
}

func TestGemini_NonOKReportsStatusAndBody(t *testing.T) {
	cases := []struct {
		status int
		body   string
	}{
		{http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`},
		{http.StatusForbidden, "forbidden"},
	}
	for _, tc := range cases {
		c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, tc.body)
		})

		_, err := c.GenerateDialogue(context.Background(), sampleReq)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), "status %d: %v", tc.status, err)
		assert.Equal(t, tc.status, apiErr.StatusCode)
		assert.Equal(t, tc.body, apiErr.Body)
		assert.Contains(t, err.Error(), fmt.Sprintf("API request failed with status code %d", tc.status))
	}
}

func TestGemini_NoCandidates(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	})
	_, err := c.GenerateDialogue(context.Background(), sampleReq)
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestGemini_FinishReasonWithoutContent(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"finishReason":"MAX_TOKENS"}]}`)
	})
	_, err := c.GenerateDialogue(context.Background(), sampleReq)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finish reason")
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", DefaultGeminiOptions())
	assert.Error(t, err)
}

func newTestChat(t *testing.T, handler http.HandlerFunc) *ChatClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts, ok := ChatPreset("deepseek")
	require.True(t, ok)
	opts.BaseURL = srv.URL + "/v1/"
	opts.APIKey = "sk-test"
	return NewChatClient(opts)
}

func TestChat_Success(t *testing.T) {
	var got chatRequest
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  Alex (curious): So, Dr. Expert...  "}}]}`)
	})

	out, err := c.GenerateDialogue(context.Background(), sampleReq)
	require.NoError(t, err)
	assert.Equal(t, "Alex (curious): So, Dr. Expert...", out)

	assert.Equal(t, "deepseek-chat", got.Model)
	assert.Equal(t, 1500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "Leadership is mostly listening.")
}

func TestChat_NonOKReportsStatusAndBody(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		body := fmt.Sprintf(`{"error":"status %d"}`, status)
		c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		})

		_, err := c.GenerateDialogue(context.Background(), sampleReq)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, status, apiErr.StatusCode)
		assert.Equal(t, body, apiErr.Body)
	}
}

func TestChat_Timeout(t *testing.T) {
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}).WithTimeout(50 * time.Millisecond)

	_, err := c.GenerateDialogue(context.Background(), sampleReq)
	var te *TimeoutError
	require.True(t, errors.As(err, &te), "%v", err)
	assert.Contains(t, err.Error(), "Consider increasing --timeout or reducing --max tokens.")
}

func TestQuestionGenerator_TimeoutHint(t *testing.T) {
	chat := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	g := NewQuestionGenerator(chat, DefaultQuestionTemplates)
	g.chat = g.chat.WithTimeout(50 * time.Millisecond)

	_, err := g.Generate(context.Background(), "T", "C", 3)
	var te *TimeoutError
	require.True(t, errors.As(err, &te), "%v", err)
	assert.Equal(t, questionTimeoutHint, te.Hint)
	assert.NotContains(t, err.Error(), "--timeout")
}

func TestChat_MalformedBody(t *testing.T) {
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})
	_, err := c.GenerateDialogue(context.Background(), sampleReq)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestChat_Templates(t *testing.T) {
	var got chatRequest
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	})
	tpl := PromptTemplates{System: "sys", User: "Use {comments} and {transcript}."}

	_, err := c.GenerateFromTemplates(context.Background(), tpl, "T", "C")
	require.NoError(t, err)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "Comments:\nC\n\nTranscript:\nT\n\n\n\nUse C and T.", got.Messages[1].Content)
}

func TestParseQuestions(t *testing.T) {
	qs := ParseQuestions("1. Why?\n 2.  How?\n\n10. When?\n   \nPlain line\n3.\n")
	assert.Equal(t, []string{"Why?", "How?", "When?", "Plain line"}, qs)
	for _, q := range qs {
		assert.NotEmpty(t, q)
		assert.False(t, q[0] >= '0' && q[0] <= '9')
	}
	assert.Empty(t, ParseQuestions(""))
}

func TestQuestionGenerator_Scenario(t *testing.T) {
	dir := t.TempDir()
	commentsPath := filepath.Join(dir, "comments.txt")
	transcriptPath := filepath.Join(dir, "transcript.txt")
	require.NoError(t, os.WriteFile(commentsPath, []byte("Great talk!\n\nWhat about remote teams?\n\nSource for the study?"), 0o644))
	require.NoError(t, os.WriteFile(transcriptPath, []byte("Today we talk about why good leaders listen first."), 0o644))

	var got chatRequest
	chat := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "1. Why?\n2. How?\n\n3. When?"}}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	comments, err := os.ReadFile(commentsPath)
	require.NoError(t, err)
	transcript, err := os.ReadFile(transcriptPath)
	require.NoError(t, err)

	g := NewQuestionGenerator(chat, DefaultQuestionTemplates)
	qs, err := g.Generate(context.Background(), string(transcript), string(comments), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Why?", "How?", "When?"}, qs)
	assert.Contains(t, got.Messages[1].Content, "Generate up to 5 numbered questions.")
	assert.Equal(t, QuestionTimeout, g.chat.opts.Timeout)
}

func TestLoadPromptFile(t *testing.T) {
	pf, err := LoadPromptFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuestionTemplates, pf.Questions)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialogue:\n  system: |\n    Be brief.\nquestions:\n  user: Only {comments}\n"), 0o644))
	pf, err = LoadPromptFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", pf.Dialogue.System)
	assert.Equal(t, DefaultDialogueTemplates.User, pf.Dialogue.User)
	assert.Equal(t, "Only {comments}", pf.Questions.User)
	assert.Equal(t, DefaultQuestionTemplates.System, pf.Questions.System)

	require.NoError(t, os.WriteFile(path, []byte("dialogue: [unclosed"), 0o644))
	_, err = LoadPromptFile(path)
	assert.Error(t, err)
}

func TestLoadTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	sys := filepath.Join(dir, "system.md")
	require.NoError(t, os.WriteFile(sys, []byte("  system text \n"), 0o644))

	tpl, err := LoadTemplateFiles(DefaultDialogueTemplates, sys, "")
	require.NoError(t, err)
	assert.Equal(t, "system text", tpl.System)
	assert.Equal(t, DefaultDialogueTemplates.User, tpl.User)

	_, err = LoadTemplateFiles(DefaultDialogueTemplates, "", filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewDialogueGenerator(t *testing.T) {
	cfg := &config.Config{}

	_, err := NewDialogueGenerator(context.Background(), cfg, "gemini")
	var missing *config.MissingCredentialError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "GEMINI_API_KEY", missing.Env)

	_, err = NewDialogueGenerator(context.Background(), cfg, "mistral")
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "MISTRAL_API_KEY", missing.Env)

	_, err = NewDialogueGenerator(context.Background(), cfg, "gpt")
	require.Error(t, err)
	assert.False(t, errors.As(err, &missing))

	cfg.DeepSeek = config.ChatConfig{APIKey: "k", Model: "deepseek-reasoner", Timeout: 5 * time.Second}
	g, err := NewDialogueGenerator(context.Background(), cfg, "DeepSeek")
	require.NoError(t, err)
	chat, ok := g.(*ChatClient)
	require.True(t, ok)
	assert.Equal(t, "deepseek-reasoner", chat.opts.Model)
	assert.Equal(t, "https://api.deepseek.com/v1", chat.opts.BaseURL)
	assert.Equal(t, 5*time.Second, chat.opts.Timeout)
}
