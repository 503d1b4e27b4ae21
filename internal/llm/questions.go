package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// QuestionTimeout bounds every question-extraction request.
const QuestionTimeout = 30 * time.Second

// QuestionGenerator asks a chat model for the audience's likely questions.
type QuestionGenerator struct {
	chat      *ChatClient
	templates PromptTemplates
}

// NewQuestionGenerator wraps chat with the fixed question timeout.
func NewQuestionGenerator(chat *ChatClient, templates PromptTemplates) *QuestionGenerator {
	return &QuestionGenerator{chat: chat.WithTimeout(QuestionTimeout).WithTimeoutHint(questionTimeoutHint), templates: templates}
}

// Generate returns every non-empty line of the model's numbered list. The
// count is requested, not enforced.
func (g *QuestionGenerator) Generate(ctx context.Context, transcript, comments string, max int) ([]string, error) {
	user := fmt.Sprintf("Comments:\n%s\n\nTranscript:\n%s\n\nGenerate up to %d numbered questions.\n\n%s",
		comments, transcript, max, g.templates.RenderUser(comments, transcript))

	text, err := g.chat.Complete(ctx, []Message{
		{Role: "system", Content: g.templates.System},
		{Role: "user", Content: user},
	})
	if err != nil {
		return nil, err
	}
	return ParseQuestions(text), nil
}

// ParseQuestions splits a numbered list into bare question strings.
func ParseQuestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(line)
		q = strings.TrimLeft(q, "0123456789. ")
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}
