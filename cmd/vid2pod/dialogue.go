package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video2podcast/internal/llm"
)

type dialogueFlags struct {
	transcriptPath string
	commentsPath   string
	transcriptText string
	commentsText   string
	output         string
	language       string
	host           string
	guest          string
	model          string
	systemPrompt   string
	userPrompt     string
	maxTokens      int
	timeout        int
}

var dlgFlags dialogueFlags

var dialogueCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "Generate a podcast dialogue from a transcript and audience comments",
	Example: `  vid2pod dialogue -t transcript.txt -c comments.txt -o dialogue.txt
  vid2pod dialogue -t transcript.txt -c comments.txt -m mistral -l spanish --host Ana --guest "Dr. Ruiz"

  # Custom system/user prompts ({comments} and {transcript} are substituted)
  vid2pod dialogue -t transcript.txt -c comments.txt -m deepseek \
    --system-prompt prompts/system.md --user-prompt prompts/prompt.md --max-tokens 2000 --timeout 120`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := dlgFlags
		transcript, err := readInput(f.transcriptPath, f.transcriptText, "transcription")
		if err != nil {
			return err
		}
		comments, err := readInput(f.commentsPath, f.commentsText, "comments")
		if err != nil {
			return err
		}

		backend := strings.ToLower(f.model)
		if backend == "" {
			backend = cfg.Dialogue.Backend
		}

		if err := checkBackend(backend); err != nil {
			return err
		}

		ctx := cmd.Context()
		var dialogue string
		if f.systemPrompt != "" || f.userPrompt != "" {
			dialogue, err = templatedDialogue(ctx, backend, transcript, comments)
		} else {
			var gen llm.DialogueGenerator
			gen, err = newGenerator(ctx, backend, f.maxTokens, time.Duration(f.timeout)*time.Second)
			if err != nil {
				return err
			}
			defer llm.Release(gen)
			dialogue, err = gen.GenerateDialogue(ctx, llm.DialogueRequest{
				Transcript: transcript,
				Comments:   comments,
				Host:       f.host,
				Guest:      f.guest,
				Language:   f.language,
			})
		}
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), f.output, dialogue, "dialogue")
	},
}

func init() {
	fl := dialogueCmd.Flags()
	fl.StringVarP(&dlgFlags.transcriptPath, "transcription", "t", "", "Path to the transcription file")
	fl.StringVarP(&dlgFlags.commentsPath, "comments", "c", "", "Path to the audience comments file")
	fl.StringVar(&dlgFlags.transcriptText, "transcription-text", "", "Transcription text (alternative to file)")
	fl.StringVar(&dlgFlags.commentsText, "comments-text", "", "Comments text (alternative to file)")
	fl.StringVarP(&dlgFlags.output, "output", "o", "", "Path to save the dialogue (default: stdout)")
	fl.StringVarP(&dlgFlags.language, "language", "l", llm.DefaultLanguage, "Target language for the dialogue")
	fl.StringVar(&dlgFlags.host, "host", llm.DefaultHost, "Name of the podcast host")
	fl.StringVar(&dlgFlags.guest, "guest", llm.DefaultGuest, "Name of the guest expert")
	fl.StringVarP(&dlgFlags.model, "model", "m", "", "Backend: "+strings.Join(llm.Backends, ", ")+" (default from config)")
	fl.StringVarP(&dlgFlags.systemPrompt, "system-prompt", "s", "", "System prompt template file")
	fl.StringVarP(&dlgFlags.userPrompt, "user-prompt", "u", "", "User prompt template file")
	fl.IntVar(&dlgFlags.maxTokens, "max-tokens", 0, "Max tokens to generate (default from config)")
	fl.IntVar(&dlgFlags.timeout, "timeout", 0, "Request timeout in seconds (default from config)")
	rootCmd.AddCommand(dialogueCmd)
}

// newGenerator builds a backend with optional per-invocation overrides.
func newGenerator(ctx context.Context, backend string, maxTokens int, timeout time.Duration) (llm.DialogueGenerator, error) {
	if err := checkBackend(backend); err != nil {
		return nil, err
	}
	if backend == llm.BackendGemini {
		gc, err := newGemini(ctx, maxTokens, timeout)
		if err != nil {
			return nil, err
		}
		return gc, nil
	}
	cc, err := newChat(backend, maxTokens, timeout)
	if err != nil {
		return nil, err
	}
	return cc, nil
}

func checkBackend(backend string) error {
	switch backend {
	case llm.BackendGemini, llm.BackendDeepSeek, llm.BackendMistral:
		return nil
	}
	return fmt.Errorf("unknown model %q (choose one of %s)", backend, strings.Join(llm.Backends, ", "))
}

func newGemini(ctx context.Context, maxTokens int, timeout time.Duration) (*llm.GeminiClient, error) {
	key, err := cfg.GeminiKey()
	if err != nil {
		return nil, err
	}
	opts := llm.GeminiOptions{
		Model:           cfg.Gemini.Model,
		Endpoint:        cfg.Gemini.Endpoint,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		TopP:            cfg.Gemini.TopP,
		TopK:            cfg.Gemini.TopK,
		Timeout:         timeout,
	}
	if maxTokens > 0 {
		opts.MaxOutputTokens = int64(maxTokens)
	}
	return llm.NewGeminiClient(ctx, key, opts)
}

func newChat(backend string, maxTokens int, timeout time.Duration) (*llm.ChatClient, error) {
	cc, err := llm.NewChatFromConfig(cfg, backend)
	if err != nil {
		return nil, err
	}
	if maxTokens > 0 {
		cc = cc.WithMaxTokens(maxTokens)
	}
	if timeout > 0 {
		cc = cc.WithTimeout(timeout)
	}
	return cc, nil
}

// templatedDialogue sends custom system/user prompts instead of the built-in
// dialogue prompt.
func templatedDialogue(ctx context.Context, backend, transcript, comments string) (string, error) {
	f := dlgFlags
	prompts, err := llm.LoadPromptFile(cfg.Prompts.File)
	if err != nil {
		return "", err
	}
	tpl, err := llm.LoadTemplateFiles(prompts.Dialogue, f.systemPrompt, f.userPrompt)
	if err != nil {
		return "", err
	}
	timeout := time.Duration(f.timeout) * time.Second

	if backend == llm.BackendGemini {
		gc, err := newGemini(ctx, f.maxTokens, timeout)
		if err != nil {
			return "", err
		}
		defer gc.Close()
		return gc.Generate(ctx, tpl.System+"\n\n"+tpl.RenderUser(comments, transcript))
	}
	cc, err := newChat(backend, f.maxTokens, timeout)
	if err != nil {
		return "", err
	}
	return cc.GenerateFromTemplates(ctx, tpl, transcript, comments)
}
