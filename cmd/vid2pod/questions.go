package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video2podcast/internal/llm"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Extract the audience questions a video raises",
	Example: `  vid2pod questions -c comments.txt -t transcript.txt -o questions.txt -m 5`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fl := cmd.Flags()
		commentsPath, _ := fl.GetString("comments")
		transcriptPath, _ := fl.GetString("transcript")
		output, _ := fl.GetString("output")
		max, _ := fl.GetInt("max")
		backend, _ := fl.GetString("model")
		systemPrompt, _ := fl.GetString("system-prompt")
		userPrompt, _ := fl.GetString("user-prompt")

		// credentials are checked before any file is read
		cc, err := llm.NewChatFromConfig(cfg, strings.ToLower(backend))
		if err != nil {
			return err
		}

		comments, err := readInput(commentsPath, "", "comments")
		if err != nil {
			return err
		}
		transcript, err := readInput(transcriptPath, "", "transcript")
		if err != nil {
			return err
		}

		prompts, err := llm.LoadPromptFile(cfg.Prompts.File)
		if err != nil {
			return err
		}
		tpl, err := llm.LoadTemplateFiles(prompts.Questions, systemPrompt, userPrompt)
		if err != nil {
			return err
		}

		questions, err := llm.NewQuestionGenerator(cc, tpl).Generate(cmd.Context(), transcript, comments, max)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), output, strings.Join(questions, "\n"), "questions")
	},
}

func init() {
	fl := questionsCmd.Flags()
	fl.StringP("comments", "c", "comments.txt", "Path to the comments file")
	fl.StringP("transcript", "t", "transcript.txt", "Path to the transcript file")
	fl.StringP("output", "o", "", "Where to write the questions (default: stdout)")
	fl.IntP("max", "m", 10, "Maximum number of questions to generate")
	fl.String("model", llm.BackendDeepSeek, "Chat backend: deepseek or mistral")
	fl.StringP("system-prompt", "s", "", "System prompt template file")
	fl.StringP("user-prompt", "u", "", "User prompt template file")
	rootCmd.AddCommand(questionsCmd)
}
