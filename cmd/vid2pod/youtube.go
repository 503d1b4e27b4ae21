package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video2podcast/internal/youtube"
)

var commentsCmd = &cobra.Command{
	Use:   "comments VIDEO",
	Short: "Fetch top-level YouTube comments",
	Example: `  vid2pod comments SA7bKo4HRTg -o comments.txt -n 200
  vid2pod comments "https://www.youtube.com/watch?v=SA7bKo4HRTg" --top-comments`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, err := youtube.ExtractVideoID(args[0])
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		limit, _ := cmd.Flags().GetInt("limit")
		top, _ := cmd.Flags().GetBool("top-comments")

		text, n, err := fetchComments(cmd.Context(), videoID, limit, top)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Fetched %d comments for %s\n", n, videoID)
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), output, text, "comments")
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript VIDEO",
	Short: "Fetch a YouTube caption track as plain text",
	Example: `  vid2pod transcript SA7bKo4HRTg -o transcript.txt
  vid2pod transcript SA7bKo4HRTg -l de,en`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, err := youtube.ExtractVideoID(args[0])
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		languages, _ := cmd.Flags().GetStringSlice("languages")

		text, err := fetchTranscript(cmd.Context(), videoID, languages)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), output, text, "transcript")
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch VIDEO",
	Short: "Fetch both the transcript and the comments of a video",
	Example: `  vid2pod fetch SA7bKo4HRTg
  vid2pod fetch SA7bKo4HRTg --transcript-out t.txt --comments-out c.txt -n 100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, err := youtube.ExtractVideoID(args[0])
		if err != nil {
			return err
		}
		fl := cmd.Flags()
		transcriptOut, _ := fl.GetString("transcript-out")
		commentsOut, _ := fl.GetString("comments-out")
		limit, _ := fl.GetInt("limit")
		languages, _ := fl.GetStringSlice("languages")
		top, _ := fl.GetBool("top-comments")

		// the API key is required either way, so fail before scraping
		if _, err := cfg.YouTubeKey("comment retrieval"); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Fetching transcript for video %s …\n", videoID)
		transcript, err := fetchTranscript(cmd.Context(), videoID, languages)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), transcriptOut, transcript, "transcript"); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Fetching comments for video %s …\n", videoID)
		comments, _, err := fetchComments(cmd.Context(), videoID, limit, top)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), commentsOut, comments, "comments")
	},
}

func init() {
	commentsCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	commentsCmd.Flags().IntP("limit", "n", 0, "Maximum number of comments (default: all available)")
	commentsCmd.Flags().BoolP("top-comments", "t", false, "Fetch relevance-ranked comments instead of most recent")

	transcriptCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	transcriptCmd.Flags().StringSliceP("languages", "l", nil, "Caption language preference, first match wins (default from config)")

	fetchCmd.Flags().String("transcript-out", "transcript.txt", "Transcript output file")
	fetchCmd.Flags().String("comments-out", "comments.txt", "Comments output file")
	fetchCmd.Flags().IntP("limit", "n", 0, "Maximum number of comments (default: all available)")
	fetchCmd.Flags().StringSliceP("languages", "l", nil, "Caption language preference (default from config)")
	fetchCmd.Flags().BoolP("top-comments", "t", false, "Fetch relevance-ranked comments")

	rootCmd.AddCommand(commentsCmd, transcriptCmd, fetchCmd)
}

// fetchComments returns the comments joined by blank lines and their count.
// Comments gathered before an API error are still returned with the error.
func fetchComments(ctx context.Context, videoID string, limit int, top bool) (string, int, error) {
	key, err := cfg.YouTubeKey("comment retrieval")
	if err != nil {
		return "", 0, err
	}
	fetcher, err := youtube.NewCommentFetcher(ctx, key, cfg.YouTube.PageSize, cfg.YouTube.PagesPerSecond)
	if err != nil {
		return "", 0, err
	}
	if top {
		fetcher.Order = youtube.OrderRelevance
	}
	comments, err := fetcher.Fetch(ctx, videoID, limit)
	if err != nil {
		return "", len(comments), err
	}
	return youtube.JoinComments(comments), len(comments), nil
}

func fetchTranscript(ctx context.Context, videoID string, languages []string) (string, error) {
	if len(languages) == 0 {
		languages = cfg.YouTube.CaptionLanguages
	}
	return youtube.NewCaptionFetcher(cfg.YouTube.BaseURL).Fetch(ctx, videoID, languages)
}
