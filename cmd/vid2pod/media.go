package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video2podcast/internal/download"
	"github.com/codebuildervaibhav/video2podcast/internal/storage"
	"github.com/codebuildervaibhav/video2podcast/internal/transcription"
)

var downloadCmd = &cobra.Command{
	Use:     "download URL",
	Short:   "Download a video's audio track with yt-dlp",
	Example: `  vid2pod download "https://www.youtube.com/watch?v=SA7bKo4HRTg" -d downloads -n leadership`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("output-dir")
		name, _ := cmd.Flags().GetString("name")
		if dir == "" {
			dir = cfg.Storage.TempDir
		}
		if name == "" {
			name = "audio"
		}

		d := download.NewDownloader(cfg.Download.Binary, dir, cfg.Download.AudioFormat)
		path, err := d.Download(cmd.Context(), args[0], name)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:     "transcribe AUDIO",
	Short:   "Transcribe an audio file with whisper.cpp",
	Example: `  vid2pod transcribe downloads/leadership.mp3 --model-dir ./models -o transcript.txt`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fl := cmd.Flags()
		modelDir, _ := fl.GetString("model-dir")
		modelName, _ := fl.GetString("model")
		output, _ := fl.GetString("output")
		normalize, _ := fl.GetBool("normalize")
		if modelDir == "" {
			modelDir = cfg.Whisper.ModelDir
		}
		if modelName == "" {
			modelName = cfg.Whisper.ModelName
		}

		wt := transcription.NewWhisperTranscriber(cfg.Whisper.Binary, modelDir, modelName, cfg.Whisper.Threads, cfg.Whisper.Language)
		// fail on a missing model before spending time in ffmpeg
		if err := wt.CheckModel(); err != nil {
			return err
		}

		audio := args[0]
		if normalize && !strings.EqualFold(filepath.Ext(audio), ".wav") {
			n := transcription.NewFFmpegNormalizer(cfg.Whisper.FFmpeg, cfg.Storage.TempDir)
			wav, err := n.Normalize(cmd.Context(), audio)
			if err != nil {
				return err
			}
			defer os.Remove(wav)
			audio = wav
		}

		text, err := wt.Transcribe(cmd.Context(), audio)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), output, text, "transcript")
	},
}

var driveAuthCmd = &cobra.Command{
	Use:   "drive-auth",
	Short: "Authorize Google Drive uploads (one-time OAuth flow)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gd := cfg.GoogleDrive
		if err := storage.Authorize(cmd.Context(), gd.CredentialsFile, gd.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", gd.TokenFile)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("output-dir", "d", "", "Directory for the audio file (default: storage.tempDir)")
	downloadCmd.Flags().StringP("name", "n", "", "Base file name (default: audio)")

	transcribeCmd.Flags().String("model-dir", "", "Directory holding whisper models (default from config)")
	transcribeCmd.Flags().String("model", "", "Model file name (default from config)")
	transcribeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	transcribeCmd.Flags().Bool("normalize", true, "Convert to 16 kHz mono WAV with ffmpeg first")

	rootCmd.AddCommand(downloadCmd, transcribeCmd, driveAuthCmd)
}
