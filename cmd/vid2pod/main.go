package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video2podcast/internal/config"
	"github.com/codebuildervaibhav/video2podcast/internal/logging"
)

var (
	cfgFile  string
	envFile  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vid2pod",
	Short: "Turn videos into podcast-style dialogue",
	Long: `vid2pod downloads a video's audio, transcribes it with whisper.cpp and asks an
LLM to rewrite the transcript (plus audience comments) as a host/guest dialogue.

Run "vid2pod serve" for the HTTP service or use the subcommands for the
individual steps.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with API keys")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
}

// setup loads the dotenv file and configuration, then installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	n, err := config.LoadDotenv(envFile)
	if err != nil {
		return err
	}

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logging.Setup(level, os.Stderr)
	slog.Debug("configuration loaded", slog.Int("dotenv_vars", n), slog.String("command", cmd.Name()))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
