package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/GenreGenius/internal/config"
	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
	"github.com/himanishpuri/GenreGenius/pkg/logger"
)

var (
	configPath string
	endpoint   string
	logLevel   string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "genregenius",
	Short: "Predict the music genre of a YouTube track",
	Long: `GenreGenius sends a YouTube link to the prediction service, follows its
progress events and prints the genre probability distribution.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Prediction endpoint (overrides config and $"+config.EnvEndpoint+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if endpoint != "" {
		loaded.Client.Endpoint = endpoint
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}

	lvl, ok := logger.ParseLevel(loaded.Log.Level)
	if !ok {
		return fmt.Errorf("unknown log level %q", loaded.Log.Level)
	}
	logger.SetLevel(lvl)
	logger.SetColorize(loaded.Log.Colorize)

	cfg = loaded
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Prediction failures were already rendered with their user message.
		var perr *genregenius.PredictionError
		if !errors.As(err, &perr) {
			fmt.Fprintln(os.Stderr, "Error:", strings.TrimSpace(err.Error()))
		}
		os.Exit(1)
	}
}
