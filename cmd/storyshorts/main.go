package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/logging"
)

var (
	cfgFile string
	verbose bool

	// logBuffer keeps recent log lines for GET /logs.
	logBuffer = logging.NewBuffer(1000)
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storyshorts",
	Short: "storyshorts - narrated short-video generator",
	Long:  "Turns text stories into narrated vertical videos with a title card, word-synced captions and a looping background.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose, logBuffer)

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Msg("failed to read .env")
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			log.Error().Err(err).Msg("invalid configuration")
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(videosCmd)
	rootCmd.AddCommand(driveCmd)
}
