// Package cmd implements the CLI commands for subdigest using Cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/subdigest/internal/config"
	"github.com/gaurav-prasanna/subdigest/internal/observability"
)

var (
	cfgFile string
	envFile string
	verbose bool
	noColor bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "subdigest",
	Short: "subdigest emails a digest of top Reddit posts",
	Long: `subdigest collects the top posts of a set of subreddits, fetches the
body of each post, and emails one HTML digest.

Usage:
  subdigest send [flags]
  subdigest preview --html [flags]`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .subdigest.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with Reddit credentials (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored status output")
}

// initConfig loads configuration and sets up the logger.
func initConfig() error {
	var err error

	cfg, err = config.Load(cfgFile, envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger = observability.NewLogger(os.Stderr, level)

	logger.Debug("configuration loaded",
		"subreddits", cfg.Digest.Subreddits,
		"transport", cfg.Mail.Transport,
		"strategy", cfg.Extract.Strategy,
	)
	return nil
}
