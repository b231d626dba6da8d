package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/wzstats-client/internal/config"
	"github.com/Sternrassler/wzstats-client/pkg/logging"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	cfgFile   string
	logLevel  string
	logPretty bool
)

// rootCmd represents the base command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "wzstats",
	Short: "Warzone stats client - rate-limit friendly access to player statistics",
	Long: `wzstats fetches player profiles, match history and full match details
from the stats API while staying below its rate limits: calls are retried
with backoff, match details are fetched with bounded concurrency, and
results are cached and shared between concurrent callers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); WZSTATS_* environment variables override it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "human-readable console logs")
}

// loadConfig reads the configuration, applies the logging flags and sets up
// the global logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logging.LogLevel(logLevel)
		if !cfg.Logging.Level.Valid() {
			return nil, fmt.Errorf("invalid --log-level %q", logLevel)
		}
	}
	if cmd.Flags().Changed("log-pretty") {
		cfg.Logging.Pretty = logPretty
	}

	cfg.Logging.Output = os.Stderr
	logging.Setup(cfg.Logging)
	return cfg, nil
}
