// Package cli implements the pundit command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policy-pundit/internal/config"
)

var (
	version = "dev"
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "pundit",
	Short: "Answer coverage questions about insurance policy documents",
	Long: `pundit ingests a policy document, retrieves the clauses most similar to a
question and decides whether the policy covers it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}

// loadConfig reads configuration and installs the process logger.
// Logs go to stderr so stdout stays clean for command output.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
