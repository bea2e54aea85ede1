package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpkavin04/VerifAI/internal/config"
	"github.com/kpkavin04/VerifAI/internal/observability/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "verifaictl",
		Short:         "Operate the VerifAI grounded answering pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newIndexCmd(),
		newReportCmd(),
		newMCPCmd(),
		newTailCmd(),
		newEvaluateCmd(),
		newRetrieveCmd(),
	)
	return root
}

// loadConfig reads configuration and installs a logger on stderr so command
// output on stdout stays clean.
func loadConfig() (config.Config, *slog.Logger) {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "verifaictl", cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger
}
