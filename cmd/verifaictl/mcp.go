package main

import (
	"os"

	"github.com/spf13/cobra"

	mcpadapter "github.com/kpkavin04/VerifAI/internal/adapters/mcp"
	"github.com/kpkavin04/VerifAI/internal/bootstrap"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask_grounded tool over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := loadConfig()
			app, err := bootstrap.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			return mcpadapter.NewServer(app.QueryUC).ServeStdio(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
