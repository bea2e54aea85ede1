package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kpkavin04/VerifAI/internal/bootstrap"
	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
)

func newRetrieveCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "retrieve <question>",
		Short: "Show the chunks the vector store returns for a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := loadConfig()
			cfg.Resilience = resilience.Disabled()
			if topK < 1 {
				return fmt.Errorf("--top-k must be at least 1")
			}

			retriever, err := bootstrap.NewRetriever(cfg, logger)
			if err != nil {
				return err
			}
			chunks, err := retriever.Retrieve(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			printChunks(cmd.OutOrStdout(), chunks)
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 2, "number of chunks to return")
	return cmd
}

func printChunks(out io.Writer, chunks []domain.RetrievedChunk) {
	if len(chunks) == 0 {
		fmt.Fprintln(out, "no chunks returned")
		return
	}
	heading := color.New(color.Bold).SprintFunc()
	for i, chunk := range chunks {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s %s\n", heading("Chunk ID:"), chunk.Metadata.ChunkID)
		fmt.Fprintf(out, "%s %s\n", heading("Source:"), chunk.Metadata.Source)
		fmt.Fprintf(out, "%s %.3f\n", heading("Similarity:"), chunk.Score())
		fmt.Fprintf(out, "%s\n%s\n", heading("Text:"), chunk.Text)
	}
}
