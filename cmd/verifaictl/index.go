package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kpkavin04/VerifAI/internal/bootstrap"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/storage/localfs"
)

type fileIndexer interface {
	Supports(path string) bool
	IndexFile(ctx context.Context, path string) (int, error)
}

type indexStats struct {
	Files  int
	Chunks int
	Failed int
}

func newIndexCmd() *cobra.Command {
	var failFast bool
	cmd := &cobra.Command{
		Use:   "index [corpus-dir]",
		Short: "Extract, chunk and embed corpus documents into the vector store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := loadConfig()
			// Indexing is interactive; fail fast instead of tripping breakers.
			cfg.Resilience = resilience.Disabled()

			dir := cfg.CorpusPath
			if len(args) == 1 {
				dir = args[0]
			}
			corpus, err := localfs.New(dir)
			if err != nil {
				return err
			}
			indexer, err := bootstrap.NewIndexer(cfg, logger)
			if err != nil {
				return err
			}

			stats, err := runIndex(cmd.Context(), cmd.OutOrStdout(), corpus, indexer, failFast)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to index", stats.Failed, stats.Files)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first file that fails")
	return cmd
}

func runIndex(ctx context.Context, out io.Writer, corpus *localfs.Corpus, indexer fileIndexer, failFast bool) (indexStats, error) {
	files, err := corpus.Files(indexer.Supports)
	if err != nil {
		return indexStats{}, err
	}
	if len(files) == 0 {
		return indexStats{}, fmt.Errorf("no supported documents found")
	}

	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	var stats indexStats
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Files++
		n, err := indexer.IndexFile(ctx, path)
		if err != nil {
			stats.Failed++
			fmt.Fprintf(out, "%s %s: %v\n", bad("FAIL"), filepath.Base(path), err)
			if failFast {
				return stats, err
			}
			continue
		}
		stats.Chunks += n
		fmt.Fprintf(out, "%s %s (%d chunks)\n", ok("OK  "), filepath.Base(path), n)
	}
	fmt.Fprintf(out, "indexed %d chunks from %d files\n", stats.Chunks, stats.Files-stats.Failed)
	return stats, nil
}
