package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kpkavin04/VerifAI/internal/bootstrap"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
	"github.com/kpkavin04/VerifAI/internal/evaluation"
)

func newEvaluateCmd() *cobra.Command {
	var (
		casesPath string
		baseURL   string
		csvPath   string
		xlsxPath  string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Replay labelled questions and score grounding and refusals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := loadConfig()
			out := cmd.OutOrStdout()

			cases, err := evaluation.LoadCases(casesPath)
			if err != nil {
				return err
			}

			var service ports.QueryService
			if baseURL != "" {
				service = evaluation.NewHTTPService(baseURL, cfg.GenerationTimeout*2)
			} else {
				app, err := bootstrap.New(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer app.Close()
				service = app.QueryUC
			}

			results, err := evaluation.NewRunner(service).Run(cmd.Context(), cases)
			if err != nil {
				return err
			}
			if err := writeEvaluationCSV(csvPath, results); err != nil {
				return err
			}
			if xlsxPath != "" {
				if err := evaluation.WriteXLSX(xlsxPath, results); err != nil {
					return err
				}
			}

			printEvaluation(out, evaluation.Summarize(results))
			fmt.Fprintf(out, "\nwrote %s\n", csvPath)
			if xlsxPath != "" {
				fmt.Fprintf(out, "wrote %s\n", xlsxPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&casesPath, "cases", "data/evaluation/evaluation.json", "JSON array of labelled questions")
	cmd.Flags().StringVar(&baseURL, "url", "", "evaluate a running API at this base URL instead of in-process")
	cmd.Flags().StringVar(&csvPath, "out", "evaluation_results.csv", "CSV results path")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write results to this XLSX file")
	return cmd
}

func writeEvaluationCSV(path string, results []evaluation.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := evaluation.WriteCSV(f, results); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printEvaluation(out io.Writer, t evaluation.Totals) {
	heading := color.New(color.Bold).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	rate := func(n int) float64 {
		if t.Cases == 0 {
			return 0
		}
		return float64(n) / float64(t.Cases) * 100
	}

	fmt.Fprintln(out, heading("Evaluation"))
	fmt.Fprintf(out, "  cases            %d\n", t.Cases)
	fmt.Fprintf(out, "  grounded         %d (%.1f%%)\n", t.Grounded, rate(t.Grounded))
	fmt.Fprintf(out, "  faithful         %d (%.1f%%)\n", t.Faithful, rate(t.Faithful))
	fmt.Fprintf(out, "  refusal correct  %d (%.1f%%)\n", t.RefusalCorrect, rate(t.RefusalCorrect))
	fmt.Fprintf(out, "  answered         %d\n", t.Answered)
	fmt.Fprintf(out, "  avg latency      %.0f ms\n", t.AvgLatencyMS)
	if t.Errors > 0 {
		fmt.Fprintf(out, "  %s\n", warn(fmt.Sprintf("%d requests failed", t.Errors)))
	}
}
