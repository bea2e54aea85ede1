package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/repository/postgres"
	"github.com/kpkavin04/VerifAI/internal/report"
)

func newReportCmd() *cobra.Command {
	var (
		logPath  string
		xlsxPath string
		fromDB   bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadConfig()
			out := cmd.OutOrStdout()

			if fromDB {
				if cfg.AuditPostgresDSN == "" {
					return fmt.Errorf("AUDIT_POSTGRES_DSN is not set")
				}
				return printMirrorCounts(cmd.Context(), out, cfg.AuditPostgresDSN)
			}

			if logPath == "" {
				logPath = cfg.AuditLogPath
			}
			log, err := report.LoadFile(logPath)
			if err != nil {
				return err
			}
			printSummary(out, report.Summarize(log))

			if xlsxPath != "" {
				if err := report.WriteXLSX(xlsxPath, log); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nwrote %s\n", xlsxPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "audit log path (defaults to AUDIT_LOG_PATH)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also export the log to this XLSX file")
	cmd.Flags().BoolVar(&fromDB, "postgres", false, "count outcomes in the Postgres mirror instead of the file")
	return cmd
}

func printSummary(out io.Writer, s report.Summary) {
	heading := color.New(color.Bold).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintln(out, heading("Requests"))
	fmt.Fprintf(out, "  total            %d\n", s.TotalRequests)
	fmt.Fprintf(out, "  refusal rate     %.2f%%\n", s.RefusalRate*100)
	fmt.Fprintf(out, "  error rate       %.2f%%\n", s.ErrorRate*100)
	fmt.Fprintf(out, "  avg latency      %.0f ms (retrieval %.0f, generation %.0f)\n", s.AvgLatencyMS, s.AvgRetrievalMS, s.AvgGenerationMS)
	fmt.Fprintf(out, "  total cost       $%.2f\n", s.TotalCost)
	if s.MeanAnsweredConfidence != nil {
		fmt.Fprintf(out, "  mean confidence  %.3f (answered)\n", *s.MeanAnsweredConfidence)
	}
	if s.Malformed > 0 {
		fmt.Fprintf(out, "  %s\n", warn(fmt.Sprintf("%d malformed lines skipped", s.Malformed)))
	}

	fmt.Fprintln(out, heading("\nOutcomes"))
	for _, c := range s.Outcomes {
		fmt.Fprintf(out, "  %-30s %d\n", c.Key, c.Count)
	}
	if len(s.Reasons) > 0 {
		fmt.Fprintln(out, heading("\nReasons"))
		for _, c := range s.Reasons {
			fmt.Fprintf(out, "  %-30s %d\n", c.Key, c.Count)
		}
	}
}

func printMirrorCounts(ctx context.Context, out io.Writer, dsn string) error {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := postgres.NewAuditRepository(db).OutcomeCounts(ctx)
	if err != nil {
		return err
	}
	outcomes := make([]domain.Outcome, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

	fmt.Fprintln(out, color.New(color.Bold).Sprint("Outcomes (postgres mirror)"))
	for _, outcome := range outcomes {
		fmt.Fprintf(out, "  %-30s %d\n", outcome, counts[outcome])
	}
	return nil
}
