package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/queue/nats"
)

func newTailCmd() *cobra.Command {
	var url, subject string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow audit records published to NATS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadConfig()
			if url == "" {
				url = cfg.AuditNATSURL
			}
			if subject == "" {
				subject = cfg.AuditNATSSubject
			}
			if url == "" {
				return fmt.Errorf("no NATS url: set AUDIT_NATS_URL or --url")
			}
			out := cmd.OutOrStdout()
			return nats.Subscribe(cmd.Context(), url, subject, func(record domain.AuditRecord) {
				printRecord(out, record)
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "NATS url (defaults to AUDIT_NATS_URL)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject (defaults to AUDIT_NATS_SUBJECT)")
	return cmd
}

func printRecord(out io.Writer, record domain.AuditRecord) {
	var outcome string
	switch record.Outcome {
	case domain.OutcomeAnswered:
		outcome = color.GreenString("%-28s", record.Outcome)
	case domain.OutcomeRefused:
		outcome = color.YellowString("%-28s", record.Outcome)
	default:
		outcome = color.RedString("%-28s", record.Outcome)
	}
	confidence := "-"
	if record.Confidence != nil {
		confidence = fmt.Sprintf("%.3f", *record.Confidence)
	}
	fmt.Fprintf(out, "%s %s conf=%s total=%dms %q\n",
		record.Timestamp, outcome, confidence, record.LatencyMS.Total, record.Query)
}
