package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

const (
	summarySheet  = "Summary"
	requestsSheet = "Requests"
)

var requestColumns = []any{
	"timestamp", "request_id", "query", "outcome", "reason", "confidence",
	"top_k", "retrieved_chunks", "retrieval_ms", "generation_ms", "total_ms",
	"model", "cost",
}

// WriteXLSX writes a summary sheet and one row per audit record.
func WriteXLSX(path string, log Log) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, Summarize(log)); err != nil {
		return err
	}
	if _, err := f.NewSheet(requestsSheet); err != nil {
		return fmt.Errorf("create requests sheet: %w", err)
	}
	if err := writeRequests(f, log.Records); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeSummary(f *excelize.File, s Summary) error {
	rows := [][]any{
		{"metric", "value"},
		{"total_requests", s.TotalRequests},
		{"malformed_lines", s.Malformed},
		{"refusal_rate", s.RefusalRate},
		{"error_rate", s.ErrorRate},
		{"avg_latency_ms", s.AvgLatencyMS},
		{"avg_retrieval_ms", s.AvgRetrievalMS},
		{"avg_generation_ms", s.AvgGenerationMS},
		{"total_cost", s.TotalCost},
	}
	if s.MeanAnsweredConfidence != nil {
		rows = append(rows, []any{"mean_answered_confidence", *s.MeanAnsweredConfidence})
	}
	rows = append(rows, []any{})
	rows = append(rows, []any{"outcome", "count"})
	for _, c := range s.Outcomes {
		rows = append(rows, []any{c.Key, c.Count})
	}
	if len(s.Reasons) > 0 {
		rows = append(rows, []any{})
		rows = append(rows, []any{"reason", "count"})
		for _, c := range s.Reasons {
			rows = append(rows, []any{c.Key, c.Count})
		}
	}
	return setRows(f, summarySheet, rows)
}

func writeRequests(f *excelize.File, records []domain.AuditRecord) error {
	rows := make([][]any, 0, len(records)+1)
	rows = append(rows, requestColumns)
	for _, r := range records {
		var confidence any
		if r.Confidence != nil {
			confidence = *r.Confidence
		}
		chunkIDs := make([]string, 0, len(r.Retrieval.RetrievedDocs))
		for _, hit := range r.Retrieval.RetrievedDocs {
			chunkIDs = append(chunkIDs, hit.ChunkID)
		}
		rows = append(rows, []any{
			r.Timestamp, r.RequestID, r.Query, string(r.Outcome), ReasonOf(r), confidence,
			r.Retrieval.TopK, strings.Join(chunkIDs, ", "),
			r.LatencyMS.Retrieval, r.LatencyMS.Generation, r.LatencyMS.Total,
			r.Generation.Model, r.Cost,
		})
	}
	return setRows(f, requestsSheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
