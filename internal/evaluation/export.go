package evaluation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Evaluation"

var resultColumns = []string{
	"id", "question", "outcome", "grounded", "faithful", "refusal_correct",
	"answered", "confidence", "latency_ms", "error",
}

func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.ID, r.Question, string(r.Outcome),
			strconv.FormatBool(r.Grounded), strconv.FormatBool(r.Faithful),
			strconv.FormatBool(r.RefusalCorrect), strconv.FormatBool(r.Answered),
			strconv.FormatFloat(r.Confidence, 'f', 3, 64),
			strconv.FormatInt(r.LatencyMS, 10), r.Error,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes one row per case to a single sheet.
func WriteXLSX(path string, results []Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, 0, len(resultColumns))
	for _, c := range resultColumns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.ID, r.Question, string(r.Outcome), r.Grounded, r.Faithful,
			r.RefusalCorrect, r.Answered, r.Confidence, r.LatencyMS, r.Error,
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
