package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/evaluation"
)

func TestPrintEvaluation(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printEvaluation(&out, evaluation.Totals{Cases: 4, Grounded: 4, Faithful: 3, RefusalCorrect: 2, Answered: 2, Errors: 1, AvgLatencyMS: 812})

	for _, want := range []string{
		"cases            4",
		"faithful         3 (75.0%)",
		"refusal correct  2 (50.0%)",
		"avg latency      812 ms",
		"1 requests failed",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in:\n%s", want, out.String())
		}
	}
}

func TestPrintEvaluationWithoutCases(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printEvaluation(&out, evaluation.Totals{})
	if !strings.Contains(out.String(), "grounded         0 (0.0%)") {
		t.Fatalf("unexpected summary:\n%s", out.String())
	}
}

func TestWriteEvaluationCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation_results.csv")
	results := []evaluation.Result{{ID: "q1", Question: "leave?", Outcome: domain.OutcomeRefused, Faithful: true}}
	if err := writeEvaluationCSV(path, results); err != nil {
		t.Fatalf("writeEvaluationCSV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "q1" || rows[1][2] != "REFUSED_NO_STRONG_RETRIEVAL" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestPrintChunks(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printChunks(&out, []domain.RetrievedChunk{
		{Text: "Interns accrue ten days.", Similarity: 0.71, Metadata: domain.ChunkMetadata{ChunkID: "leave_policy_0", Source: "leave_policy.txt"}},
		{Text: "Dress code applies.", Similarity: 0.42, Metadata: domain.ChunkMetadata{ChunkID: "dress_code_2", Source: "dress_code.txt"}},
	})

	got := out.String()
	for _, want := range []string{
		"Chunk ID: leave_policy_0",
		"Source: leave_policy.txt",
		"Similarity: 0.710",
		"Text:\nInterns accrue ten days.",
		"Chunk ID: dress_code_2",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in:\n%s", want, got)
		}
	}

	out.Reset()
	printChunks(&out, nil)
	if strings.TrimSpace(out.String()) != "no chunks returned" {
		t.Fatalf("unexpected empty output %q", out.String())
	}
}

func TestRootRegistersEvaluateAndRetrieve(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"evaluate", "retrieve"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %s subcommand, got %v (%v)", name, cmd, err)
		}
	}
}
