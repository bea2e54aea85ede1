// Package report summarizes the audit log for operators.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// maxLineBytes bounds one audit line; queries and answers are short text.
const maxLineBytes = 4 << 20

type Log struct {
	Records []domain.AuditRecord
	// Malformed counts lines that could not be decoded. A torn trailing line
	// from a crashed writer shows up here instead of failing the report.
	Malformed int
}

func LoadFile(path string) (Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return Log{}, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (Log, error) {
	var out Log
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record domain.AuditRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil || !record.Outcome.Valid() {
			out.Malformed++
			continue
		}
		out.Records = append(out.Records, record)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read audit log: %w", err)
	}
	return out, nil
}

type Count struct {
	Key   string
	Count int
}

type Summary struct {
	TotalRequests int
	Malformed     int

	RefusalRate  float64
	ErrorRate    float64
	AvgLatencyMS float64
	TotalCost    float64

	// Stage averages. Generation only counts requests that got past retrieval.
	AvgRetrievalMS  float64
	AvgGenerationMS float64

	// MeanAnsweredConfidence is nil when nothing was answered.
	MeanAnsweredConfidence *float64

	Outcomes []Count
	Reasons  []Count
}

func Summarize(log Log) Summary {
	s := Summary{
		TotalRequests: len(log.Records),
		Malformed:     log.Malformed,
	}

	outcomes := make(map[string]int)
	for _, outcome := range domain.Outcomes() {
		outcomes[string(outcome)] = 0
	}
	reasons := make(map[string]int)

	var refused, errored, answered, generated int
	var latencySum, retrievalSum, generationSum int64
	var confidenceSum float64
	for _, record := range log.Records {
		outcome := string(record.Outcome)
		outcomes[outcome]++
		if strings.HasPrefix(outcome, "REFUSED") {
			refused++
		}
		if strings.Contains(outcome, "ERROR") {
			errored++
		}
		latencySum += record.LatencyMS.Total
		retrievalSum += record.LatencyMS.Retrieval
		if record.Outcome != domain.OutcomeRetrievalError {
			generated++
			generationSum += record.LatencyMS.Generation
		}
		s.TotalCost += record.Cost

		if reason := ReasonOf(record); reason != "" {
			reasons[reason]++
		}
		if record.Outcome == domain.OutcomeAnswered && record.Confidence != nil {
			answered++
			confidenceSum += *record.Confidence
		}
	}

	if s.TotalRequests > 0 {
		total := float64(s.TotalRequests)
		s.RefusalRate = float64(refused) / total
		s.ErrorRate = float64(errored) / total
		s.AvgLatencyMS = float64(latencySum) / total
		s.AvgRetrievalMS = float64(retrievalSum) / total
	}
	if generated > 0 {
		s.AvgGenerationMS = float64(generationSum) / float64(generated)
	}
	if answered > 0 {
		mean := math.Round(confidenceSum/float64(answered)*1000) / 1000
		s.MeanAnsweredConfidence = &mean
	}
	s.Outcomes = sortedCounts(outcomes)
	s.Reasons = sortedCounts(reasons)
	return s
}

// ReasonOf returns the machine-readable reason recorded for a non-answered
// request, or "" for answered ones.
func ReasonOf(record domain.AuditRecord) string {
	switch {
	case record.Generation.RefusalReason != nil:
		return *record.Generation.RefusalReason
	case record.Generation.FailureReason != nil:
		return string(domain.ReasonGenerationFailure)
	case record.Retrieval.Error != nil:
		return string(domain.ReasonRetrievalFailure)
	default:
		return ""
	}
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
