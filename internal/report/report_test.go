package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

const sampleLog = `{"request_id":"a","query":"leave?","retrieval":{"top_k":3,"retrieved_docs":[{"chunk_id":"leave_0","doc_id":"leave","score":0.7}],"error":null},"generation":{"model":"m","answer":"Ten days [ID: leave_0].","refusal_reason":null,"failure_reason":null},"confidence":0.8,"latency_ms":{"retrieval":10,"generation":90,"total":100},"cost":0.0,"outcome":"ANSWERED","timestamp":"2026-03-15T10:00:00.000+00:00"}
{"request_id":"b","query":"lunch?","retrieval":{"top_k":3,"retrieved_docs":[],"error":null},"generation":{"model":"m","answer":null,"refusal_reason":"INSUFFICIENT_POLICY_GROUNDING","failure_reason":null},"confidence":0.0,"latency_ms":{"retrieval":5,"generation":15,"total":20},"cost":0.0,"outcome":"REFUSED_NO_STRONG_RETRIEVAL","timestamp":"2026-03-15T10:00:01.000+00:00"}

{"request_id":"c","query":"badge?","retrieval":{"top_k":3,"retrieved_docs":[],"error":null},"generation":{"model":"m","answer":null,"refusal_reason":null,"failure_reason":"LLM error: timeout"},"confidence":0.0,"latency_ms":{"retrieval":10,"generation":50,"total":60},"cost":0.0,"outcome":"GENERATION_ERROR","timestamp":"2026-03-15T10:00:02.000+00:00"}
{"request_id":"d","query":"x","retrieval":{"top_k":3,"retrieved_docs":[],"error":"index missing"},"generation":{"model":"","answer":null,"refusal_reason":null,"failure_reason":null},"confidence":null,"latency_ms":{"retrieval":20,"generation":0,"total":20},"cost":0.0,"outcome":"RETRIEVAL_ERROR","timestamp":"2026-03-15T10:00:03.000+00:00"}
{"request_id":"e","query":"torn`

func TestLoadSkipsBlankAndMalformedLines(t *testing.T) {
	log, err := Load(strings.NewReader(sampleLog))
	require.NoError(t, err)

	assert.Len(t, log.Records, 4)
	assert.Equal(t, 1, log.Malformed)
	assert.Equal(t, "a", log.Records[0].RequestID)
	assert.Nil(t, log.Records[3].Confidence)
}

func TestLoadRejectsUnknownOutcome(t *testing.T) {
	log, err := Load(strings.NewReader(`{"request_id":"a","outcome":"MAYBE"}`))
	require.NoError(t, err)
	assert.Empty(t, log.Records)
	assert.Equal(t, 1, log.Malformed)
}

func TestSummarize(t *testing.T) {
	log, err := Load(strings.NewReader(sampleLog))
	require.NoError(t, err)

	s := Summarize(log)
	assert.Equal(t, 4, s.TotalRequests)
	assert.InDelta(t, 0.25, s.RefusalRate, 1e-9)
	assert.InDelta(t, 0.5, s.ErrorRate, 1e-9)
	assert.InDelta(t, 50.0, s.AvgLatencyMS, 1e-9)
	assert.InDelta(t, 11.25, s.AvgRetrievalMS, 1e-9)
	// The retrieval error never reached generation: (90+15+50)/3.
	assert.InDelta(t, 155.0/3.0, s.AvgGenerationMS, 1e-9)
	require.NotNil(t, s.MeanAnsweredConfidence)
	assert.InDelta(t, 0.8, *s.MeanAnsweredConfidence, 1e-9)

	outcomes := map[string]int{}
	for _, c := range s.Outcomes {
		outcomes[c.Key] = c.Count
	}
	assert.Equal(t, map[string]int{
		"ANSWERED":                    1,
		"REFUSED_NO_STRONG_RETRIEVAL": 1,
		"GENERATION_ERROR":            1,
		"RETRIEVAL_ERROR":             1,
	}, outcomes)

	reasons := map[string]int{}
	for _, c := range s.Reasons {
		reasons[c.Key] = c.Count
	}
	assert.Equal(t, map[string]int{
		string(domain.ReasonInsufficientGrounding): 1,
		string(domain.ReasonGenerationFailure):     1,
		string(domain.ReasonRetrievalFailure):      1,
	}, reasons)
}

func TestSummarizeEmptyLog(t *testing.T) {
	s := Summarize(Log{})
	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.RefusalRate)
	assert.Nil(t, s.MeanAnsweredConfidence)
	assert.Len(t, s.Outcomes, len(domain.Outcomes()))
}

func TestWriteXLSX(t *testing.T) {
	log, err := Load(strings.NewReader(sampleLog))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "audit.xlsx")
	require.NoError(t, WriteXLSX(path, log))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, requestsSheet}, f.GetSheetList())

	total, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "4", total)

	stage, err := f.GetCellValue(summarySheet, "A7")
	require.NoError(t, err)
	assert.Equal(t, "avg_retrieval_ms", stage)
	retrieval, err := f.GetCellValue(summarySheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "11.25", retrieval)
	stage, err = f.GetCellValue(summarySheet, "A8")
	require.NoError(t, err)
	assert.Equal(t, "avg_generation_ms", stage)

	rows, err := f.GetRows(requestsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "request_id", rows[0][1])
	assert.Equal(t, "a", rows[1][1])
	assert.Equal(t, "INSUFFICIENT_POLICY_GROUNDING", rows[2][4])
	assert.Equal(t, "leave_0", rows[1][7])
}
