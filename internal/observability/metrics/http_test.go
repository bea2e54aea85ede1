package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

func TestObserveQueryCountsOutcomes(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	confidence := 0.82

	m.ObserveQuery(domain.AuditRecord{
		Outcome:    domain.OutcomeAnswered,
		Confidence: &confidence,
		Retrieval:  domain.AuditRetrieval{RetrievedDocs: []domain.AuditChunkHit{{ChunkID: "a_0"}}},
		LatencyMS:  domain.AuditLatency{Retrieval: 20, Generation: 800, Total: 820},
	})
	m.ObserveQuery(domain.AuditRecord{Outcome: domain.OutcomeRetrievalError})
	m.ObserveQuery(domain.AuditRecord{Outcome: domain.OutcomeAnswered})

	if got := testutil.ToFloat64(m.queryOutcomesTotal.WithLabelValues("api", "ANSWERED")); got != 2 {
		t.Fatalf("expected 2 answered, got %v", got)
	}
	if got := testutil.ToFloat64(m.queryOutcomesTotal.WithLabelValues("api", "RETRIEVAL_ERROR")); got != 1 {
		t.Fatalf("expected 1 retrieval error, got %v", got)
	}
	if got := testutil.CollectAndCount(m.queryConfidence); got != 1 {
		t.Fatalf("expected one confidence series, got %d", got)
	}
}

func TestMiddlewareAndHandlerExposeRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordAuditFailure()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/query", nil))

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodPost, "/query", "418")); got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}

	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "verifai_audit_append_failures_total") {
		t.Fatalf("expected audit failure metric in exposition")
	}
}
