package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

const namespace = "verifai"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryOutcomesTotal   *prometheus.CounterVec
	queryConfidence      *prometheus.HistogramVec
	queryStageDuration   *prometheus.HistogramVec
	queryRetrievedChunks *prometheus.HistogramVec
	auditFailuresTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryOutcomesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "outcomes_total",
			Help:      "Total audited queries by outcome.",
		},
		[]string{"service", "outcome"},
	)
	queryConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "confidence",
			Help:      "Distribution of estimated confidence by outcome.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "outcome"},
	)
	queryStageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "stage"},
	)
	queryRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per audited query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	auditFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "append_failures_total",
			Help:      "Total queries whose audit record could not be written.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryOutcomesTotal,
		queryConfidence,
		queryStageDuration,
		queryRetrievedChunks,
		auditFailuresTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		service:              service,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		queryOutcomesTotal:   queryOutcomesTotal,
		queryConfidence:      queryConfidence,
		queryStageDuration:   queryStageDuration,
		queryRetrievedChunks: queryRetrievedChunks,
		auditFailuresTotal:   auditFailuresTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := normalizePath(r.URL.Path)
		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch path {
	case "/query", "/health", "/metrics":
		return path
	default:
		return "other"
	}
}

// ObserveQuery records one audited query. It is registered as a query
// observer so it only sees records that reached the audit log.
func (m *HTTPServerMetrics) ObserveQuery(record domain.AuditRecord) {
	outcome := string(record.Outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.queryOutcomesTotal.WithLabelValues(m.service, outcome).Inc()
	if record.Confidence != nil {
		m.queryConfidence.WithLabelValues(m.service, outcome).Observe(*record.Confidence)
	}
	m.queryRetrievedChunks.WithLabelValues(m.service).Observe(float64(len(record.Retrieval.RetrievedDocs)))

	m.queryStageDuration.WithLabelValues(m.service, "retrieval").Observe(msToSeconds(record.LatencyMS.Retrieval))
	if record.Outcome != domain.OutcomeRetrievalError {
		m.queryStageDuration.WithLabelValues(m.service, "generation").Observe(msToSeconds(record.LatencyMS.Generation))
	}
	m.queryStageDuration.WithLabelValues(m.service, "total").Observe(msToSeconds(record.LatencyMS.Total))
}

func (m *HTTPServerMetrics) RecordAuditFailure() {
	m.auditFailuresTotal.WithLabelValues(m.service).Inc()
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000.0
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
