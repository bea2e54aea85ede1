package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kpkavin04/VerifAI/internal/config"
	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
	"github.com/kpkavin04/VerifAI/internal/observability/metrics"
)

const maxQueryBodyBytes = 64 << 10

type Router struct {
	queryService ports.QueryService
	metrics      *metrics.HTTPServerMetrics
	validator    *requestValidator

	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

// NewRouter wires the query service behind the HTTP surface. metrics may be
// nil, in which case /metrics is not served.
func NewRouter(cfg config.Config, queryService ports.QueryService, httpMetrics *metrics.HTTPServerMetrics) *Router {
	validator, err := newRequestValidator()
	if err != nil {
		// The document is embedded at build time.
		panic(err)
	}
	return &Router{
		queryService:     queryService,
		metrics:          httpMetrics,
		validator:        validator,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIBackpressureMaxInFlight,
		backpressureWait: cfg.APIBackpressureWait,
	}
}

func (rt *Router) Handler() http.Handler {
	query := http.Handler(http.HandlerFunc(rt.query))
	query = backpressureMiddleware(query, rt.maxInFlight, rt.backpressureWait)
	query = rateLimitMiddleware(query, rt.rateLimitRPS, rt.rateLimitBurst)

	mux := http.NewServeMux()
	mux.Handle("/query", query)
	mux.HandleFunc("/health", rt.health)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)
	if err := rt.validator.validate(r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return
	}

	var req struct {
		Question string `json:"question"`
		TopK     *int   `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	resp, err := rt.queryService.Answer(r.Context(), domain.QueryRequest{
		RequestID: requestIDFromContext(r.Context()),
		Question:  req.Question,
		TopK:      req.TopK,
	})
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrAuditUnavailable) {
			rt.metrics.RecordAuditFailure()
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
