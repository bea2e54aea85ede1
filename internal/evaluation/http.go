package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// HTTPService sends questions to a running API's POST /query, so a deployed
// instance can be evaluated without local access to its stores.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPService(baseURL string, timeout time.Duration) *HTTPService {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPService) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	payload := map[string]any{"question": req.Question}
	if req.TopK != nil {
		payload["top_k"] = *req.TopK
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("query status: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var out domain.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	// The wire shape has no outcome field; derive it from answer and reason.
	switch {
	case out.Answer != nil:
		out.Outcome = domain.OutcomeAnswered
	case out.Reason == domain.ReasonGenerationFailure:
		out.Outcome = domain.OutcomeGenerationError
	default:
		out.Outcome = domain.OutcomeRefused
	}
	return &out, nil
}
