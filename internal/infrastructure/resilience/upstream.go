package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// HTTPStatusError is a non-2xx reply from an upstream HTTP service (Ollama,
// Qdrant). Service prefixes the message so logs say which backend failed.
type HTTPStatusError struct {
	Service    string
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

// NewHTTPStatusError reads at most 2KB of the body for the message.
func NewHTTPStatusError(service, operation string, resp *http.Response) *HTTPStatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Service:    service,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s %s status: %s", e.Service, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s status: %s: %s", e.Service, e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// RetryableStatus reports whether another attempt at the same request can
// succeed.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ClassifyUpstream handles the failures every HTTP backend shares: the caller
// giving up, an open breaker, a status code and a broken connection. statusOf
// pulls a status code out of client-specific error types and may be nil; an
// *HTTPStatusError is always recognised. ok is false when err is none of these
// and the backend classifier has to decide.
func ClassifyUpstream(err error, statusOf func(error) int) (ErrorClassification, bool) {
	if err == nil {
		return ErrorClassification{}, true
	}
	// Our own deadline or the caller's cancel: no time left to retry, and the
	// backend is not at fault.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{}, true
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}, true
	}

	status := 0
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		status = statusErr.StatusCode
	} else if statusOf != nil {
		status = statusOf(err)
	}
	if status != 0 {
		if RetryableStatus(status) {
			return ErrorClassification{Retryable: true, RecordFailure: true}, true
		}
		// 4xx is a bad request from us, not an unhealthy backend.
		return ErrorClassification{}, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}, true
	}
	return ErrorClassification{}, false
}

// WrapTemporary tags err with domain.ErrTemporary when classifier considers it
// retryable, so the HTTP adapter can answer 503 instead of 500.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier == nil {
		classifier = defaultClassifier
	}
	if classifier(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
