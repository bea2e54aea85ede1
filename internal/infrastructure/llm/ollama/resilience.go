package ollama

import (
	"errors"

	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
)

const serviceName = "ollama"

// errEmptyResponse is a 200 from /api/generate without any text. Ollama does
// this while a model is still loading (done_reason "load") and when sampling
// stops on the first token, so another attempt usually produces an answer.
var errEmptyResponse = errors.New("ollama returned an empty response")

// classifyOllamaError adds generation-specific cases on top of the shared
// upstream rules. An empty response is retried but does not count against the
// breaker: the server answered, it just had nothing to say yet.
func classifyOllamaError(err error) resilience.ErrorClassification {
	if errors.Is(err, errEmptyResponse) {
		return resilience.ErrorClassification{Retryable: true}
	}
	if class, ok := resilience.ClassifyUpstream(err, nil); ok {
		return class
	}
	// Undecodable bodies and the like point at a broken server.
	return resilience.ErrorClassification{RecordFailure: true}
}
