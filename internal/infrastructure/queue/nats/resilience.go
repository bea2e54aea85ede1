package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
)

// Connection-state errors clear up once the client reconnects.
var transientNATSErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	nats.ErrReconnectBufExceeded,
	nats.ErrDisconnected,
}

// classifyNATSError decides how audit publishes are retried. A record over
// the server's max payload will never fit, and the server is healthy, so it is
// neither retried nor counted against the breaker.
func classifyNATSError(err error) resilience.ErrorClassification {
	if errors.Is(err, nats.ErrMaxPayload) {
		return resilience.ErrorClassification{}
	}
	for _, transient := range transientNATSErrors {
		if errors.Is(err, transient) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	if class, ok := resilience.ClassifyUpstream(err, nil); ok {
		return class
	}
	return resilience.ErrorClassification{RecordFailure: true}
}
