package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
)

const DefaultSubject = "verifai.audit"

// AuditPublisher fans completed audit records out on a NATS subject so
// dashboards and evaluators can follow the audit trail live.
type AuditPublisher struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string) (*AuditPublisher, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*AuditPublisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(
		url,
		nats.Name("verifai-audit"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &AuditPublisher{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (p *AuditPublisher) Name() string {
	return "nats"
}

func (p *AuditPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Append publishes the record as JSON with the outcome in a header so
// subscribers can filter without decoding the body.
func (p *AuditPublisher) Append(ctx context.Context, record domain.AuditRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set("Verifai-Request-Id", record.RequestID)
	msg.Header.Set("Verifai-Outcome", string(record.Outcome))

	call := func(_ context.Context) error {
		if err := p.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return resilience.WrapTemporary("nats publish", err, classifyNATSError)
	}
	return nil
}

// Subscribe decodes audit events until ctx is cancelled. Used by
// `verifaictl tail`.
func Subscribe(ctx context.Context, url, subject string, handler func(domain.AuditRecord)) error {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url, nats.Name("verifai-tail"))
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer conn.Close()

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		var record domain.AuditRecord
		if err := json.Unmarshal(msg.Data, &record); err != nil {
			slog.Warn("audit_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}
		handler(record)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}
