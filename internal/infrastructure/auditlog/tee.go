package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
)

// Mirror is a secondary sink that receives a copy of every durable record.
type Mirror interface {
	Name() string
	Append(ctx context.Context, record domain.AuditRecord) error
}

// DefaultMirrorTimeout bounds how long one request waits for its mirrors.
const DefaultMirrorTimeout = 500 * time.Millisecond

// Tee writes to the primary log and then copies the record to every mirror.
// Only the primary write decides the result; mirror failures are logged.
type Tee struct {
	primary       ports.AuditLog
	mirrors       []Mirror
	logger        *slog.Logger
	now           func() time.Time
	mirrorTimeout time.Duration
}

func NewTee(primary ports.AuditLog, logger *slog.Logger, mirrors ...Mirror) *Tee {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tee{
		primary:       primary,
		mirrors:       mirrors,
		logger:        logger,
		now:           time.Now,
		mirrorTimeout: DefaultMirrorTimeout,
	}
}

// WithMirrorTimeout sets the per-request mirror deadline. Non-positive values
// keep the default.
func (t *Tee) WithMirrorTimeout(timeout time.Duration) *Tee {
	if timeout > 0 {
		t.mirrorTimeout = timeout
	}
	return t
}

// Append stamps the record once so the primary and every mirror store the same
// timestamp.
func (t *Tee) Append(ctx context.Context, record domain.AuditRecord) error {
	if record.Timestamp == "" {
		record.Timestamp = Timestamp(t.now())
	}
	if err := t.primary.Append(ctx, record); err != nil {
		return err
	}
	t.mirror(ctx, record)
	return nil
}

// mirror copies the record to all mirrors in parallel under one deadline, so
// a slow or retrying mirror costs the request at most mirrorTimeout.
func (t *Tee) mirror(ctx context.Context, record domain.AuditRecord) {
	if len(t.mirrors) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.mirrorTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, mirror := range t.mirrors {
		wg.Add(1)
		go func(mirror Mirror) {
			defer wg.Done()
			if err := mirror.Append(ctx, record); err != nil {
				t.logger.Warn(
					"audit_mirror_failed",
					"mirror", mirror.Name(),
					"request_id", record.RequestID,
					"error", err,
				)
			}
		}(mirror)
	}
	wg.Wait()
}
