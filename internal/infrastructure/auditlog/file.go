package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

const (
	DefaultPath     = "logs/requests.jsonl"
	TimestampLayout = "2006-01-02T15:04:05.000-07:00"
)

// FileLog is an append-only JSON Lines audit log. Appends are serialized in
// process by a mutex and across processes by an advisory lock on a sidecar
// file, and each record is fsynced before Append returns.
type FileLog struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	file *os.File
	lock *flock.Flock
}

type Option func(*FileLog)

func WithClock(now func() time.Time) Option {
	return func(l *FileLog) {
		if now != nil {
			l.now = now
		}
	}
}

func Open(path string, opts ...Option) (*FileLog, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	l := &FileLog{
		path: path,
		now:  time.Now,
		file: file,
		lock: flock.New(path + ".lock"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func (l *FileLog) Path() string {
	return l.path
}

// Append writes the record as one line, stamping it with the current UTC time
// unless an upstream writer already did.
func (l *FileLog) Append(ctx context.Context, record domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.Timestamp == "" {
		record.Timestamp = Timestamp(l.now())
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("audit log %s is closed", l.path)
	}
	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("lock audit log: %w", err)
	}
	defer l.lock.Unlock()

	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if unlockErr := l.lock.Close(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}
