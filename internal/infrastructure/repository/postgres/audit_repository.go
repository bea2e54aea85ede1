package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// AuditRepository mirrors audit records into Postgres for ad hoc SQL analysis.
// The JSONL file stays the system of record.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AuditRepository) Name() string {
	return "postgres"
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026031501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS audit_records (
	request_id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	outcome TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION,
	retrieval_ms BIGINT NOT NULL,
	generation_ms BIGINT NOT NULL,
	total_ms BIGINT NOT NULL,
	cost DOUBLE PRECISION NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_records_outcome ON audit_records(outcome);
CREATE INDEX IF NOT EXISTS idx_audit_records_recorded_at ON audit_records(recorded_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Append inserts the record once; a replayed request id is ignored.
func (r *AuditRepository) Append(ctx context.Context, record domain.AuditRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	recordedAt := time.Now().UTC()
	if record.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			return domain.WrapError(domain.ErrInvalidInput, "parse audit timestamp", err)
		}
		recordedAt = parsed.UTC()
	}

	var confidence sql.NullFloat64
	if record.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *record.Confidence, Valid: true}
	}

	const query = `
INSERT INTO audit_records (
	request_id, query, outcome, model, confidence,
	retrieval_ms, generation_ms, total_ms, cost, recorded_at, payload
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)
ON CONFLICT (request_id) DO NOTHING
`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		record.RequestID,
		record.Query,
		string(record.Outcome),
		record.Generation.Model,
		confidence,
		record.LatencyMS.Retrieval,
		record.LatencyMS.Generation,
		record.LatencyMS.Total,
		record.Cost,
		recordedAt,
		string(payload),
	); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// OutcomeCounts returns the number of mirrored records per outcome.
func (r *AuditRepository) OutcomeCounts(ctx context.Context) (map[domain.Outcome]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM audit_records GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		out[domain.Outcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return out, nil
}
