package ports

import (
	"context"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// Retriever returns ranked chunks for a query. Any underlying failure is
// returned as an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error)
}

// Generator answers a query from retrieved chunks. It never returns an error;
// failures surface as an absent answer with a failure reason. Model names the
// configured model so callers can report it when Generate never returns.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []domain.RetrievedChunk) domain.GenerationResult
	Model() string
}

// AuditLog appends one durable record per completed request.
type AuditLog interface {
	Append(ctx context.Context, record domain.AuditRecord) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// QueryObserver receives the audit record of every completed request.
type QueryObserver interface {
	ObserveQuery(record domain.AuditRecord)
}
