package ports

import (
	"context"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// QueryService is the inbound contract for guarded question answering.
type QueryService interface {
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

// CorpusIndexer is the inbound contract for offline corpus indexing.
type CorpusIndexer interface {
	IndexFile(ctx context.Context, path string) (int, error)
}
