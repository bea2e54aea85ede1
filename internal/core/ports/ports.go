package ports

import (
	"context"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// TextExtractor extracts plain text from a corpus file.
type TextExtractor interface {
	Supports(path string) bool
	Extract(ctx context.Context, path string) (string, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// ChunkIndexer stores chunks of one document in the retrieval index.
type ChunkIndexer interface {
	IndexChunks(ctx context.Context, doc domain.SourceDocument, chunks []string) error
}
