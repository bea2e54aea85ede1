package chromem

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/vector"
)

const (
	DefaultPath       = "chroma_db"
	DefaultCollection = "intern_policies"
)

// Store is an embedded, file-persisted vector index. It serves both as the
// Retriever for queries and the ChunkIndexer for the offline indexer.
type Store struct {
	embedder   ports.Embedder
	collection *chromem.Collection
}

// Open loads (or creates) the persistent database at path.
func Open(path, collection string, embedder ports.Embedder) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db %s: %w", path, err)
	}
	return New(db, collection, embedder)
}

func New(db *chromem.DB, collection string, embedder ports.Embedder) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	store := &Store{embedder: embedder}
	c, err := db.GetOrCreateCollection(collection, nil, store.embedding())
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}
	store.collection = c
	return store, nil
}

func (s *Store) embedding() chromem.EmbeddingFunc {
	return chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	})
}

func (s *Store) Count() int {
	return s.collection.Count()
}

// IndexChunks embeds chunks in one batch and upserts them under their stable
// ids, so re-indexing a document overwrites its previous chunks.
func (s *Store) IndexChunks(ctx context.Context, doc domain.SourceDocument, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks of %s: %w", doc.DocID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, text := range chunks {
		id := domain.ChunkID(doc.DocID, i)
		docs[i] = chromem.Document{
			ID:      id,
			Content: text,
			Metadata: map[string]string{
				vector.KeyChunkID: id,
				vector.KeyDocID:   doc.DocID,
				vector.KeySource:  doc.Source,
			},
			Embedding: vectors[i],
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add chunks of %s: %w", doc.DocID, err)
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	// chromem rejects requests for more results than the collection holds.
	n := min(topK, s.collection.Count())
	if n == 0 {
		return []domain.RetrievedChunk{}, nil
	}

	results, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(results))
	for _, r := range results {
		chunkID := r.Metadata[vector.KeyChunkID]
		if chunkID == "" {
			chunkID = r.ID
		}
		out = append(out, domain.RetrievedChunk{
			Text:       r.Content,
			Similarity: vector.FromCosine(float64(r.Similarity)),
			Metadata: domain.ChunkMetadata{
				ChunkID: chunkID,
				DocID:   r.Metadata[vector.KeyDocID],
				Source:  r.Metadata[vector.KeySource],
			},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}
