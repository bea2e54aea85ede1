package chromem

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/vector"
)

// keywordEmbedder maps text onto three axes by keyword so that similarity is
// predictable in tests.
type keywordEmbedder struct {
	err error
}

func (e keywordEmbedder) vector(text string) []float32 {
	v := []float32{0.01, 0.01, 0.01}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "leave") {
		v[0] = 1
	}
	if strings.Contains(lower, "laptop") {
		v[1] = 1
	}
	if strings.Contains(lower, "badge") {
		v[2] = 1
	}
	return v
}

func (e keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func newStore(t *testing.T, embedder keywordEmbedder) *Store {
	t.Helper()
	store, err := New(chromem.NewDB(), "", embedder)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestIndexAndRetrieve(t *testing.T) {
	store := newStore(t, keywordEmbedder{})
	ctx := context.Background()

	doc := domain.SourceDocument{DocID: "handbook", Source: "handbook.md"}
	chunks := []string{"Annual leave is ten days.", "Laptops are returned on the last day.", "Badges open the main door."}
	if err := store.IndexChunks(ctx, doc, chunks); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	if store.Count() != 3 {
		t.Fatalf("expected 3 chunks, got %d", store.Count())
	}

	got, err := store.Retrieve(ctx, "how much leave do I get", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	top := got[0]
	if top.Metadata.ChunkID != "handbook_0" || top.Metadata.DocID != "handbook" || top.Metadata.Source != "handbook.md" {
		t.Fatalf("unexpected top chunk %+v", top)
	}
	if top.Similarity < 0.9 || top.Similarity > 1 {
		t.Fatalf("expected near-identical similarity, got %v", top.Similarity)
	}
	if got[1].Similarity > top.Similarity {
		t.Fatalf("results not ordered: %+v", got)
	}
}

func TestRetrieveClampsTopKToCollectionSize(t *testing.T) {
	store := newStore(t, keywordEmbedder{})
	ctx := context.Background()
	if err := store.IndexChunks(ctx, domain.SourceDocument{DocID: "d", Source: "d.txt"}, []string{"leave"}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	got, err := store.Retrieve(ctx, "leave", 10)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
}

func TestRetrieveEmptyCollection(t *testing.T) {
	got, err := newStore(t, keywordEmbedder{}).Retrieve(context.Background(), "leave", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestReindexOverwritesChunks(t *testing.T) {
	store := newStore(t, keywordEmbedder{})
	ctx := context.Background()
	doc := domain.SourceDocument{DocID: "d", Source: "d.txt"}

	for range 2 {
		if err := store.IndexChunks(ctx, doc, []string{"leave", "laptop"}); err != nil {
			t.Fatalf("IndexChunks() error = %v", err)
		}
	}
	if store.Count() != 2 {
		t.Fatalf("expected re-index to overwrite, got %d chunks", store.Count())
	}
}

func TestEmbedderFailureSurfaces(t *testing.T) {
	boom := errors.New("embedder down")
	store := newStore(t, keywordEmbedder{err: boom})

	err := store.IndexChunks(context.Background(), domain.SourceDocument{DocID: "d"}, []string{"leave"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected embedder error, got %v", err)
	}
}

func TestSimilarityUsesDistanceScale(t *testing.T) {
	store := newStore(t, keywordEmbedder{})
	ctx := context.Background()
	if err := store.IndexChunks(ctx, domain.SourceDocument{DocID: "d", Source: "d.txt"}, []string{"badge rules"}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	got, err := store.Retrieve(ctx, "leave", 1)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	// Near-orthogonal vectors land just above the orthogonal floor.
	if got[0].Similarity > vector.FromCosine(0.1) {
		t.Fatalf("expected weak similarity, got %v", got[0].Similarity)
	}
}
