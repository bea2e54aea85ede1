package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/vector"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (fixedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func TestIndexChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var firstIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			var body struct {
				Points []struct {
					ID      string         `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			ids := make([]string, 0, len(body.Points))
			for _, p := range body.Points {
				ids = append(ids, p.ID)
			}
			if firstIDs == nil {
				firstIDs = ids
			} else if strings.Join(ids, ",") != strings.Join(firstIDs, ",") {
				t.Errorf("point ids changed between runs: %v vs %v", firstIDs, ids)
			}
			if body.Points[1].Payload[vector.KeyChunkID] != "handbook_1" {
				t.Errorf("unexpected payload %v", body.Points[1].Payload)
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs", fixedEmbedder{})
	doc := domain.SourceDocument{DocID: "handbook", Source: "handbook.md"}

	for i := 0; i < 2; i++ {
		if err := client.IndexChunks(context.Background(), doc, []string{"a", "b"}); err != nil {
			t.Fatalf("IndexChunks() #%d error = %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestEnsureCollectionConflictIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/docs" {
			http.Error(w, "exists", http.StatusConflict)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	err := New(server.URL, "docs", fixedEmbedder{}).IndexChunks(context.Background(), domain.SourceDocument{DocID: "d"}, []string{"a"})
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	err := New(server.URL, "docs", fixedEmbedder{}).IndexChunks(context.Background(), domain.SourceDocument{DocID: "d"}, []string{"a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestRetrieveMapsPayloadAndScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/docs/points/search" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["limit"] != float64(2) {
			t.Errorf("unexpected limit %v", body["limit"])
		}
		_, _ = w.Write([]byte(`{"result":[{"score":1.0,"payload":{"chunk_id":"leave_0","doc_id":"leave","source":"leave.txt","text":"Ten days."}}]}`))
	}))
	defer server.Close()

	got, err := New(server.URL, "docs", fixedEmbedder{}).Retrieve(context.Background(), "leave?", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	want := domain.RetrievedChunk{
		Text:       "Ten days.",
		Similarity: 1,
		Metadata:   domain.ChunkMetadata{ChunkID: "leave_0", DocID: "leave", Source: "leave.txt"},
	}
	if got[0] != want {
		t.Fatalf("unexpected chunk %+v", got[0])
	}
}

func TestRetrieveRetriesUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})
	client := NewWithOptions(server.URL, "docs", fixedEmbedder{}, Options{ResilienceExecutor: exec})
	got, err := client.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 0 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("unexpected result %v after %d calls", got, calls)
	}
}
