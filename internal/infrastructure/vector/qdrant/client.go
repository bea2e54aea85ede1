package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/vector"
)

const DefaultCollection = "intern_policies"

type Client struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Options struct {
	HTTPTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, collection string, embedder ports.Embedder) *Client {
	return NewWithOptions(baseURL, collection, embedder, Options{})
}

func NewWithOptions(baseURL, collection string, embedder ports.Embedder, options Options) *Client {
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// pointID derives a stable point id from the chunk id so re-indexing a
// document overwrites its earlier points.
func (c *Client) pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.collection+"/"+chunkID)).String()
}

func (c *Client) IndexChunks(ctx context.Context, doc domain.SourceDocument, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := c.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks of %s: %w", doc.DocID, err)
	}
	if len(vectors) != len(chunks) || len(vectors[0]) == 0 {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i := range chunks {
		chunkID := domain.ChunkID(doc.DocID, i)
		points = append(points, point{
			ID:     c.pointID(chunkID),
			Vector: vectors[i],
			Payload: map[string]any{
				vector.KeyChunkID: chunkID,
				vector.KeyDocID:   doc.DocID,
				vector.KeySource:  doc.Source,
				vector.KeyText:    chunks[i],
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.call(ctx, "upsert", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
	})
}

func (c *Client) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	queryVector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	err = c.call(ctx, "search", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, url, reqBody, &searchResp, "search")
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedChunk{
			Text:       getStringPayload(r.Payload, vector.KeyText),
			Similarity: vector.FromCosine(r.Score),
			Metadata: domain.ChunkMetadata{
				ChunkID: getStringPayload(r.Payload, vector.KeyChunkID),
				DocID:   getStringPayload(r.Payload, vector.KeyDocID),
				Source:  getStringPayload(r.Payload, vector.KeySource),
			},
		})
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.call(ctx, "ensure_collection", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPut, url, reqBody, nil, "ensure collection")
	})
	// 409 when the collection already exists (depends on version/config).
	if err != nil && !isConflict(err) {
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, "qdrant."+operation, fn, classifyQdrantError)
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// classifyQdrantError treats 409 as success: the collection already exists.
func classifyQdrantError(err error) resilience.ErrorClassification {
	if isConflict(err) {
		return resilience.ErrorClassification{}
	}
	if class, ok := resilience.ClassifyUpstream(err, nil); ok {
		return class
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func isConflict(err error) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
