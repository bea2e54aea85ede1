package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/llm"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
)

const (
	DefaultGenModel   = "mistral:7b-instruct"
	DefaultEmbedModel = "nomic-embed-text"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

func NewWithOptions(baseURL, genModel, embedModel string, options Options) *Client {
	if genModel == "" {
		genModel = DefaultGenModel
	}
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.call(ctx, "embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator answers from retrieved chunks via /api/generate. It never returns
// an error: failures come back as a result without an answer.
type Generator struct {
	client *Client
	now    func() time.Time
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client, now: time.Now}
}

func (g *Generator) Model() string {
	return g.client.genModel
}

func (g *Generator) Generate(ctx context.Context, question string, chunks []domain.RetrievedChunk) domain.GenerationResult {
	result := domain.GenerationResult{
		Sources:   domain.SourcesFromChunks(chunks),
		ModelUsed: g.client.genModel,
	}
	if len(chunks) == 0 {
		result.FailureReason = "no retrieved context"
		return result
	}

	start := g.now()
	answer, err := g.client.generateText(ctx, llm.BuildAnswerPrompt(question, chunks))
	result.Latency = g.now().Sub(start)
	switch {
	case errors.Is(err, errEmptyResponse):
		// Still blank after retries: the model has nothing grounded to say.
		answer = llm.InsufficientContextAnswer
	case err != nil:
		result.FailureReason = "LLM error: " + err.Error()
		return result
	}
	result.Answer = answer
	return result
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	var answer string
	err := c.call(ctx, "generate", func(ctx context.Context) error {
		var response struct {
			Response   string `json:"response"`
			DoneReason string `json:"done_reason"`
		}
		if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
			return err
		}
		answer = strings.TrimSpace(response.Response)
		if answer == "" {
			return fmt.Errorf("generate (done_reason %q): %w", response.DoneReason, errEmptyResponse)
		}
		return nil
	})
	return answer, err
}

// call runs fn through the resilience executor when one is configured.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, serviceName+"."+operation, fn, classifyOllamaError)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		return resilience.WrapTemporary(serviceName+" "+operation, err, classifyOllamaError)
	}
	return nil
}
