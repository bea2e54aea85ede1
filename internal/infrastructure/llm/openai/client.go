package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/llm"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
)

const (
	DefaultModel      = "gpt-4o-mini"
	DefaultEmbedModel = "text-embedding-3-small"
)

// Client talks to any OpenAI-compatible endpoint (OpenAI, LocalAI, vLLM).
type Client struct {
	api        *goopenai.Client
	model      string
	embedModel string
	executor   *resilience.Executor
}

type Options struct {
	BaseURL            string
	EmbedModel         string
	HTTPTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(apiKey, model string, options Options) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(options.BaseURL, "/")
	}
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	if model == "" {
		model = DefaultModel
	}
	embedModel := options.EmbedModel
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}
	return &Client{
		api:        goopenai.NewClientWithConfig(cfg),
		model:      model,
		embedModel: embedModel,
		executor:   options.ResilienceExecutor,
	}
}

// Generator answers from retrieved chunks with a single chat completion. Like
// every generator it reports failures in the result instead of an error.
type Generator struct {
	client *Client
	now    func() time.Time
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client, now: time.Now}
}

func (g *Generator) Model() string {
	return g.client.model
}

func (g *Generator) Generate(ctx context.Context, question string, chunks []domain.RetrievedChunk) domain.GenerationResult {
	result := domain.GenerationResult{
		Sources:   domain.SourcesFromChunks(chunks),
		ModelUsed: g.client.model,
	}
	if len(chunks) == 0 {
		result.FailureReason = "no retrieved context"
		return result
	}

	request := goopenai.ChatCompletionRequest{
		Model:       g.client.model,
		Temperature: 0,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: llm.BuildAnswerPrompt(question, chunks)},
		},
	}

	start := g.now()
	resp, err := resilience.Do(ctx, g.client.executor, "openai.chat", func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
		return g.client.api.CreateChatCompletion(ctx, request)
	}, classifyOpenAIError)
	result.Latency = g.now().Sub(start)
	if err != nil {
		result.FailureReason = "LLM error: " + err.Error()
		return result
	}
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}

	answer := ""
	if len(resp.Choices) > 0 {
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if answer == "" {
		answer = llm.InsufficientContextAnswer
	}
	result.Answer = answer
	return result
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
	request := goopenai.EmbeddingRequestStrings{
		Input: texts,
		Model: goopenai.EmbeddingModel(e.client.embedModel),
	}
	resp, err := resilience.Do(ctx, e.client.executor, "openai.embed", func(ctx context.Context) (goopenai.EmbeddingResponse, error) {
		return e.client.api.CreateEmbeddings(ctx, request)
	}, classifyOpenAIError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", err, classifyOpenAIError)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("openai embed returned out of range index %d", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
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

// classifyOpenAIError reads status codes from go-openai's error types and
// otherwise follows the shared upstream rules.
func classifyOpenAIError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyUpstream(err, httpStatus); ok {
		return class
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func httpStatus(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
