package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/guardrail"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
)

const (
	DefaultTopK              = 3
	DefaultMaxTopK           = 20
	DefaultGenerationTimeout = 60 * time.Second
)

type QueryUseCase struct {
	retriever ports.Retriever
	generator ports.Generator
	auditLog  ports.AuditLog
	estimator *guardrail.Estimator
	policy    guardrail.Policy

	observers         []ports.QueryObserver
	now               func() time.Time
	generationTimeout time.Duration
	defaultTopK       int
	maxTopK           int
	logger            *slog.Logger
}

type QueryOption func(*QueryUseCase)

func WithClock(now func() time.Time) QueryOption {
	return func(uc *QueryUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithGenerationTimeout bounds how long the use case waits for the generator.
// A non-positive value keeps the default.
func WithGenerationTimeout(timeout time.Duration) QueryOption {
	return func(uc *QueryUseCase) {
		if timeout > 0 {
			uc.generationTimeout = timeout
		}
	}
}

func WithTopKLimits(defaultTopK, maxTopK int) QueryOption {
	return func(uc *QueryUseCase) {
		if defaultTopK > 0 {
			uc.defaultTopK = defaultTopK
		}
		if maxTopK > 0 {
			uc.maxTopK = maxTopK
		}
	}
}

func WithQueryObserver(observer ports.QueryObserver) QueryOption {
	return func(uc *QueryUseCase) {
		if observer != nil {
			uc.observers = append(uc.observers, observer)
		}
	}
}

func WithLogger(logger *slog.Logger) QueryOption {
	return func(uc *QueryUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func NewQueryUseCase(
	retriever ports.Retriever,
	generator ports.Generator,
	auditLog ports.AuditLog,
	estimator *guardrail.Estimator,
	policy guardrail.Policy,
	opts ...QueryOption,
) *QueryUseCase {
	if estimator == nil {
		estimator = guardrail.NewEstimator(nil)
	}
	uc := &QueryUseCase{
		retriever:         retriever,
		generator:         generator,
		auditLog:          auditLog,
		estimator:         estimator,
		policy:            policy,
		now:               time.Now,
		generationTimeout: DefaultGenerationTimeout,
		defaultTopK:       DefaultTopK,
		maxTopK:           DefaultMaxTopK,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.defaultTopK > uc.maxTopK {
		uc.defaultTopK = uc.maxTopK
	}
	return uc
}

// Answer runs one guarded request: retrieve, generate, score, decide, audit.
// Exactly one audit record is appended for every request that passes
// validation, and no response is returned unless that append succeeded.
func (uc *QueryUseCase) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("question must not be empty"))
	}
	topK, err := uc.resolveTopK(req.TopK)
	if err != nil {
		return nil, err
	}
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	record := domain.AuditRecord{
		RequestID: requestID,
		Query:     req.Question,
		Retrieval: domain.AuditRetrieval{
			TopK:          topK,
			RetrievedDocs: []domain.AuditChunkHit{},
		},
		Cost: 0,
	}

	retrievalStart := uc.now()
	chunks, retrievalErr := uc.retriever.Retrieve(ctx, req.Question, topK)
	retrievalMS := elapsedMS(retrievalStart, uc.now())

	if retrievalErr != nil {
		classification := guardrail.Classify(guardrail.ClassifierInput{RetrievalErr: retrievalErr})
		detail := classification.Detail
		record.Retrieval.Error = &detail
		record.Outcome = classification.Outcome
		record.LatencyMS = domain.AuditLatency{Retrieval: retrievalMS, Total: retrievalMS}
		if err := uc.appendAudit(ctx, record); err != nil {
			return nil, err
		}
		uc.logCompleted(record, classification)
		return nil, domain.WrapError(domain.ErrRetrieval, "retrieve chunks", retrievalErr)
	}
	record.Retrieval.RetrievedDocs = auditHits(chunks)

	generationStart := uc.now()
	generation := uc.generate(ctx, req.Question, chunks)
	generationMS := elapsedMS(generationStart, uc.now())
	totalMS := retrievalMS + generationMS

	confidence := uc.estimator.Estimate(chunks, generation.Answer)
	decision := uc.policy.Decide(confidence, chunks)
	classification := guardrail.Classify(guardrail.ClassifierInput{
		ChunkCount: len(chunks),
		Generation: generation,
		Decision:   decision,
	})

	modelUsed := generation.ModelUsed
	sources := generation.Sources
	if sources == nil {
		sources = domain.SourcesFromChunks(chunks)
	}

	record.Generation = domain.AuditGeneration{Model: modelUsed}
	record.Confidence = &confidence
	record.LatencyMS = domain.AuditLatency{
		Retrieval:  retrievalMS,
		Generation: generationMS,
		Total:      totalMS,
	}
	record.Outcome = classification.Outcome

	response := &domain.QueryResponse{
		Sources:   sources,
		ModelUsed: modelUsed,
		Latency:   totalMS,
		Outcome:   classification.Outcome,
		RequestID: requestID,
	}

	switch classification.Outcome {
	case domain.OutcomeAnswered:
		answer := generation.Answer
		record.Generation.Answer = &answer
		response.Answer = &answer
		response.Confidence = &confidence
	case domain.OutcomeGenerationError:
		failure := classification.Detail
		record.Generation.FailureReason = &failure
		response.Reason = classification.ReasonCode
	default:
		reason := string(classification.ReasonCode)
		record.Generation.RefusalReason = &reason
		response.Reason = classification.ReasonCode
	}

	if err := uc.appendAudit(ctx, record); err != nil {
		return nil, err
	}
	uc.logCompleted(record, classification)
	return response, nil
}

func (uc *QueryUseCase) resolveTopK(topK *int) (int, error) {
	if topK == nil {
		return uc.defaultTopK, nil
	}
	if *topK < 1 || *topK > uc.maxTopK {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"validate query",
			fmt.Errorf("top_k must be between 1 and %d, got %d", uc.maxTopK, *topK),
		)
	}
	return *topK, nil
}

// generate calls the generator in its own goroutine so the wait stays bounded
// even when the generator ignores ctx cancellation.
func (uc *QueryUseCase) generate(ctx context.Context, query string, chunks []domain.RetrievedChunk) domain.GenerationResult {
	genCtx, cancel := context.WithTimeout(ctx, uc.generationTimeout)
	defer cancel()

	done := make(chan domain.GenerationResult, 1)
	go func() {
		done <- uc.generator.Generate(genCtx, query, chunks)
	}()

	select {
	case result := <-done:
		return result
	case <-genCtx.Done():
		reason := "generation timed out"
		if !errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			reason = "generation cancelled"
		}
		return domain.GenerationResult{
			Sources:       domain.SourcesFromChunks(chunks),
			ModelUsed:     uc.generator.Model(),
			FailureReason: fmt.Sprintf("%s: %v", reason, genCtx.Err()),
		}
	}
}

func (uc *QueryUseCase) appendAudit(ctx context.Context, record domain.AuditRecord) error {
	// The record must land even if the caller went away mid-request.
	if err := uc.auditLog.Append(context.WithoutCancel(ctx), record); err != nil {
		uc.logger.Error("audit_append_failed", "request_id", record.RequestID, "outcome", record.Outcome, "error", err)
		return domain.WrapError(domain.ErrAuditUnavailable, "append audit record", err)
	}
	for _, observer := range uc.observers {
		observer.ObserveQuery(record)
	}
	return nil
}

func (uc *QueryUseCase) logCompleted(record domain.AuditRecord, classification guardrail.Classification) {
	attrs := []any{
		"request_id", record.RequestID,
		"outcome", record.Outcome,
		"reason", classification.ReasonCode,
		"top_k", record.Retrieval.TopK,
		"retrieved", len(record.Retrieval.RetrievedDocs),
		"retrieval_ms", record.LatencyMS.Retrieval,
		"generation_ms", record.LatencyMS.Generation,
		"total_ms", record.LatencyMS.Total,
	}
	if record.Confidence != nil {
		attrs = append(attrs, "confidence", *record.Confidence)
	}
	if classification.Outcome != domain.OutcomeAnswered && classification.Detail != "" {
		attrs = append(attrs, "detail", classification.Detail)
	}
	uc.logger.Info("rag_query_completed", attrs...)
}

func auditHits(chunks []domain.RetrievedChunk) []domain.AuditChunkHit {
	hits := make([]domain.AuditChunkHit, 0, len(chunks))
	for _, chunk := range chunks {
		hits = append(hits, domain.AuditChunkHit{
			ChunkID: chunk.Metadata.ChunkID,
			DocID:   chunk.Metadata.DocID,
			Score:   math.Round(chunk.Score()*1000) / 1000,
		})
	}
	return hits
}

func elapsedMS(start, end time.Time) int64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}
