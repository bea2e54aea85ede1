package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kpkavin04/VerifAI/internal/config"
	"github.com/kpkavin04/VerifAI/internal/core/guardrail"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
	"github.com/kpkavin04/VerifAI/internal/core/usecase"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/auditlog"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/chunking"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/extractor/pdf"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/extractor/plaintext"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/llm/ollama"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/llm/openai"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/queue/nats"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/repository/postgres"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/vector/chromem"
	"github.com/kpkavin04/VerifAI/internal/infrastructure/vector/qdrant"
	"github.com/kpkavin04/VerifAI/internal/observability/metrics"
)

// vectorStore is what both vector backends provide: query-time retrieval and
// offline indexing over the same collection.
type vectorStore interface {
	ports.Retriever
	ports.ChunkIndexer
}

type App struct {
	Config config.Config

	QueryUC *usecase.QueryUseCase
	Metrics *metrics.HTTPServerMetrics

	closeFns []func()
}

// New wires the query pipeline: retriever, generator, guardrail and the audit
// log with its optional mirrors.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	executor := resilience.NewExecutorWithLogger(cfg.Resilience, logger)

	embedder, generator, err := newLLM(cfg, executor)
	if err != nil {
		return nil, err
	}
	store, err := newVectorStore(cfg, embedder, executor)
	if err != nil {
		return nil, err
	}

	rules, err := guardrail.LoadRefusalRules(cfg.RefusalRulesPath)
	if err != nil {
		return nil, err
	}
	matcher, err := guardrail.NewRefusalMatcher(rules)
	if err != nil {
		return nil, fmt.Errorf("compile refusal rules: %w", err)
	}
	policy := guardrail.Policy{
		MinConfidence: cfg.GuardrailMinConfidence,
		MinSimilarity: cfg.GuardrailMinSimilarity,
	}

	auditLog, err := app.newAuditLog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app.Metrics = metrics.NewHTTPServerMetrics("api")
	app.QueryUC = usecase.NewQueryUseCase(
		store,
		generator,
		auditLog,
		guardrail.NewEstimator(matcher),
		policy,
		usecase.WithGenerationTimeout(cfg.GenerationTimeout),
		usecase.WithTopKLimits(cfg.RAGDefaultTopK, cfg.RAGMaxTopK),
		usecase.WithQueryObserver(app.Metrics),
		usecase.WithLogger(logger),
	)

	logger.Info("pipeline_ready",
		"retriever", cfg.RetrieverBackend,
		"generator", cfg.GeneratorBackend,
		"audit_log", cfg.AuditLogPath,
		"refusal_rules", len(rules),
		"min_confidence", policy.MinConfidence,
		"min_similarity", policy.MinSimilarity,
	)
	ok = true
	return app, nil
}

// NewIndexer wires only what offline indexing needs: extractors, the splitter
// and the configured vector store.
func NewIndexer(cfg config.Config, logger *slog.Logger) (*usecase.IndexUseCase, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	extractors := []ports.TextExtractor{plaintext.NewExtractor(), pdf.NewExtractor()}
	return usecase.NewIndexUseCase(
		extractors,
		chunking.Normalize,
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		store,
	), nil
}

// NewRetriever opens the configured vector store for query-time retrieval
// alone, without a generator or an audit log.
func NewRetriever(cfg config.Config, logger *slog.Logger) (ports.Retriever, error) {
	return openStore(cfg, logger)
}

func openStore(cfg config.Config, logger *slog.Logger) (vectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutorWithLogger(cfg.Resilience, logger)
	embedder, _, err := newLLM(cfg, executor)
	if err != nil {
		return nil, err
	}
	return newVectorStore(cfg, embedder, executor)
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

func (a *App) newAuditLog(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.AuditLog, error) {
	fileLog, err := auditlog.Open(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	a.onClose(func() { _ = fileLog.Close() })

	var mirrors []auditlog.Mirror
	if cfg.AuditPostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.AuditPostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.onClose(func() { _ = db.Close() })
		repo := postgres.NewAuditRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		mirrors = append(mirrors, repo)
	}
	if cfg.AuditNATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.AuditNATSURL, cfg.AuditNATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutorWithLogger(cfg.Resilience.BestEffort(), logger),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.onClose(publisher.Close)
		mirrors = append(mirrors, publisher)
	}

	if len(mirrors) == 0 {
		return fileLog, nil
	}
	return auditlog.NewTee(fileLog, logger, mirrors...).WithMirrorTimeout(cfg.AuditMirrorTimeout), nil
}

func newLLM(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.Generator, error) {
	switch cfg.GeneratorBackend {
	case config.GeneratorOllama:
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			ResilienceExecutor: executor,
		})
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	case config.GeneratorOpenAI:
		client := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.Options{
			BaseURL:            cfg.OpenAIBaseURL,
			EmbedModel:         cfg.OpenAIEmbedModel,
			ResilienceExecutor: executor,
		})
		return openai.NewEmbedder(client), openai.NewGenerator(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown generator backend %q", cfg.GeneratorBackend)
	}
}

func newVectorStore(cfg config.Config, embedder ports.Embedder, executor *resilience.Executor) (vectorStore, error) {
	switch cfg.RetrieverBackend {
	case config.RetrieverChromem:
		store, err := chromem.Open(cfg.ChromemPath, cfg.ChromemCollection, embedder)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.RetrieverQdrant:
		return qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, embedder, qdrant.Options{
			ResilienceExecutor: executor,
		}), nil
	default:
		return nil, fmt.Errorf("unknown retriever backend %q", cfg.RetrieverBackend)
	}
}
