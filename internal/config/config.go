package config

import (
	"os"
	"strconv"
	"time"

	"github.com/kpkavin04/VerifAI/internal/infrastructure/resilience"
)

const (
	RetrieverChromem = "chromem"
	RetrieverQdrant  = "qdrant"

	GeneratorOllama = "ollama"
	GeneratorOpenAI = "openai"
)

type Config struct {
	APIPort  string
	LogLevel string

	AuditLogPath       string
	AuditPostgresDSN   string
	AuditNATSURL       string
	AuditNATSSubject   string
	AuditMirrorTimeout time.Duration

	RetrieverBackend  string
	ChromemPath       string
	ChromemCollection string
	QdrantURL         string
	QdrantCollection  string

	GeneratorBackend  string
	OllamaURL         string
	OllamaGenModel    string
	OllamaEmbedModel  string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIEmbedModel  string
	GenerationTimeout time.Duration

	RAGDefaultTopK int
	RAGMaxTopK     int

	GuardrailMinConfidence float64
	GuardrailMinSimilarity float64
	RefusalRulesPath       string

	APIRateLimitRPS            float64
	APIRateLimitBurst          int
	APIMaxConnections          int
	APIBackpressureMaxInFlight int
	APIBackpressureWait        time.Duration

	CorpusPath   string
	ChunkSize    int
	ChunkOverlap int

	Resilience resilience.Config
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8000"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		AuditLogPath:       mustEnv("AUDIT_LOG_PATH", "logs/requests.jsonl"),
		AuditPostgresDSN:   mustEnv("AUDIT_POSTGRES_DSN", ""),
		AuditNATSURL:       mustEnv("AUDIT_NATS_URL", ""),
		AuditNATSSubject:   mustEnv("AUDIT_NATS_SUBJECT", "verifai.audit"),
		AuditMirrorTimeout: time.Duration(mustEnvInt("AUDIT_MIRROR_TIMEOUT_MS", 500)) * time.Millisecond,

		RetrieverBackend:  mustEnv("RETRIEVER_BACKEND", RetrieverChromem),
		ChromemPath:       mustEnv("CHROMEM_PATH", "chroma_db"),
		ChromemCollection: mustEnv("CHROMEM_COLLECTION", "intern_policies"),
		QdrantURL:         mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:  mustEnv("QDRANT_COLLECTION", "intern_policies"),

		GeneratorBackend:  mustEnv("GENERATOR_BACKEND", GeneratorOllama),
		OllamaURL:         mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:    mustEnv("OLLAMA_GEN_MODEL", "mistral:7b-instruct"),
		OllamaEmbedModel:  mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OpenAIAPIKey:      mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       mustEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel:  mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		GenerationTimeout: time.Duration(mustEnvInt("GENERATION_TIMEOUT_SECONDS", 60)) * time.Second,

		RAGDefaultTopK: mustEnvInt("RAG_DEFAULT_TOP_K", 3),
		RAGMaxTopK:     mustEnvInt("RAG_MAX_TOP_K", 20),

		GuardrailMinConfidence: mustEnvFloat("GUARDRAIL_MIN_CONFIDENCE", 0.4),
		GuardrailMinSimilarity: mustEnvFloat("GUARDRAIL_MIN_SIMILARITY", 0.4),
		RefusalRulesPath:       mustEnv("REFUSAL_RULES_PATH", ""),

		APIRateLimitRPS:            mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:          mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxConnections:          mustEnvInt("API_MAX_CONNECTIONS", 256),
		APIBackpressureMaxInFlight: mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 64),
		APIBackpressureWait:        time.Duration(mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250)) * time.Millisecond,

		CorpusPath:   mustEnv("CORPUS_PATH", "data/raw"),
		ChunkSize:    mustEnvInt("CHUNK_SIZE", 900),
		ChunkOverlap: mustEnvInt("CHUNK_OVERLAP", 150),

		Resilience: resilience.Config{
			RetryMaxAttempts:        mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
			RetryInitialBackoff:     time.Duration(mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 100)) * time.Millisecond,
			RetryMaxBackoff:         time.Duration(mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", 400)) * time.Millisecond,
			RetryMultiplier:         mustEnvFloat("RESILIENCE_RETRY_MULTIPLIER", 2),
			BreakerEnabled:          mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
			BreakerMinRequests:      uint32(mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10)),
			BreakerFailureRatio:     mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
			BreakerOpenTimeout:      time.Duration(mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", 30000)) * time.Millisecond,
			BreakerHalfOpenMaxCalls: uint32(mustEnvInt("RESILIENCE_BREAKER_HALF_OPEN_MAX_CALLS", 2)),
		},
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
