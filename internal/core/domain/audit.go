package domain

// AuditRecord is one append-only audit log line. Timestamp is stamped by the
// audit log at write time.
type AuditRecord struct {
	RequestID  string          `json:"request_id"`
	Query      string          `json:"query"`
	Retrieval  AuditRetrieval  `json:"retrieval"`
	Generation AuditGeneration `json:"generation"`
	Confidence *float64        `json:"confidence"`
	LatencyMS  AuditLatency    `json:"latency_ms"`
	Cost       float64         `json:"cost"`
	Outcome    Outcome         `json:"outcome"`
	Timestamp  string          `json:"timestamp"`
}

type AuditRetrieval struct {
	TopK          int             `json:"top_k"`
	RetrievedDocs []AuditChunkHit `json:"retrieved_docs"`
	Error         *string         `json:"error"`
}

type AuditChunkHit struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
}

type AuditGeneration struct {
	Model         string  `json:"model"`
	Answer        *string `json:"answer"`
	RefusalReason *string `json:"refusal_reason"`
	FailureReason *string `json:"failure_reason"`
}

type AuditLatency struct {
	Retrieval  int64 `json:"retrieval"`
	Generation int64 `json:"generation"`
	Total      int64 `json:"total"`
}
