package domain

type QueryRequest struct {
	RequestID string
	Question  string
	// TopK is nil when the caller did not supply one.
	TopK *int
}

// QueryResponse is the externally visible result. Answered responses carry
// Answer and Confidence; every other outcome nulls both and sets Reason.
type QueryResponse struct {
	Answer     *string     `json:"answer"`
	Reason     ReasonCode  `json:"reason,omitempty"`
	Sources    []SourceRef `json:"sources"`
	ModelUsed  string      `json:"model_used"`
	Confidence *float64    `json:"confidence"`
	Latency    int64       `json:"latency"`

	Outcome   Outcome `json:"-"`
	RequestID string  `json:"-"`
}

func (r *QueryResponse) Answered() bool {
	return r != nil && r.Outcome == OutcomeAnswered
}
