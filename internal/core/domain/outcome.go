package domain

// Outcome is the closed set of request conclusions. The string values are
// persisted in the audit log and must not change.
type Outcome string

const (
	OutcomeAnswered        Outcome = "ANSWERED"
	OutcomeRefused         Outcome = "REFUSED_NO_STRONG_RETRIEVAL"
	OutcomeGenerationError Outcome = "GENERATION_ERROR"
	OutcomeRetrievalError  Outcome = "RETRIEVAL_ERROR"
)

// Outcomes lists every outcome in a stable order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeAnswered, OutcomeRefused, OutcomeGenerationError, OutcomeRetrievalError}
}

func (o Outcome) Valid() bool {
	for _, known := range Outcomes() {
		if o == known {
			return true
		}
	}
	return false
}

type ReasonCode string

const (
	ReasonNone                  ReasonCode = ""
	ReasonInsufficientGrounding ReasonCode = "INSUFFICIENT_POLICY_GROUNDING"
	ReasonGenerationFailure     ReasonCode = "GENERATION_FAILURE"
	ReasonRetrievalFailure      ReasonCode = "RETRIEVAL_FAILURE"
)
