package guardrail

import "github.com/kpkavin04/VerifAI/internal/core/domain"

// ClassifierInput is the pipeline state at the end of a request.
type ClassifierInput struct {
	RetrievalErr error
	ChunkCount   int
	Generation   domain.GenerationResult
	Decision     Decision
}

type Classification struct {
	Outcome    domain.Outcome
	ReasonCode domain.ReasonCode
	Detail     string
}

// Classify maps pipeline state to exactly one outcome. An absent answer is
// classified before the policy decision is looked at, so backend failures stay
// distinguishable from low-grounding refusals.
func Classify(in ClassifierInput) Classification {
	switch {
	case in.RetrievalErr != nil:
		return Classification{
			Outcome:    domain.OutcomeRetrievalError,
			ReasonCode: domain.ReasonRetrievalFailure,
			Detail:     in.RetrievalErr.Error(),
		}
	case in.ChunkCount == 0:
		return Classification{
			Outcome:    domain.OutcomeRefused,
			ReasonCode: domain.ReasonInsufficientGrounding,
			Detail:     string(RefusalNoGrounding),
		}
	case in.Generation.Absent():
		return Classification{
			Outcome:    domain.OutcomeGenerationError,
			ReasonCode: domain.ReasonGenerationFailure,
			Detail:     in.Generation.Failure(),
		}
	case in.Decision.Refuse:
		return Classification{
			Outcome:    domain.OutcomeRefused,
			ReasonCode: domain.ReasonInsufficientGrounding,
			Detail:     string(in.Decision.Reason),
		}
	default:
		return Classification{Outcome: domain.OutcomeAnswered}
	}
}
