package guardrail

import (
	"fmt"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

const (
	DefaultMinConfidence = 0.4
	DefaultMinSimilarity = 0.4
)

type RefusalReason string

const (
	RefusalNone          RefusalReason = ""
	RefusalNoGrounding   RefusalReason = "no_grounding"
	RefusalLowConfidence RefusalReason = "low_confidence"
	RefusalWeakRetrieval RefusalReason = "weak_retrieval"
)

// Policy holds the independently tunable refusal thresholds.
type Policy struct {
	MinConfidence float64
	MinSimilarity float64
}

func DefaultPolicy() Policy {
	return Policy{
		MinConfidence: DefaultMinConfidence,
		MinSimilarity: DefaultMinSimilarity,
	}
}

type Decision struct {
	Refuse bool
	Reason RefusalReason
	Detail string
}

// Decide applies the rules in order; the first match wins.
func (p Policy) Decide(confidence float64, chunks []domain.RetrievedChunk) Decision {
	if len(chunks) == 0 {
		return Decision{Refuse: true, Reason: RefusalNoGrounding, Detail: "no chunks retrieved"}
	}
	// Written negated so a NaN confidence refuses instead of slipping through.
	if !(confidence >= p.MinConfidence) {
		return Decision{
			Refuse: true,
			Reason: RefusalLowConfidence,
			Detail: fmt.Sprintf("confidence %.3f below %.3f", confidence, p.MinConfidence),
		}
	}
	// Coverage, length and citation sub-scores can lift confidence even when no
	// chunk is actually on topic.
	if best := domain.MaxSimilarity(chunks); best < p.MinSimilarity {
		return Decision{
			Refuse: true,
			Reason: RefusalWeakRetrieval,
			Detail: fmt.Sprintf("max similarity %.3f below %.3f", best, p.MinSimilarity),
		}
	}
	return Decision{}
}

func (p Policy) ShouldRefuse(confidence float64, chunks []domain.RetrievedChunk) bool {
	return p.Decide(confidence, chunks).Refuse
}
