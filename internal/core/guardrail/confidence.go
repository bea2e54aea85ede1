package guardrail

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// Sub-score weights. They sum to 1.0.
const (
	WeightCoverage   = 0.30
	WeightSimilarity = 0.30
	WeightLength     = 0.20
	WeightCitation   = 0.20
)

const (
	coverageSaturation = 3.0
	similarityFloor    = 0.3
	similarityBand     = 0.5
	maxLengthRatio     = 0.5
)

var citationMarker = regexp.MustCompile(`\[ID:.*?\]`)

// Breakdown holds the individual sub-scores behind a confidence value.
type Breakdown struct {
	Coverage   float64
	Similarity float64
	Length     float64
	Citation   float64
	Confidence float64
}

type Estimator struct {
	refusals *RefusalMatcher
}

func NewEstimator(refusals *RefusalMatcher) *Estimator {
	if refusals == nil {
		refusals = MustDefaultRefusalMatcher()
	}
	return &Estimator{refusals: refusals}
}

// Estimate returns a grounding confidence in [0,1] rounded to three decimals.
func (e *Estimator) Estimate(chunks []domain.RetrievedChunk, answer string) float64 {
	return e.Explain(chunks, answer).Confidence
}

// Explain is Estimate with the sub-scores exposed. A refused or ungrounded
// answer yields an all-zero breakdown.
func (e *Estimator) Explain(chunks []domain.RetrievedChunk, answer string) Breakdown {
	if len(chunks) == 0 || strings.TrimSpace(answer) == "" {
		return Breakdown{}
	}
	if e.refusals.Matches(answer) {
		return Breakdown{}
	}

	k := float64(len(chunks))
	var b Breakdown

	b.Coverage = math.Min(k/coverageSaturation, 1.0)

	var simSum float64
	contextLen := 0
	for _, chunk := range chunks {
		simSum += chunk.Score()
		contextLen += utf8.RuneCountInString(chunk.Text)
	}
	b.Similarity = clamp01((simSum/k - similarityFloor) / similarityBand)

	ratio := float64(utf8.RuneCountInString(answer)) / float64(max(contextLen, 1))
	if ratio <= maxLengthRatio {
		b.Length = 1.0
	} else {
		b.Length = math.Max(0, 1-(ratio-maxLengthRatio))
	}

	citations := len(citationMarker.FindAllStringIndex(answer, -1))
	b.Citation = math.Min(float64(citations)/k, 1.0)

	score := WeightCoverage*b.Coverage +
		WeightSimilarity*b.Similarity +
		WeightLength*b.Length +
		WeightCitation*b.Citation
	b.Confidence = round3(clamp01(score))
	return b
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
