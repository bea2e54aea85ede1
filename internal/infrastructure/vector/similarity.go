package vector

import "math"

// FromCosine maps a cosine similarity between unit vectors onto the
// 1/(1+distance) scale used by the guardrail thresholds, where distance is the
// squared Euclidean distance between the same vectors (2-2cos).
func FromCosine(cos float64) float64 {
	if math.IsNaN(cos) {
		return 0
	}
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return 1 / (1 + (2 - 2*cos))
}

// Metadata keys stored next to every indexed chunk.
const (
	KeyChunkID = "chunk_id"
	KeyDocID   = "doc_id"
	KeySource  = "source"
	KeyText    = "text"
)
