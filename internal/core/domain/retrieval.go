package domain

import "math"

type ChunkMetadata struct {
	ChunkID string `json:"chunk_id"`
	DocID   string `json:"doc_id"`
	Source  string `json:"source"`
}

// RetrievedChunk is one ranked hit returned by a Retriever for a single request.
type RetrievedChunk struct {
	Text       string        `json:"text"`
	Similarity float64       `json:"similarity"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// SourceRef is the citation binding exposed to callers for a consulted chunk.
type SourceRef struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

func SourcesFromChunks(chunks []RetrievedChunk) []SourceRef {
	out := make([]SourceRef, 0, len(chunks))
	for _, chunk := range chunks {
		id := chunk.Metadata.ChunkID
		if id == "" {
			id = "Unknown"
		}
		out = append(out, SourceRef{
			ID:     id,
			Source: chunk.Metadata.Source,
			Score:  chunk.Score(),
		})
	}
	return out
}

// Score is Similarity with NaN and infinities read as 0, so a misbehaving
// retriever cannot poison confidence or the JSON audit record.
func (c RetrievedChunk) Score() float64 {
	if math.IsNaN(c.Similarity) || math.IsInf(c.Similarity, 0) {
		return 0
	}
	return c.Similarity
}

func MaxSimilarity(chunks []RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	best := chunks[0].Score()
	for _, chunk := range chunks[1:] {
		if score := chunk.Score(); score > best {
			best = score
		}
	}
	return best
}
