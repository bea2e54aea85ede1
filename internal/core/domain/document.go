package domain

import "strconv"

// SourceDocument is a cleaned corpus document ready to be chunked and indexed.
type SourceDocument struct {
	DocID  string
	Source string
	Text   string
}

// ChunkID builds the stable "<doc_id>_<n>" identifier used for citations.
func ChunkID(docID string, index int) string {
	return docID + "_" + strconv.Itoa(index)
}
