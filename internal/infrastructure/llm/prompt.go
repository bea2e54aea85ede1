// Package llm holds what every generation backend shares: the grounding
// prompt and the canonical insufficient-context answer.
package llm

import (
	"fmt"
	"strings"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

// InsufficientContextAnswer stands in for blank model output. It matches the
// default refusal rules, so it scores zero confidence.
const InsufficientContextAnswer = "I do not have enough information in the provided context."

// BuildAnswerPrompt renders the strict grounding prompt. Each chunk is framed
// by its "[ID: chunk_id]" marker so the model can cite it verbatim.
func BuildAnswerPrompt(question string, chunks []domain.RetrievedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		id := chunk.Metadata.ChunkID
		if id == "" {
			id = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("[ID: %s]\n%s", id, chunk.Text))
	}

	return fmt.Sprintf(`Instructions:
- Answer the question using ONLY the provided context.
- Do NOT use any prior knowledge.
- Answer ONLY what is necessary to directly answer the question.
- Do not include additional policy information unless it is explicitly required.
- After any sentence that comes from a specific chunk, include a citation like [ID: chunk_id].
- If multiple chunks support the same point, cite all relevant IDs, e.g., [ID: chunk1, chunk2].
- Do NOT fabricate information or make assumptions.
- If the context does not provide the answer, say exactly: "%s"

CONTEXT:
%s

QUESTION:
%s
`, InsufficientContextAnswer, strings.Join(blocks, "\n\n"), question)
}
