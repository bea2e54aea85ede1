package llm

import (
	"strings"
	"testing"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

func TestBuildAnswerPromptFramesChunksWithIDs(t *testing.T) {
	prompt := BuildAnswerPrompt("Who approves leave?", []domain.RetrievedChunk{
		{Text: "Your mentor approves leave.", Metadata: domain.ChunkMetadata{ChunkID: "leave_1"}},
		{Text: "Orphan chunk."},
	})

	for _, want := range []string{
		"[ID: leave_1]\nYour mentor approves leave.",
		"[ID: Unknown]\nOrphan chunk.",
		"QUESTION:\nWho approves leave?",
		`say exactly: "` + InsufficientContextAnswer + `"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Index(prompt, "leave_1") > strings.Index(prompt, "Orphan chunk.") {
		t.Fatalf("chunks must keep retrieval order")
	}
}
