package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != DefaultChunkSize || s.Overlap != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}

	s = NewSplitter(100, 100)
	if s.Overlap != 25 {
		t.Fatalf("expected overlap clamped to chunk/4, got %d", s.Overlap)
	}
}

func TestSplitterEmpty(t *testing.T) {
	if got := NewSplitter(10, 2).Split(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}

func TestSplitterShortTextSingleChunk(t *testing.T) {
	got := NewSplitter(100, 10).Split("  interns get a laptop  ")
	if len(got) != 1 || got[0] != "interns get a laptop" {
		t.Fatalf("unexpected chunks: %q", got)
	}
}

func TestSplitterRespectsSizeAndWordBoundaries(t *testing.T) {
	text := strings.Repeat("policy handbook entry ", 40)
	chunks := NewSplitter(60, 10).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > 60 {
			t.Fatalf("chunk exceeds size: %q", chunk)
		}
		for _, word := range strings.Fields(chunk) {
			switch word {
			case "policy", "handbook", "entry":
			default:
				t.Fatalf("chunk cut a word: %q in %q", word, chunk)
			}
		}
	}
}

func TestSplitterOverlapsConsecutiveChunks(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := NewSplitter(10, 4).Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %q", chunks)
	}
	if chunks[0] != "abcdefghij" || !strings.HasPrefix(chunks[1], "ghij") {
		t.Fatalf("expected 4-rune overlap, got %q", chunks)
	}
	if !strings.HasSuffix(chunks[len(chunks)-1], "z") {
		t.Fatalf("last chunk must reach end of text, got %q", chunks)
	}
}

func TestNormalize(t *testing.T) {
	in := "TITLE  \r\n\r\n\r\n\r\nfirst line   \rsecond line\n\n\n\n\nend\t\n"
	want := "TITLE\n\nfirst line\nsecond line\n\nend"
	if got := Normalize(in); got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
}
