package chunking

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	DefaultChunkSize = 900
	DefaultOverlap   = 150
)

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split cuts text into overlapping windows of at most ChunkSize runes. Windows
// end after whitespace and overlaps begin at a word when the text allows it.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = softBoundary(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := wordStart(runes, end-s.Overlap, end)
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func softBoundary(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// wordStart moves from forward to the first rune that begins a word, staying
// below limit.
func wordStart(runes []rune, from, limit int) int {
	for i := from; i < limit; i++ {
		if i == 0 || unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return from
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// Normalize unifies line endings, strips trailing spaces and collapses runs of
// blank lines to a single paragraph break.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	text = strings.Join(lines, "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
