package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
)

// IndexUseCase turns corpus files into indexed chunks. The document id is the
// file stem, so re-indexing a file replaces chunks under the same ids.
type IndexUseCase struct {
	extractors []ports.TextExtractor
	normalize  func(string) string
	chunker    ports.Chunker
	indexer    ports.ChunkIndexer
}

func NewIndexUseCase(
	extractors []ports.TextExtractor,
	normalize func(string) string,
	chunker ports.Chunker,
	indexer ports.ChunkIndexer,
) *IndexUseCase {
	if normalize == nil {
		normalize = strings.TrimSpace
	}
	return &IndexUseCase{
		extractors: extractors,
		normalize:  normalize,
		chunker:    chunker,
		indexer:    indexer,
	}
}

// Supports reports whether any configured extractor handles path.
func (uc *IndexUseCase) Supports(path string) bool {
	return uc.extractorFor(path) != nil
}

func (uc *IndexUseCase) IndexFile(ctx context.Context, path string) (int, error) {
	extractor := uc.extractorFor(path)
	if extractor == nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "index file", fmt.Errorf("unsupported file type: %s", filepath.Ext(path)))
	}

	raw, err := extractor.Extract(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	text := uc.normalize(raw)
	if text == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	name := filepath.Base(path)
	doc := domain.SourceDocument{
		DocID:  strings.TrimSuffix(name, filepath.Ext(name)),
		Source: name,
		Text:   text,
	}
	if err := uc.indexer.IndexChunks(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	return len(chunks), nil
}

func (uc *IndexUseCase) extractorFor(path string) ports.TextExtractor {
	for _, extractor := range uc.extractors {
		if extractor.Supports(path) {
			return extractor
		}
	}
	return nil
}
