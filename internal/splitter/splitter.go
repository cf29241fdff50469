package splitter

import (
	"strings"

	"github.com/astra-rag/astra-context/pkg/types"
)

// Config controls chunk sizing for all splitter variants.
type Config struct {
	// ChunkSize is the target chunk size ceiling in characters.
	ChunkSize int

	// ChunkOverlap is the character overlap between consecutive windows in
	// the sliding-window fallback.
	ChunkOverlap int
}

// cap returns the hard size bound: no generic-variant chunk may exceed
// ChunkSize * 1.5 characters.
func (c Config) cap() int {
	return c.ChunkSize + c.ChunkSize/2
}

// Variant converts raw text into an ordered sequence of spans. Variants are a
// fixed set (structured, prose, window) selected by detected language, not an
// open-ended plugin registry.
type Variant interface {
	Split(content string) ([]types.Span, error)
}

// For selects the splitter variant for a language. Structured languages get
// declaration-boundary splitting, prose gets section splitting, and anything
// else gets the sliding window.
func For(lang types.Language, cfg Config) Variant {
	switch {
	case lang.Structured():
		return newStructured(lang, cfg)
	case lang.Prose():
		return newProse(cfg)
	default:
		return newWindow(cfg)
	}
}

// Fallback returns the sliding-window variant used when a syntax-aware split
// fails.
func Fallback(cfg Config) Variant {
	return newWindow(cfg)
}

// splitLines splits content into lines and trims trailing blank lines so the
// last span never ends on padding. Returns nil for empty or whitespace-only
// content: such documents produce zero chunks, not an empty chunk.
func splitLines(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

// joinSpan builds a span from a line range. Line indices are 0-based
// inclusive; the emitted span uses 1-based line numbers.
func joinSpan(lines []string, start, end int, symbol string, kind types.SpanKind) types.Span {
	return types.Span{
		Text:      strings.Join(lines[start:end+1], "\n"),
		StartLine: start + 1,
		EndLine:   end + 1,
		Symbol:    symbol,
		Kind:      kind,
	}
}

// preferMerge decides whether to grow the current chunk past the size target
// or cut at the earlier boundary. When a boundary falls before ChunkSize but
// the next would exceed it, the cut that lands closer to ChunkSize wins.
// Cuts always fall on line boundaries.
func preferMerge(currentSize, mergedSize, chunkSize int) bool {
	undershoot := chunkSize - currentSize
	overshoot := mergedSize - chunkSize
	return overshoot < undershoot
}
