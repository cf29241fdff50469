package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// SpanKind records which splitter variant produced a span.
type SpanKind string

const (
	SpanDeclaration SpanKind = "declaration"
	SpanSection     SpanKind = "section"
	SpanWindow      SpanKind = "window"
)

// Span is a contiguous slice of a document emitted by a splitter, before
// provenance metadata is attached. Line numbers are 1-based and inclusive.
type Span struct {
	Text      string
	StartLine int
	EndLine   int

	// Symbol is the declaration or section name the span begins with, when
	// the splitter could identify one.
	Symbol string

	Kind SpanKind
}

// Chunk is a retrievable span of a Document with full provenance. Chunks of
// one document are non-overlapping, ordered by position, and cover the
// document's non-blank lines when a structured split succeeds.
type Chunk struct {
	// ID is a deterministic hash of (path, start line, end line, text).
	// Identical content re-indexed at the same location produces the same ID.
	ID string

	// SourcePath references the owning Document by path. Lookup only.
	SourcePath string

	Text      string
	StartLine int
	EndLine   int
	Symbol    string
	Language  Language
	Kind      SpanKind

	// Ordinal is the chunk's position within its document, 0-based.
	Ordinal int
}

// ChunkID computes the deterministic chunk identifier. Distinct content at the
// same location yields a distinct ID, which enables change detection at chunk
// granularity rather than file granularity.
func ChunkID(path string, startLine, endLine int, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|", path, startLine, endLine)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks chunk internal consistency.
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}
	if c.SourcePath == "" {
		return errors.New("source path is required")
	}
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must not exceed end line")
	}
	return nil
}

// Citation formats the chunk provenance as path:start-end for result output.
func (c *Chunk) Citation() string {
	return fmt.Sprintf("%s:%d-%d", c.SourcePath, c.StartLine, c.EndLine)
}
