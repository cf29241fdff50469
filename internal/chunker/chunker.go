package chunker

import (
	"github.com/astra-rag/astra-context/pkg/types"
)

// Build attaches provenance to splitter spans, producing fully populated
// Chunk records for a document. It is a pure function: the same document and
// spans always yield the same chunk IDs, which makes re-indexing unchanged
// content idempotent.
func Build(doc types.Document, spans []types.Span) []types.Chunk {
	if len(spans) == 0 {
		return nil
	}

	chunks := make([]types.Chunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, types.Chunk{
			ID:         types.ChunkID(doc.Path, span.StartLine, span.EndLine, span.Text),
			SourcePath: doc.Path,
			Text:       span.Text,
			StartLine:  span.StartLine,
			EndLine:    span.EndLine,
			Symbol:     span.Symbol,
			Language:   doc.Language,
			Kind:       span.Kind,
			Ordinal:    i,
		})
	}
	return chunks
}

// Texts extracts chunk text in order, the shape the embedding gateway wants.
func Texts(chunks []types.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
