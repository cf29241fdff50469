package storage

import (
	"context"
	"time"

	"github.com/astra-rag/astra-context/pkg/types"
)

// Store is the persistence contract for the index: document fingerprints
// (the Index State), chunks, and their embedding vectors. Only the indexer
// writes; the searcher only reads.
type Store interface {
	// Fingerprints returns the persisted path -> content fingerprint map
	// read at the start of an index run.
	Fingerprints(ctx context.Context) (map[string][32]byte, error)

	// ReplaceDocument atomically swaps a document's chunks and embeddings
	// and records its fingerprint. vectors[i] belongs to chunks[i]. The
	// write is transactional per path: a failure leaves the prior state
	// intact, never a document marked indexed with partial embeddings.
	ReplaceDocument(ctx context.Context, doc types.Document, chunks []types.Chunk, vectors [][]float32) error

	// DeleteDocument removes a document, its chunks and embeddings.
	DeleteDocument(ctx context.Context, path string) error

	// ChunksByPath returns a document's chunks in document order.
	ChunksByPath(ctx context.Context, path string) ([]types.Chunk, error)

	// SearchVector returns the nearest chunks to the query vector by cosine
	// similarity, best first.
	SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error)

	// Status reports index health counters.
	Status(ctx context.Context) (*types.IndexStatus, error)

	// EmbeddingInfo returns the model and dimension the store was stamped
	// with, or ok=false for a fresh store.
	EmbeddingInfo(ctx context.Context) (model string, dimension int, ok bool, err error)

	// SetEmbeddingInfo stamps the store with the active embedding model.
	SetEmbeddingInfo(ctx context.Context, model string, dimension int) error

	// SetLastIndexedAt records the completion time of an index run.
	SetLastIndexedAt(ctx context.Context, t time.Time) error

	// Clear drops all documents, chunks, embeddings and the embedding stamp.
	// Used when force-reindexing across an embedding model change.
	Clear(ctx context.Context) error

	Close() error
}

// VectorResult is one similarity hit, hydrated with the chunk fields the
// ranking engine needs for thresholding, span dedup and citation.
type VectorResult struct {
	ChunkID   string
	Path      string
	StartLine int
	EndLine   int
	Symbol    string
	Content   string
	Score     float64
}
