package types

import "time"

// SearchResult is a ranked query hit. Ephemeral, constructed per query.
type SearchResult struct {
	ChunkID string
	Rank    int // 1-based position in the result set

	// Score is cosine similarity against the query vector; higher is more
	// relevant.
	Score float64

	Text      string
	Path      string
	StartLine int
	EndLine   int
	Symbol    string
	Citation  string
}

// PathFailure records a per-path indexing failure in a run summary.
type PathFailure struct {
	Path   string
	Reason string
}

// IndexSummary reports the outcome of one index run. Partial failure is not
// an error: failed paths are listed with reasons while the rest of the tree
// indexes normally.
type IndexSummary struct {
	RunID    string
	Indexed  int
	Skipped  int
	Deleted  int
	Failed   []PathFailure
	Duration time.Duration
}

// IndexStatus describes index health for the status operation.
type IndexStatus struct {
	Documents      int
	Chunks         int
	Embeddings     int
	EmbeddingModel string
	Dimension      int
	LastIndexedAt  time.Time
}
