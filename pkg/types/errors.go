package types

import "errors"

// Error taxonomy shared across the indexing and query pipeline.
//
// Configuration errors are fatal and abort an operation before any side
// effect. Access, split, embedding and store errors are recoverable at the
// per-path level: the index run records them in the failure list and keeps
// going. Timeout errors surface caller-supplied deadlines on the read path.
var (
	// ErrConfiguration indicates an invalid root path or config value.
	ErrConfiguration = errors.New("configuration error")

	// ErrAccess indicates an unreadable file or directory. Per-file, recovered.
	ErrAccess = errors.New("access error")

	// ErrSplit indicates a splitter failure. The indexer falls back to the
	// sliding-window splitter rather than failing the path.
	ErrSplit = errors.New("split error")

	// ErrEmbedding indicates the embedding provider failed after retries.
	ErrEmbedding = errors.New("embedding error")

	// ErrStore indicates a vector-store read or write failure.
	ErrStore = errors.New("store error")

	// ErrTimeout indicates a caller-supplied deadline expired on a query.
	ErrTimeout = errors.New("timeout")
)
