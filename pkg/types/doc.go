// Package types defines the shared domain model for the indexing and query
// pipeline: documents, chunks, search results and the error taxonomy.
//
// A Document is an immutable snapshot of one source file. A Chunk is a
// contiguous span of a document sized to be a coherent unit for embedding and
// citation; its ID is a deterministic hash of location plus content, so
// re-indexing identical content is idempotent. SearchResult and IndexSummary
// are the ephemeral outputs of the query and write paths respectively.
package types
