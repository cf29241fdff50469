package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/astra-rag/astra-context/pkg/types"
)

// SearchVector performs cosine-similarity nearest-neighbor search. With the
// sqlite-vec extension the distance computes in SQL; the purego build scans
// candidates and ranks in Go.
func (s *SQLiteStore) SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	if VectorExtensionAvailable {
		return s.searchVectorOptimized(ctx, vector, limit)
	}
	return s.searchVectorFallback(ctx, vector, limit)
}

// searchVectorOptimized computes distance at the database layer.
// sqlite-vec's vec_distance_cosine returns distance (lower is better); we
// convert to similarity (1 - distance) for a higher-is-better score.
func (s *SQLiteStore) searchVectorOptimized(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	blob := serializeVector(vector)
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.chunk_id, d.path, c.start_line, c.end_line, c.symbol, c.content,
			1.0 - vec_distance_cosine(e.vector, ?) as similarity
		FROM chunks c
		INNER JOIN embeddings e ON e.chunk_row = c.id
		INNER JOIN documents d ON c.document_id = d.id
		ORDER BY similarity DESC
		LIMIT ?
	`, blob, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	return scanVectorResults(rows)
}

// searchVectorFallback scans all embeddings and ranks in Go.
func (s *SQLiteStore) searchVectorFallback(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, d.path, c.start_line, c.end_line, c.symbol, c.content, e.vector
		FROM chunks c
		INNER JOIN embeddings e ON e.chunk_row = c.id
		INNER JOIN documents d ON c.document_id = d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: vector scan: %v", types.ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []VectorResult
	for rows.Next() {
		var r VectorResult
		var symbol sql.NullString
		var blob []byte
		if err := rows.Scan(&r.ChunkID, &r.Path, &r.StartLine, &r.EndLine, &symbol, &r.Content, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan candidate: %v", types.ErrStore, err)
		}
		r.Symbol = symbol.String

		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			continue // dimension mismatch, skip
		}
		r.Score = cosineSimilarity(vector, stored)
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

func scanVectorResults(rows *sql.Rows) ([]VectorResult, error) {
	var results []VectorResult
	for rows.Next() {
		var r VectorResult
		var symbol sql.NullString
		if err := rows.Scan(&r.ChunkID, &r.Path, &r.StartLine, &r.EndLine, &symbol, &r.Content, &r.Score); err != nil {
			return nil, fmt.Errorf("%w: scan result: %v", types.ErrStore, err)
		}
		r.Symbol = symbol.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
	}
	return results, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
