package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/astra-rag/astra-context/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// meta keys
const (
	metaEmbeddingModel     = "embedding_model"
	metaEmbeddingDimension = "embedding_dimension"
	metaLastIndexedAt      = "last_indexed_at"
)

// SQLiteStore implements Store using SQLite. A single writer connection with
// WAL journaling serializes Index State commits, which is what makes
// concurrent per-path indexing safe.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the store at dbPath and applies pending
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrStore, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply migrations: %v", types.ErrStore, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Fingerprints loads the full path -> fingerprint map.
func (s *SQLiteStore) Fingerprints(ctx context.Context) (map[string][32]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, fingerprint FROM documents")
	if err != nil {
		return nil, fmt.Errorf("%w: load fingerprints: %v", types.ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][32]byte)
	for rows.Next() {
		var path string
		var fp []byte
		if err := rows.Scan(&path, &fp); err != nil {
			return nil, fmt.Errorf("%w: scan fingerprint: %v", types.ErrStore, err)
		}
		var arr [32]byte
		copy(arr[:], fp)
		out[path] = arr
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
	}
	return out, nil
}

// ReplaceDocument swaps a document's chunks and embeddings in one
// transaction. The fingerprint commits with the chunk rows, so a failed write
// leaves the old state visible and the path still marked stale.
func (s *SQLiteStore) ReplaceDocument(ctx context.Context, doc types.Document, chunks []types.Chunk, vectors [][]float32) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", types.ErrStore, len(vectors), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", types.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, language, fingerprint, mod_time, size_bytes, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			fingerprint = excluded.fingerprint,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			indexed_at = excluded.indexed_at
	`, doc.Path, string(doc.Language), doc.Fingerprint[:], doc.ModTime, doc.SizeBytes, now)
	if err != nil {
		return fmt.Errorf("%w: upsert document %s: %v", types.ErrStore, doc.Path, err)
	}

	var docID int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM documents WHERE path = ?", doc.Path).Scan(&docID); err != nil {
		return fmt.Errorf("%w: resolve document id: %v", types.ErrStore, err)
	}

	// Cascade removes the old embeddings with the old chunks.
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
		return fmt.Errorf("%w: delete old chunks: %v", types.ErrStore, err)
	}

	for i, chunk := range chunks {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (document_id, chunk_id, ordinal, symbol, kind, start_line, end_line, content)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, docID, chunk.ID, chunk.Ordinal, chunk.Symbol, string(chunk.Kind), chunk.StartLine, chunk.EndLine, chunk.Text)
		if err != nil {
			return fmt.Errorf("%w: insert chunk %s: %v", types.ErrStore, chunk.ID, err)
		}
		chunkRow, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrStore, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO embeddings (chunk_row, vector, dimension)
			VALUES (?, ?, ?)
		`, chunkRow, serializeVector(vectors[i]), len(vectors[i]))
		if err != nil {
			return fmt.Errorf("%w: insert embedding for chunk %s: %v", types.ErrStore, chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", types.ErrStore, doc.Path, err)
	}
	return nil
}

// DeleteDocument removes a document and, via cascade, its chunks and
// embeddings.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("%w: delete document %s: %v", types.ErrStore, path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrStore, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ChunksByPath returns a document's chunks ordered by ordinal. A path absent
// from an indexed store yields an empty list; ErrNotFound means no index run
// has ever completed.
func (s *SQLiteStore) ChunksByPath(ctx context.Context, path string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.ordinal, c.symbol, c.kind, c.start_line, c.end_line, c.content, d.language
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE d.path = ?
		ORDER BY c.ordinal
	`, path)
	if err != nil {
		return nil, fmt.Errorf("%w: chunks for %s: %v", types.ErrStore, path, err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		var symbol sql.NullString
		var kind, language string
		if err := rows.Scan(&c.ID, &c.Ordinal, &symbol, &kind, &c.StartLine, &c.EndLine, &c.Text, &language); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", types.ErrStore, err)
		}
		c.SourcePath = path
		c.Symbol = symbol.String
		c.Kind = types.SpanKind(kind)
		c.Language = types.Language(language)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
	}

	if len(chunks) == 0 {
		var id int64
		err := s.db.QueryRowContext(ctx, "SELECT id FROM documents WHERE path = ?", path).Scan(&id)
		if err == sql.ErrNoRows {
			// Unknown path. A deleted or never-scanned file answers with an
			// empty chunk list; only a store that has never completed an
			// index run reports not found.
			if _, merr := s.getMeta(ctx, metaLastIndexedAt); merr != nil {
				if errors.Is(merr, ErrNotFound) {
					return nil, ErrNotFound
				}
				return nil, merr
			}
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
		}
	}
	return chunks, nil
}

// Status reports index health counters.
func (s *SQLiteStore) Status(ctx context.Context) (*types.IndexStatus, error) {
	status := &types.IndexStatus{}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM embeddings)
	`)
	if err := row.Scan(&status.Documents, &status.Chunks, &status.Embeddings); err != nil {
		return nil, fmt.Errorf("%w: status counters: %v", types.ErrStore, err)
	}

	model, dim, ok, err := s.EmbeddingInfo(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		status.EmbeddingModel = model
		status.Dimension = dim
	}

	if v, err := s.getMeta(ctx, metaLastIndexedAt); err == nil {
		if t, perr := time.Parse(time.RFC3339Nano, v); perr == nil {
			status.LastIndexedAt = t
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return status, nil
}

// EmbeddingInfo returns the embedding model stamp, if any.
func (s *SQLiteStore) EmbeddingInfo(ctx context.Context) (string, int, bool, error) {
	model, err := s.getMeta(ctx, metaEmbeddingModel)
	if errors.Is(err, ErrNotFound) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}

	dimStr, err := s.getMeta(ctx, metaEmbeddingDimension)
	if errors.Is(err, ErrNotFound) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: bad dimension stamp %q", types.ErrStore, dimStr)
	}
	return model, dim, true, nil
}

// SetEmbeddingInfo stamps the store with the active embedding model.
func (s *SQLiteStore) SetEmbeddingInfo(ctx context.Context, model string, dimension int) error {
	if err := s.setMeta(ctx, metaEmbeddingModel, model); err != nil {
		return err
	}
	return s.setMeta(ctx, metaEmbeddingDimension, strconv.Itoa(dimension))
}

// SetLastIndexedAt records the completion time of an index run.
func (s *SQLiteStore) SetLastIndexedAt(ctx context.Context, t time.Time) error {
	return s.setMeta(ctx, metaLastIndexedAt, t.Format(time.RFC3339Nano))
}

// Clear drops all indexed data and the embedding stamp.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", types.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DELETE FROM documents",
		"DELETE FROM meta",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: clear: %v", types.ErrStore, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit clear: %v", types.ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: meta %s: %v", types.ErrStore, key, err)
	}
	return value, nil
}

func (s *SQLiteStore) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: set meta %s: %v", types.ErrStore, key, err)
	}
	return nil
}
