package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/astra-rag/astra-context/internal/chunker"
	"github.com/astra-rag/astra-context/internal/embedder"
	"github.com/astra-rag/astra-context/internal/splitter"
	"github.com/astra-rag/astra-context/internal/storage"
	"github.com/astra-rag/astra-context/internal/walker"
	"github.com/astra-rag/astra-context/pkg/types"
)

// ErrIndexInProgress is returned when an index run is requested while another
// run is still mutating the store.
var ErrIndexInProgress = errors.New("index run already in progress")

// Manager coordinates the indexing pipeline: walk -> split -> chunk -> embed
// -> store. Runs are incremental: files whose content fingerprint matches the
// stored one are skipped, files missing from disk are removed from the store.
type Manager struct {
	store   storage.Store
	gateway *embedder.Gateway
	walker  *walker.Walker

	splitCfg splitter.Config
	workers  int

	lock   IndexLock
	logger *log.Logger
}

// Config contains configuration for the index manager.
type Config struct {
	SplitConfig splitter.Config
	Workers     int // concurrent file pipelines (default: runtime.NumCPU())
}

// New creates a Manager over the given store, embedding gateway and walker.
func New(store storage.Store, gateway *embedder.Gateway, w *walker.Walker, cfg Config, logger *log.Logger) *Manager {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		store:    store,
		gateway:  gateway,
		walker:   w,
		splitCfg: cfg.SplitConfig,
		workers:  workers,
		logger:   logger,
	}
}

// Run indexes the project rooted at root. With force set, all persisted state
// is dropped and every file is re-embedded from scratch; otherwise unchanged
// files (by content fingerprint) are skipped and files no longer on disk are
// deleted from the store.
//
// Per-path failures (unreadable files, embedding failures, store write
// failures) do not abort the run: they are collected in the summary's Failed
// list. Only configuration problems return an error.
func (m *Manager) Run(ctx context.Context, root string, force bool) (*types.IndexSummary, error) {
	if !m.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer m.lock.Release()

	startTime := time.Now()
	summary := &types.IndexSummary{
		RunID: uuid.NewString(),
	}

	// The walk validates the root, so a forced Clear below cannot wipe the
	// store on a bad path.
	docs, walkFailures, err := m.walker.Collect(root)
	if err != nil {
		return nil, err
	}
	summary.Failed = append(summary.Failed, walkFailures...)

	if err := m.checkEmbeddingStamp(ctx, force); err != nil {
		return nil, err
	}

	fingerprints, err := m.store.Fingerprints(ctx)
	if err != nil {
		return nil, err
	}

	// Partition into unchanged, to-index and deleted. Paths that failed to
	// read this run are skipped, not reconciled as deleted: their indexed
	// state stays until they are readable again or gone from disk.
	seen := make(map[string]bool, len(docs))
	for _, f := range walkFailures {
		seen[f.Path] = true
	}
	var work []types.Document
	for _, doc := range docs {
		seen[doc.Path] = true
		if fp, ok := fingerprints[doc.Path]; ok && fp == doc.Fingerprint {
			summary.Skipped++
			continue
		}
		work = append(work, doc)
	}
	for path := range fingerprints {
		if seen[path] {
			continue
		}
		if err := m.store.DeleteDocument(ctx, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			summary.Failed = append(summary.Failed, types.PathFailure{
				Path:   path,
				Reason: fmt.Sprintf("delete: %v", err),
			})
			continue
		}
		summary.Deleted++
	}

	indexed, failures := m.indexDocuments(ctx, work)
	summary.Indexed = indexed
	summary.Failed = append(summary.Failed, failures...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := m.store.SetEmbeddingInfo(ctx, m.gateway.Model(), m.gateway.Dimension()); err != nil {
		return nil, err
	}
	if err := m.store.SetLastIndexedAt(ctx, time.Now()); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(startTime)
	m.logger.Printf("index run %s: indexed=%d skipped=%d deleted=%d failed=%d in %s",
		summary.RunID, summary.Indexed, summary.Skipped, summary.Deleted, len(summary.Failed), summary.Duration)
	return summary, nil
}

// checkEmbeddingStamp guards against mixing vectors from different embedding
// models in one store. A mismatch is fatal unless force clears the store; a
// forced run always starts from an empty store.
func (m *Manager) checkEmbeddingStamp(ctx context.Context, force bool) error {
	if force {
		return m.store.Clear(ctx)
	}

	model, dimension, ok, err := m.store.EmbeddingInfo(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if model != m.gateway.Model() || dimension != m.gateway.Dimension() {
		return fmt.Errorf("%w: store was built with %s (%dd) but provider is %s (%dd); force a reindex to switch models",
			types.ErrConfiguration, model, dimension, m.gateway.Model(), m.gateway.Dimension())
	}
	return nil
}

// indexDocuments runs the per-file pipeline concurrently. A failing file is
// recorded and skipped; the rest of the batch proceeds.
func (m *Manager) indexDocuments(ctx context.Context, docs []types.Document) (int, []types.PathFailure) {
	var (
		indexed  atomic.Int32
		mu       sync.Mutex
		failures []types.PathFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := m.indexDocument(gctx, doc); err != nil {
				mu.Lock()
				failures = append(failures, types.PathFailure{Path: doc.Path, Reason: err.Error()})
				mu.Unlock()
				return nil
			}
			indexed.Add(1)
			return nil
		})
	}

	// The only error workers propagate is context cancellation; per-path
	// failures were already collected.
	_ = g.Wait()

	return int(indexed.Load()), failures
}

// indexDocument runs one file through split -> chunk -> embed -> store.
func (m *Manager) indexDocument(ctx context.Context, doc types.Document) error {
	spans, err := splitter.For(doc.Language, m.splitCfg).Split(doc.Content)
	if err != nil {
		// Syntax-aware splitting failed; retry with the sliding window so the
		// file still gets indexed.
		m.logger.Printf("split failed for %s, falling back to window: %v", doc.Path, err)
		spans, err = splitter.Fallback(m.splitCfg).Split(doc.Content)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrSplit, err)
		}
	}

	chunks := chunker.Build(doc, spans)
	if len(chunks) == 0 {
		// Empty or whitespace-only file: record the fingerprint with no
		// chunks so the next run skips it.
		return m.store.ReplaceDocument(ctx, doc, nil, nil)
	}

	vectors, err := m.gateway.EmbedTexts(ctx, chunker.Texts(chunks))
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", types.ErrEmbedding, len(vectors), len(chunks))
	}

	return m.store.ReplaceDocument(ctx, doc, chunks, vectors)
}
