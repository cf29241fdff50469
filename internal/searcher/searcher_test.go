package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/astra-rag/astra-context/internal/embedder"
	"github.com/astra-rag/astra-context/internal/storage"
	"github.com/astra-rag/astra-context/pkg/types"
)

// stubStore serves canned candidates and chunks; writes are unsupported.
type stubStore struct {
	results []storage.VectorResult
	chunks  map[string][]types.Chunk
	status  types.IndexStatus

	searchCalls int
	lastLimit   int
}

func (s *stubStore) Fingerprints(ctx context.Context) (map[string][32]byte, error) {
	return nil, nil
}

func (s *stubStore) ReplaceDocument(ctx context.Context, doc types.Document, chunks []types.Chunk, vectors [][]float32) error {
	return errors.New("read-only stub")
}

func (s *stubStore) DeleteDocument(ctx context.Context, path string) error {
	return errors.New("read-only stub")
}

func (s *stubStore) ChunksByPath(ctx context.Context, path string) ([]types.Chunk, error) {
	chunks, ok := s.chunks[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return chunks, nil
}

func (s *stubStore) SearchVector(ctx context.Context, vector []float32, limit int) ([]storage.VectorResult, error) {
	s.searchCalls++
	s.lastLimit = limit
	if limit > len(s.results) {
		limit = len(s.results)
	}
	return s.results[:limit], nil
}

func (s *stubStore) Status(ctx context.Context) (*types.IndexStatus, error) {
	st := s.status
	return &st, nil
}

func (s *stubStore) EmbeddingInfo(ctx context.Context) (string, int, bool, error) {
	return "", 0, false, nil
}

func (s *stubStore) SetEmbeddingInfo(ctx context.Context, model string, dimension int) error {
	return nil
}

func (s *stubStore) SetLastIndexedAt(ctx context.Context, t time.Time) error { return nil }
func (s *stubStore) Clear(ctx context.Context) error                         { return nil }
func (s *stubStore) Close() error                                            { return nil }

func hit(id, path string, start, end int, score float64) storage.VectorResult {
	return storage.VectorResult{
		ChunkID:   id,
		Path:      path,
		StartLine: start,
		EndLine:   end,
		Content:   "text of " + id,
		Score:     score,
	}
}

func newTestSearcher(store storage.Store) *Searcher {
	provider, _ := embedder.NewLocalProvider(nil)
	gateway := embedder.NewGateway(provider, 10)
	return New(store, gateway, Config{MaxResults: 5, SimilarityThreshold: 0.6})
}

func TestSearchThresholdAndRanking(t *testing.T) {
	store := &stubStore{results: []storage.VectorResult{
		hit("a", "x.go", 1, 5, 0.95),
		hit("b", "y.go", 1, 5, 0.70),
		hit("c", "z.go", 1, 5, 0.40), // below threshold
	}}
	s := newTestSearcher(store)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "how does ranking work", Threshold: -1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(resp.Results))
	}
	if resp.Results[0].ChunkID != "a" || resp.Results[1].ChunkID != "b" {
		t.Errorf("order = %s, %s", resp.Results[0].ChunkID, resp.Results[1].ChunkID)
	}
	for i, r := range resp.Results {
		if r.Rank != i+1 {
			t.Errorf("result %d rank = %d", i, r.Rank)
		}
	}
	if resp.Results[0].Citation != "x.go:1-5" {
		t.Errorf("citation = %q", resp.Results[0].Citation)
	}
}

func TestSearchOverfetchesStore(t *testing.T) {
	store := &stubStore{}
	s := newTestSearcher(store)

	_, err := s.Search(context.Background(), SearchRequest{Query: "q", MaxResults: 4})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if store.lastLimit != 4*overfetchFactor {
		t.Errorf("store limit = %d, expected %d", store.lastLimit, 4*overfetchFactor)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newTestSearcher(&stubStore{})
	_, err := s.Search(context.Background(), SearchRequest{Query: ""})
	if !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("empty query must be a configuration error, got %v", err)
	}
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	store := &stubStore{results: []storage.VectorResult{
		hit("zzz", "a.go", 1, 2, 0.80),
		hit("aaa", "b.go", 1, 2, 0.80),
		hit("mmm", "c.go", 1, 2, 0.80),
	}}
	s := newTestSearcher(store)

	var first []string
	for run := 0; run < 3; run++ {
		resp, err := s.Search(context.Background(), SearchRequest{Query: "tie"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		ids := make([]string, len(resp.Results))
		for i, r := range resp.Results {
			ids[i] = r.ChunkID
		}
		if run == 0 {
			first = ids
			if ids[0] != "aaa" || ids[1] != "mmm" || ids[2] != "zzz" {
				t.Fatalf("equal scores must order by chunk ID, got %v", ids)
			}
			continue
		}
		for i := range ids {
			if ids[i] != first[i] {
				t.Fatalf("run %d order %v differs from %v", run, ids, first)
			}
		}
	}
}

func TestSearchDedupesChunksAndContainedSpans(t *testing.T) {
	store := &stubStore{results: []storage.VectorResult{
		hit("dup", "a.go", 1, 10, 0.9),
		hit("dup", "a.go", 1, 10, 0.9),    // identical chunk ID
		hit("inner", "a.go", 3, 7, 0.85),  // fully inside dup's span
		hit("other", "b.go", 3, 7, 0.85),  // same lines, different file: kept
		hit("edge", "a.go", 8, 12, 0.80),  // partial overlap: kept
	}}
	s := newTestSearcher(store)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "dedup"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	ids := make(map[string]bool)
	for _, r := range resp.Results {
		if ids[r.ChunkID] {
			t.Fatalf("chunk %s appears twice", r.ChunkID)
		}
		ids[r.ChunkID] = true
	}
	if ids["inner"] {
		t.Error("span contained in a higher-scoring span must be dropped")
	}
	if !ids["dup"] || !ids["other"] || !ids["edge"] {
		t.Errorf("expected dup, other and edge to survive, got %v", ids)
	}
}

func TestSearchMaxResultsTruncation(t *testing.T) {
	var results []storage.VectorResult
	for i := 0; i < 20; i++ {
		results = append(results, hit(string(rune('a'+i)), "f.go", i*10+1, i*10+5, 0.9))
	}
	store := &stubStore{results: results}
	s := newTestSearcher(store)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "many", MaxResults: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(resp.Results))
	}
}

func TestSearchCache(t *testing.T) {
	store := &stubStore{results: []storage.VectorResult{hit("a", "x.go", 1, 2, 0.9)}}
	s := newTestSearcher(store)

	req := SearchRequest{Query: "cached", UseCache: true}
	first, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if first.CacheHit {
		t.Error("first query cannot be a cache hit")
	}

	second, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !second.CacheHit {
		t.Error("second identical query should hit the cache")
	}
	if store.searchCalls != 1 {
		t.Errorf("store queried %d times, expected 1", store.searchCalls)
	}
}

func TestSearchCacheIsolatedFromCallerMutation(t *testing.T) {
	store := &stubStore{results: []storage.VectorResult{hit("a", "x.go", 1, 2, 0.9)}}
	s := newTestSearcher(store)

	req := SearchRequest{Query: "cached", UseCache: true}
	first, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	first.Results[0].Text = "mutated by caller"

	second, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second identical query should hit the cache")
	}
	if second.Results[0].Text != "text of a" {
		t.Errorf("cached result polluted, text = %q", second.Results[0].Text)
	}

	// A hit hands out its own copy too.
	second.Results[0].Text = "mutated again"
	third, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if third.Results[0].Text != "text of a" {
		t.Errorf("cache hit shares its slice with the caller, text = %q", third.Results[0].Text)
	}
}

func TestFileContext(t *testing.T) {
	store := &stubStore{chunks: map[string][]types.Chunk{
		"pkg/a.go": {
			{ID: "c1", SourcePath: "pkg/a.go", Text: "one", StartLine: 1, EndLine: 3, Ordinal: 0},
			{ID: "c2", SourcePath: "pkg/a.go", Text: "two", StartLine: 4, EndLine: 6, Ordinal: 1},
		},
	}}
	s := newTestSearcher(store)

	chunks, err := s.FileContext(context.Background(), "pkg/a.go")
	if err != nil {
		t.Fatalf("file context: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Ordinal != 0 || chunks[1].Ordinal != 1 {
		t.Errorf("chunks = %+v", chunks)
	}

	if _, err := s.FileContext(context.Background(), "missing.go"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing path: expected not found, got %v", err)
	}

	if _, err := s.FileContext(context.Background(), ""); !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("empty path: expected configuration error, got %v", err)
	}
}

func TestStatusPassthrough(t *testing.T) {
	store := &stubStore{status: types.IndexStatus{Documents: 3, Chunks: 9, Embeddings: 9}}
	s := newTestSearcher(store)

	status, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Documents != 3 || status.Chunks != 9 {
		t.Errorf("status = %+v", status)
	}
}
