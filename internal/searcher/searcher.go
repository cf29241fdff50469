package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/astra-rag/astra-context/internal/embedder"
	"github.com/astra-rag/astra-context/internal/storage"
	"github.com/astra-rag/astra-context/pkg/types"
)

const (
	// overfetchFactor is how many candidates are pulled from the store per
	// requested result, leaving headroom for threshold filtering and dedup.
	overfetchFactor = 3

	// queryCacheSize bounds the LRU query cache.
	queryCacheSize = 1000

	// DefaultCacheTTL is how long a cached response stays valid.
	DefaultCacheTTL = 5 * time.Minute
)

// SearchRequest contains parameters for one semantic query.
type SearchRequest struct {
	Query      string
	MaxResults int     // <= 0 uses the configured default
	Threshold  float64 // < 0 uses the configured default

	UseCache bool
	CacheTTL time.Duration
}

// SearchResponse contains ranked results and query metadata.
type SearchResponse struct {
	Results    []types.SearchResult
	Candidates int // hits considered before threshold and dedup
	Duration   time.Duration
	CacheHit   bool
}

// cacheEntry is a cached response with an expiration time.
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Config holds the searcher defaults applied when a request leaves a knob
// unset.
type Config struct {
	MaxResults          int
	SimilarityThreshold float64
}

// Searcher answers semantic queries against the index. Ranking is
// deterministic: equal scores break ties by chunk ID, so the same query
// against the same index always returns the same ordering.
type Searcher struct {
	store   storage.Store
	gateway *embedder.Gateway
	cfg     Config
	cache   *lru.Cache[[32]byte, *cacheEntry]
}

// New creates a Searcher over the store and embedding gateway.
func New(store storage.Store, gateway *embedder.Gateway, cfg Config) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](queryCacheSize)
	if err != nil {
		// Only possible with a non-positive size.
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Searcher{
		store:   store,
		gateway: gateway,
		cfg:     cfg,
		cache:   cache,
	}
}

// Search embeds the query, pulls candidates from the store and returns the
// thresholded, deduplicated, deterministically ranked results.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.normalizeRequest(&req); err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	vector, err := s.gateway.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.SearchVector(ctx, vector, req.MaxResults*overfetchFactor)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		return nil, err
	}

	ranked := rank(candidates, req.Threshold, req.MaxResults)

	response := &SearchResponse{
		Results:    ranked,
		Candidates: len(candidates),
		Duration:   time.Since(startTime),
	}

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}
	return response, nil
}

// FileContext returns every chunk of one indexed file in document order. A
// path with no indexed chunks yields an empty list; storage.ErrNotFound is
// returned only when no index run has ever completed.
func (s *Searcher) FileContext(ctx context.Context, path string) ([]types.Chunk, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", types.ErrConfiguration)
	}
	return s.store.ChunksByPath(ctx, path)
}

// Status reports index health counters.
func (s *Searcher) Status(ctx context.Context) (*types.IndexStatus, error) {
	return s.store.Status(ctx)
}

// normalizeRequest validates the query and fills unset knobs from defaults.
func (s *Searcher) normalizeRequest(req *SearchRequest) error {
	if req.Query == "" {
		return fmt.Errorf("%w: empty query", types.ErrConfiguration)
	}
	if req.MaxResults <= 0 {
		req.MaxResults = s.cfg.MaxResults
	}
	if req.Threshold < 0 {
		req.Threshold = s.cfg.SimilarityThreshold
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = DefaultCacheTTL
	}
	return nil
}

// rank filters candidates by threshold, drops duplicates, orders by score
// descending with chunk ID as a stable tie-break and truncates to limit.
func rank(candidates []storage.VectorResult, threshold float64, limit int) []types.SearchResult {
	kept := make([]storage.VectorResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			kept = append(kept, c)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ChunkID < kept[j].ChunkID
	})

	kept = dedupe(kept)
	if limit < len(kept) {
		kept = kept[:limit]
	}

	results := make([]types.SearchResult, 0, len(kept))
	for i, c := range kept {
		results = append(results, types.SearchResult{
			ChunkID:   c.ChunkID,
			Rank:      i + 1,
			Score:     c.Score,
			Text:      c.Content,
			Path:      c.Path,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Symbol:    c.Symbol,
			Citation:  fmt.Sprintf("%s:%d-%d", c.Path, c.StartLine, c.EndLine),
		})
	}
	return results
}

// dedupe removes repeated chunk IDs and spans fully contained by an
// already-kept span of the same file. Input is sorted best-first, so the
// higher-scoring entry always wins.
func dedupe(sorted []storage.VectorResult) []storage.VectorResult {
	seen := make(map[string]bool, len(sorted))
	kept := make([]storage.VectorResult, 0, len(sorted))

	for _, c := range sorted {
		if seen[c.ChunkID] {
			continue
		}
		contained := false
		for _, k := range kept {
			if k.Path == c.Path && k.StartLine <= c.StartLine && c.EndLine <= k.EndLine {
				contained = true
				break
			}
		}
		if contained {
			continue
		}
		seen[c.ChunkID] = true
		kept = append(kept, c)
	}
	return kept
}

// checkCache returns a copy of a live cached response or nil.
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	key := cacheKey(req)
	entry, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cache.Remove(key)
		return nil
	}
	return copyResponse(entry.response)
}

func (s *Searcher) storeInCache(req SearchRequest, resp *SearchResponse) {
	s.cache.Add(cacheKey(req), &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(req.CacheTTL),
	})
}

// copyResponse clones a response including its result slice, so caller
// mutations cannot reach the cached entry and vice versa.
func copyResponse(resp *SearchResponse) *SearchResponse {
	cp := *resp
	cp.Results = append([]types.SearchResult(nil), resp.Results...)
	return &cp
}

// cacheKey hashes the parameters that affect the result set.
func cacheKey(req SearchRequest) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%g", req.Query, req.MaxResults, req.Threshold)))
}
