package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/astra-rag/astra-context/pkg/types"
)

// Gateway batches texts through the embedding provider. Batch size is bounded
// to control request size; provider failures (after the provider's own
// retries) surface as ErrEmbedding so the indexer can record a per-path
// failure instead of crashing the run.
type Gateway struct {
	embedder  Embedder
	batchSize int
}

// NewGateway wraps an embedder with batching.
func NewGateway(emb Embedder, batchSize int) *Gateway {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = DefaultBatchSize
	}
	return &Gateway{embedder: emb, batchSize: batchSize}
}

// EmbedTexts embeds texts in bounded batches, returning vectors in input
// order.
func (g *Gateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := g.embedder.EmbedBatch(ctx, BatchRequest{Texts: texts[start:end]})
		if err != nil {
			return nil, wrapEmbeddingErr(ctx, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
				types.ErrEmbedding, len(resp.Embeddings), end-start)
		}
		for _, emb := range resp.Embeddings {
			vectors = append(vectors, emb.Vector)
		}
	}
	return vectors, nil
}

// directEmbedder is implemented by providers that can embed without their
// write-path retry loop.
type directEmbedder interface {
	EmbedDirect(ctx context.Context, text string) (*Embedding, error)
}

// EmbedQuery embeds a single query string. It bypasses provider retries when
// the provider supports it, so a failing provider fails the query fast
// instead of stretching read latency across backoff attempts.
func (g *Gateway) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	var (
		emb *Embedding
		err error
	)
	if direct, ok := g.embedder.(directEmbedder); ok {
		emb, err = direct.EmbedDirect(ctx, query)
	} else {
		emb, err = g.embedder.Embed(ctx, query)
	}
	if err != nil {
		return nil, wrapEmbeddingErr(ctx, err)
	}
	return emb.Vector, nil
}

// Dimension reports the provider's vector dimension.
func (g *Gateway) Dimension() int {
	return g.embedder.Dimension()
}

// Model reports the provider's model identifier.
func (g *Gateway) Model() string {
	return g.embedder.Model()
}

// wrapEmbeddingErr maps a deadline expiry to ErrTimeout and everything else
// to ErrEmbedding, preserving the cause.
func wrapEmbeddingErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", types.ErrEmbedding, err)
}
