package embedder

import (
	"fmt"
	"os"
	"strings"

	"github.com/astra-rag/astra-context/pkg/types"

	"github.com/astra-rag/astra-context/internal/config"
)

// New creates an embedder from configuration. Unknown providers are a
// configuration error.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKeyFromEnv(cfg), cfg.Model, cache)
	case ProviderJina:
		return NewJinaProvider(apiKeyFromEnv(cfg), cfg.Model, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrConfiguration, cfg.Provider)
	}
}

func apiKeyFromEnv(cfg config.EmbeddingConfig) string {
	// An explicit api_key_env takes priority; provider constructors fall
	// back to their conventional variable when this is empty.
	if cfg.APIKeyEnv != "" {
		return os.Getenv(cfg.APIKeyEnv)
	}
	return ""
}
