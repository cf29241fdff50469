package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/astra-rag/astra-context/pkg/types"
)

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai, jina, local
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

// IndexConfig configures the walk and split stages of the write path.
type IndexConfig struct {
	ChunkSize         int      `yaml:"chunk_size"`
	ChunkOverlap      int      `yaml:"chunk_overlap"`
	MaxFileSizeBytes  int64    `yaml:"max_file_size_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	IgnoredDirs       []string `yaml:"ignored_dirs"`
	Workers           int      `yaml:"workers"`
}

// SearchConfig configures the query path defaults.
type SearchConfig struct {
	MaxResults          int     `yaml:"max_results"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// Config is the root configuration structure. Values load from a YAML file,
// with missing fields filled from defaults and ASTRA_* environment overrides
// applied last.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Index: IndexConfig{
			ChunkSize:        3500,
			ChunkOverlap:     200,
			MaxFileSizeBytes: 1 << 20,
			AllowedExtensions: []string{
				".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".rs", ".java",
				".md", ".markdown", ".rst", ".txt",
				".yaml", ".yml", ".json", ".toml",
			},
			IgnoredDirs: []string{
				".git", ".hg", ".svn", "node_modules", "vendor",
				"__pycache__", ".venv", "venv", "dist", "build", "target",
			},
			Workers: 4,
		},
		Search: SearchConfig{
			MaxResults:          5,
			SimilarityThreshold: 0.6,
		},
		Embedding: EmbeddingConfig{
			Provider:  "local",
			BatchSize: 50,
			CacheSize: 10000,
		},
	}
}

// Load reads a config from path. A missing file returns defaults; a present
// but malformed file is a configuration error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("%w: read config %s: %v", types.ErrConfiguration, path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config %s: %v", types.ErrConfiguration, path, err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./astra-context.yaml, then $ASTRA_CONFIG, then defaults.
func LoadDefault() (*Config, error) {
	if path := os.Getenv("ASTRA_CONFIG"); path != "" {
		return Load(path)
	}
	return Load("astra-context.yaml")
}

// Validate checks configuration invariants. All violations are fatal and wrap
// ErrConfiguration.
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", types.ErrConfiguration, c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap cannot be negative, got %d", types.ErrConfiguration, c.Index.ChunkOverlap)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d",
			types.ErrConfiguration, c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	if c.Index.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("%w: max_file_size_bytes must be positive", types.ErrConfiguration)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("%w: max_results must be positive, got %d", types.ErrConfiguration, c.Search.MaxResults)
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0,1], got %f",
			types.ErrConfiguration, c.Search.SimilarityThreshold)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch_size must be positive", types.ErrConfiguration)
	}
	return nil
}

// applyEnv overlays ASTRA_* environment variables on the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ASTRA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ASTRA_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("ASTRA_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("ASTRA_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.ChunkSize = n
		}
	}
	if v := os.Getenv("ASTRA_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.ChunkOverlap = n
		}
	}
	if v := os.Getenv("ASTRA_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxResults = n
		}
	}
	if v := os.Getenv("ASTRA_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SimilarityThreshold = f
		}
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".astra-context"
	}
	return filepath.Join(home, ".astra-context")
}
