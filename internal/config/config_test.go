package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/astra-rag/astra-context/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Index.ChunkSize != 3500 {
		t.Errorf("chunk_size = %d, expected default 3500", cfg.Index.ChunkSize)
	}
	if cfg.Search.MaxResults != 5 || cfg.Search.SimilarityThreshold != 0.6 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.Embedding.Provider != "local" {
		t.Errorf("provider = %q, expected local", cfg.Embedding.Provider)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "astra-context.yaml")
	yaml := `
index:
  chunk_size: 2000
  chunk_overlap: 100
search:
  max_results: 10
embedding:
  provider: openai
  model: text-embedding-3-small
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Index.ChunkSize != 2000 || cfg.Index.ChunkOverlap != 100 {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.Search.MaxResults != 10 {
		t.Errorf("max_results = %d", cfg.Search.MaxResults)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("provider = %q", cfg.Embedding.Provider)
	}
	// Untouched fields keep defaults.
	if cfg.Search.SimilarityThreshold != 0.6 {
		t.Errorf("threshold = %f, expected default", cfg.Search.SimilarityThreshold)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("index: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("malformed config must be a configuration error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Index.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Index.ChunkOverlap = -1 }},
		{"overlap >= chunk size", func(c *Config) { c.Index.ChunkOverlap = c.Index.ChunkSize }},
		{"zero max file size", func(c *Config) { c.Index.MaxFileSizeBytes = 0 }},
		{"zero max results", func(c *Config) { c.Search.MaxResults = 0 }},
		{"threshold above one", func(c *Config) { c.Search.SimilarityThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Search.SimilarityThreshold = -0.1 }},
		{"zero batch size", func(c *Config) { c.Embedding.BatchSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, types.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASTRA_CHUNK_SIZE", "1234")
	t.Setenv("ASTRA_EMBEDDING_PROVIDER", "jina")
	t.Setenv("ASTRA_SIMILARITY_THRESHOLD", "0.8")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Index.ChunkSize != 1234 {
		t.Errorf("chunk_size = %d, env override ignored", cfg.Index.ChunkSize)
	}
	if cfg.Embedding.Provider != "jina" {
		t.Errorf("provider = %q, env override ignored", cfg.Embedding.Provider)
	}
	if cfg.Search.SimilarityThreshold != 0.8 {
		t.Errorf("threshold = %f, env override ignored", cfg.Search.SimilarityThreshold)
	}
}
