package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/astra-rag/astra-context/internal/config"
	"github.com/astra-rag/astra-context/internal/embedder"
	"github.com/astra-rag/astra-context/internal/indexer"
	"github.com/astra-rag/astra-context/internal/searcher"
	"github.com/astra-rag/astra-context/internal/splitter"
	"github.com/astra-rag/astra-context/internal/storage"
	"github.com/astra-rag/astra-context/internal/walker"
)

const (
	// ServerName is the MCP server name
	ServerName = "astra-context"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// dbFileName is the SQLite file under the data directory
	dbFileName = "astra-context.db"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    storage.Store
	indexer  *indexer.Manager
	searcher *searcher.Searcher
	logger   *log.Logger
}

// NewServer builds the full pipeline from config: store, embedding gateway,
// walker, index manager and searcher, then registers the MCP tools.
func NewServer(cfg *config.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(cfg.DataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	gateway := embedder.NewGateway(emb, cfg.Embedding.BatchSize)

	w := walker.New(walker.Config{
		AllowedExtensions: cfg.Index.AllowedExtensions,
		IgnoredDirs:       cfg.Index.IgnoredDirs,
		MaxFileSizeBytes:  cfg.Index.MaxFileSizeBytes,
	})

	idx := indexer.New(store, gateway, w, indexer.Config{
		SplitConfig: splitter.Config{
			ChunkSize:    cfg.Index.ChunkSize,
			ChunkOverlap: cfg.Index.ChunkOverlap,
		},
		Workers: cfg.Index.Workers,
	}, logger)

	srch := searcher.New(store, gateway, searcher.Config{
		MaxResults:          cfg.Search.MaxResults,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
	})

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    store,
		indexer:  idx,
		searcher: srch,
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(searchContextTool(), s.handleSearchContext)
	s.mcp.AddTool(fileContextTool(), s.handleFileContext)
	s.mcp.AddTool(statusTool(), s.handleStatus)
}
