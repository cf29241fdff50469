package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/astra-rag/astra-context/internal/indexer"
	"github.com/astra-rag/astra-context/internal/searcher"
	"github.com/astra-rag/astra-context/internal/storage"
	"github.com/astra-rag/astra-context/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // No index run has completed yet
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateRoot(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	forceReindex, _ := args["force_reindex"].(bool)

	summary, err := s.indexer.Run(ctx, path, forceReindex)
	if err != nil {
		switch {
		case errors.Is(err, indexer.ErrIndexInProgress):
			return nil, newMCPError(ErrorCodeIndexingInProgress, "an index run is already in progress", nil)
		case errors.Is(err, types.ErrConfiguration):
			return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
		default:
			return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	response := map[string]interface{}{
		"run_id":      summary.RunID,
		"indexed":     summary.Indexed,
		"skipped":     summary.Skipped,
		"deleted":     summary.Deleted,
		"failed":      len(summary.Failed),
		"duration_ms": summary.Duration.Milliseconds(),
	}
	if len(summary.Failed) > 0 {
		failures := make([]map[string]interface{}, 0, len(summary.Failed))
		for i, f := range summary.Failed {
			if i >= 5 {
				break
			}
			failures = append(failures, map[string]interface{}{
				"path":   f.Path,
				"reason": f.Reason,
			})
		}
		response["failures"] = failures
		response["failure_count"] = len(summary.Failed)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchContext handles the search_context tool invocation
func (s *Server) handleSearchContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	maxResults := getIntDefault(args, "max_results", 0)
	if maxResults < 0 || maxResults > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_results must be between 1 and 100", map[string]interface{}{
			"param": "max_results",
			"value": maxResults,
		})
	}
	threshold := getFloatDefault(args, "similarity_threshold", -1)
	if threshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "similarity_threshold must be between 0.0 and 1.0", map[string]interface{}{
			"param": "similarity_threshold",
			"value": threshold,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:      query,
		MaxResults: maxResults,
		Threshold:  threshold,
		UseCache:   true,
	})
	if err != nil {
		if errors.Is(err, types.ErrTimeout) {
			return nil, newMCPError(ErrorCodeInternalError, "search timed out", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":       r.Rank,
			"score":      r.Score,
			"citation":   r.Citation,
			"path":       r.Path,
			"start_line": r.StartLine,
			"end_line":   r.EndLine,
			"symbol":     r.Symbol,
			"text":       r.Text,
		})
	}
	response := map[string]interface{}{
		"results":     results,
		"total":       len(results),
		"duration_ms": resp.Duration.Milliseconds(),
		"cache_hit":   resp.CacheHit,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFileContext handles the file_context tool invocation
func (s *Server) handleFileContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	chunks, err := s.searcher.FileContext(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed yet; run index_project first", map[string]interface{}{
				"path": path,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "file context lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	out := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, map[string]interface{}{
			"chunk_id":   c.ID,
			"ordinal":    c.Ordinal,
			"citation":   c.Citation(),
			"start_line": c.StartLine,
			"end_line":   c.EndLine,
			"symbol":     c.Symbol,
			"text":       c.Text,
		})
	}
	response := map[string]interface{}{
		"path":   path,
		"chunks": out,
		"total":  len(out),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStatus handles the status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.searcher.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"documents":       status.Documents,
		"chunks":          status.Chunks,
		"embeddings":      status.Embeddings,
		"embedding_model": status.EmbeddingModel,
		"dimension":       status.Dimension,
	}
	if !status.LastIndexedAt.IsZero() {
		response["last_indexed_at"] = status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00")
	} else {
		response["last_indexed_at"] = nil
		response["message"] = "No index run recorded yet. Use index_project to build the index."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateRoot checks that an index root exists, is absolute and is a
// readable directory.
func validateRoot(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
