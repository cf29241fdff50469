package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Index a project directory so its files become searchable. Incremental: unchanged files are skipped, deleted files are removed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root directory",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, drop all indexed state and re-embed every file (required when switching embedding models)",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchContextTool returns the tool definition for search_context
func searchContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_context",
		Description: "Search the indexed project with a natural language query and get the most relevant chunks with citations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"minimum":     1,
					"maximum":     100,
				},
				"similarity_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity for a result (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// fileContextTool returns the tool definition for file_context
func fileContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "file_context",
		Description: "Return every indexed chunk of one file, in document order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to the indexed project root",
				},
			},
			Required: []string{"path"},
		},
	}
}

// statusTool returns the tool definition for status
func statusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "status",
		Description: "Report index health: document, chunk and embedding counts, embedding model and last index time",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
