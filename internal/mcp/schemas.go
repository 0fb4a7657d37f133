package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexWorkspaceTool returns the tool definition for index_workspace
func indexWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_workspace",
		Description: "Index a workspace directory to make its documents searchable. Re-runnable: unchanged documents are skipped, removed documents are pruned.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the workspace root directory",
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Hybrid semantic + keyword search over indexed workspace documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"doc_types": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these document types",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"skill", "plan", "docs", "identity", "soul", "config", "code", "other"},
					},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum combined score (0.0-1.0); overrides the configured default",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// workspaceStatusTool returns the tool definition for workspace_status
func workspaceStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "workspace_status",
		Description: "Report index size, embedding dimension, and build configuration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
