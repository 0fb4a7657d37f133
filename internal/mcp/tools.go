package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harborai/docvector-mcp/internal/store"
	"github.com/harborai/docvector-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing run is already in flight
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexWorkspace handles the index_workspace tool invocation
func (s *Server) handleIndexWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	// Reject, don't queue: a second run against a half-updated index
	// has nothing useful to do.
	if !s.indexLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	defer s.indexLock.Release()

	stats, err := s.indexer.IndexWorkspace(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":          stats.Indexed,
		"skipped":          stats.Skipped,
		"failed":           stats.Failed,
		"total_discovered": stats.TotalDiscovered,
		"chunks_created":   stats.ChunksCreated,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	limit := getIntDefault(args, "limit", s.cfg.MaxResults)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	var filters types.SearchFilters
	if raw, ok := args["doc_types"].([]interface{}); ok {
		for _, v := range raw {
			if name, ok := v.(string); ok {
				filters.DocTypes = append(filters.DocTypes, types.ParseDocType(name))
			}
		}
	}
	if raw, ok := args["threshold"].(float64); ok {
		if raw < 0 || raw > 1 {
			return nil, newMCPError(ErrorCodeInvalidParams, "threshold must be between 0.0 and 1.0", map[string]interface{}{
				"param": "threshold",
				"value": raw,
			})
		}
		t := float32(raw)
		filters.Threshold = &t
	}

	results, err := s.searcher.Search(ctx, query, &filters, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if results == nil {
		results = []types.SearchResult{}
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	}, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode results", nil)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleWorkspaceStatus handles the workspace_status tool invocation
func (s *Server) handleWorkspaceStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"chunks_indexed":      count,
		"embedding_dimension": s.cfg.EmbeddingDim,
		"build_mode":          store.BuildMode,
		"sqlite_driver":       store.DriverName,
		"vector_extension":    store.VectorExtensionAvailable,
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

// validatePath checks that a path is an absolute, readable directory.
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
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

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
