package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/repoqa/repoqa/internal/index"
	"github.com/repoqa/repoqa/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotIndexed    = -32003 // No repository indexed yet
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleAskRepository handles the ask_repository tool invocation
func (s *Server) handleAskRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	maxSources := getIntDefault(args, "max_sources", types.DefaultMaxSources)
	if maxSources < 1 || maxSources > 20 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_sources must be between 1 and 20", map[string]interface{}{
			"param": "max_sources",
			"value": maxSources,
		})
	}

	resp, err := s.engine.Query(ctx, types.QueryRequest{
		Query:          queryText,
		SessionID:      getStringDefault(args, "session_id", ""),
		ConversationID: getStringDefault(args, "conversation_id", ""),
		MaxSources:     maxSources,
	})
	switch {
	case errors.Is(err, types.ErrNotIndexed):
		return nil, newMCPError(ErrorCodeNotIndexed, "no repository indexed; call index_repository first", nil)
	case errors.Is(err, types.ErrEmptyQuery):
		return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sources := make([]map[string]interface{}, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		sources = append(sources, map[string]interface{}{
			"file":       src.File,
			"line_start": src.LineStart,
			"line_end":   src.LineEnd,
			"score":      src.Score,
			"content":    src.Content,
		})
	}

	result := map[string]interface{}{
		"response":        resp.Response,
		"sources":         sources,
		"conversation_id": resp.ConversationID,
		"session_id":      resp.SessionID,
		"model":           resp.Model,
	}
	if resp.TokensUsed > 0 {
		result["tokens_used"] = resp.TokensUsed
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleIndexRepository handles the index_repository tool invocation
func (s *Server) handleIndexRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	repoURL, ok := args["repository_url"].(string)
	if !ok || repoURL == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "repository_url parameter is required", map[string]interface{}{
			"param":  "repository_url",
			"reason": "missing or empty",
		})
	}

	taskID, err := s.indexer.StartIndexing(ctx, index.Request{
		RepositoryURL: repoURL,
		Branch:        getStringDefault(args, "branch", ""),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start indexing", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"task_id": taskID,
		"status":  index.TaskPending,
		"message": "Indexing started; poll repository_status for progress",
	})), nil
}

// handleRepositoryStatus handles the repository_status tool invocation
func (s *Server) handleRepositoryStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.indexer.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":       stats.IsIndexed,
		"cache_entries": s.engine.CacheSize(),
	}
	if stats.IsIndexed {
		response["repository"] = map[string]interface{}{
			"name":         stats.RepositoryName,
			"file_count":   stats.FileCount,
			"total_size":   stats.TotalSizeBytes,
			"vector_count": stats.VectorCount,
		}
		if stats.LastUpdated != nil {
			response["last_updated"] = stats.LastUpdated.Format("2006-01-02T15:04:05Z07:00")
		}
	} else {
		response["message"] = "No repository indexed. Use index_repository to index one."
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

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
