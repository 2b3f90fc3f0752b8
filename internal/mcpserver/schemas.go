package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// askRepositoryTool returns the tool definition for ask_repository
func askRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_repository",
		Description: "Ask a natural-language question about the indexed repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to continue; omit to start a new session",
				},
				"conversation_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation to continue; omit to start a new conversation",
				},
				"max_sources": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of source excerpts to retrieve (1-20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
			},
			Required: []string{"query"},
		},
	}
}

// indexRepositoryTool returns the tool definition for index_repository
func indexRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_repository",
		Description: "Start background indexing of a repository so it can be queried",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"repository_url": map[string]interface{}{
					"type":        "string",
					"description": "Clone URL of the repository to index",
				},
				"branch": map[string]interface{}{
					"type":        "string",
					"description": "Branch to index (default branch when omitted)",
				},
			},
			Required: []string{"repository_url"},
		},
	}
}

// repositoryStatusTool returns the tool definition for repository_status
func repositoryStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "repository_status",
		Description: "Report the current index state and response cache size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
