package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/repoqa/repoqa/internal/index"
	"github.com/repoqa/repoqa/internal/query"
)

const (
	// ServerName is the MCP server name
	ServerName = "repoqa"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	engine  *query.Engine
	indexer *index.Service
}

// NewServer creates an MCP server over an already-wired engine and indexing
// service. The caller owns both collaborators' lifecycles.
func NewServer(engine *query.Engine, indexer *index.Service) *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		engine:  engine,
		indexer: indexer,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(askRepositoryTool(), s.handleAskRepository)
	s.mcp.AddTool(indexRepositoryTool(), s.handleIndexRepository)
	s.mcp.AddTool(repositoryStatusTool(), s.handleRepositoryStatus)
}
