package main

import (
	"github.com/spf13/cobra"

	"github.com/repoqa/repoqa/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP stdio server",
	Long: `Speaks the Model Context Protocol over stdio, exposing
ask_repository, index_repository, and repository_status tools. All logging
goes to stderr so stdout stays a clean protocol channel.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return mcpserver.NewServer(a.engine, a.indexer).Serve(cmd.Context())
}
