// Command repoqa answers natural-language questions about an indexed code
// repository. It runs as an HTTP service (serve), a one-shot indexer
// (index), or an MCP stdio server (mcp).
package main

func main() {
	Execute()
}
