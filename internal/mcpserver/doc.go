// Package mcpserver exposes the query engine and the indexing service as an
// MCP (Model Context Protocol) stdio server, so editor agents can index a
// repository and ask questions about it through tool calls.
//
// # Tools
//
//   - ask_repository: answer a natural-language question about the indexed
//     repository. Accepts optional session_id / conversation_id to continue
//     a dialogue, and max_sources to bound the evidence set.
//
//   - index_repository: start a background indexing task for a repository
//     URL. Returns the task id; progress is polled with repository_status.
//
//   - repository_status: report the current index state plus the response
//     cache size.
//
// # Protocol notes
//
// The server speaks JSON-RPC over stdio. All logging goes to stderr so
// stdout stays a clean protocol channel. Errors carry MCP error codes; the
// not-indexed condition maps to ErrorCodeNotIndexed so clients can prompt
// the user to index first.
package mcpserver
