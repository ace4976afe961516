// Package mcp exposes the regulation store as Model Context Protocol tools
// over stdio.
//
// # Tools
//
//   - import_regulations: import a file or a directory of regulation text
//   - search_regulations: literal or regex search with context and dedup
//   - get_entry_context: an entry with its ancestors and subtree
//   - get_hierarchy: the unit label path of an entry
//   - set_entry_label: attach a curation label to an entry
//   - get_status: store statistics and health
//
// Every tool answers with an indented JSON document in a single text
// content block. Failures are returned as *MCPError values carrying a
// JSON-RPC style code:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  regulation or entry not found
//	-32002  an import is already running
//	-32003  stored parent links are corrupt
//	-32004  empty query
//
// # Logging
//
// Stdout carries the protocol, so all logging goes to the slog.Logger passed
// to NewServer, which the command wires to stderr.
package mcp
