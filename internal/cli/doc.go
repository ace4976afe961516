// Package cli implements the regtree command line: import, format, search,
// context, label, verify, export, serve (MCP on stdio), http and version.
package cli
