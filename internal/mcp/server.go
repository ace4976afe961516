package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/regtree/internal/assembler"
	"github.com/dshills/regtree/internal/indexer"
	"github.com/dshills/regtree/internal/searcher"
	"github.com/dshills/regtree/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "regtree"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	indexer   *indexer.Indexer
	searcher  *searcher.Searcher
	assembler *assembler.Assembler
	logger    *slog.Logger
}

// NewServer creates a new MCP server over an open store. The server owns
// the store and closes it when Serve returns.
func NewServer(store storage.Storage, logger *slog.Logger, opts searcher.Options) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		storage:   store,
		indexer:   indexer.New(store, logger),
		searcher:  searcher.NewSearcher(store, opts),
		assembler: assembler.New(store),
		logger:    logger,
	}
	s.registerTools()

	return s
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin is
// closed. Protocol errors are logged through the server's logger because
// stdout carries the protocol.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("MCP server ready, listening on stdio", "name", ServerName, "version", ServerVersion)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(importRegulationsTool(), s.handleImportRegulations)
	s.mcp.AddTool(searchRegulationsTool(), s.handleSearchRegulations)
	s.mcp.AddTool(getEntryContextTool(), s.handleGetEntryContext)
	s.mcp.AddTool(getHierarchyTool(), s.handleGetHierarchy)
	s.mcp.AddTool(setEntryLabelTool(), s.handleSetEntryLabel)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
