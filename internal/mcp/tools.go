package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/regtree/internal/indexer"
	"github.com/dshills/regtree/internal/searcher"
	"github.com/dshills/regtree/internal/storage"
	"github.com/dshills/regtree/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams       = -32602 // Invalid method parameters
	ErrorCodeInternalError       = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound            = -32001 // Regulation or entry does not exist
	ErrorCodeImportInProgress    = -32002 // Another import is already running
	ErrorCodeForestInconsistency = -32003 // Stored parent links are corrupt
	ErrorCodeEmptyQuery          = -32004 // Query parameter is empty
)

// maxReportedErrors caps the per-file error list in import responses
const maxReportedErrors = 5

// handleImportRegulations handles the import_regulations tool invocation
func (s *Server) handleImportRegulations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	info, err := validatePath(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	reimport := getBoolDefault(args, "reimport", false)
	defer s.searcher.Purge()

	if !info.IsDir() {
		result, err := s.indexer.ImportFile(ctx, path, reimport)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "import failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"files_imported":  boolToInt(!result.Skipped),
			"files_skipped":   boolToInt(result.Skipped),
			"entries_created": result.Entries,
			"regulations":     []map[string]interface{}{resultJSON(result)},
		})), nil
	}

	stats, err := s.indexer.ImportDirectory(ctx, path, &indexer.Config{
		Patterns: getStringSlice(args, "patterns"),
		Replace:  reimport,
	})
	if errors.Is(err, indexer.ErrImportInProgress) {
		return nil, newMCPError(ErrorCodeImportInProgress, "an import is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "import failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	regulations := make([]map[string]interface{}, 0, len(stats.Results))
	for _, r := range stats.Results {
		regulations = append(regulations, resultJSON(r))
	}

	response := map[string]interface{}{
		"run_id":          stats.RunID,
		"files_imported":  stats.FilesImported,
		"files_skipped":   stats.FilesSkipped,
		"files_failed":    stats.FilesFailed,
		"entries_created": stats.EntriesCreated,
		"warnings":        stats.Warnings,
		"duration_ms":     stats.Duration.Milliseconds(),
		"regulations":     regulations,
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchRegulations handles the search_regulations tool invocation
func (s *Server) handleSearchRegulations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := storage.SearchMode(getStringDefault(args, "mode", string(storage.SearchLiteral)))
	if mode != storage.SearchLiteral && mode != storage.SearchRegex {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{string(storage.SearchLiteral), string(storage.SearchRegex)},
		})
	}

	req := searcher.Request{
		Query:       query,
		Mode:        mode,
		Limit:       limit,
		WithContext: getBoolDefault(args, "with_context", true),
		Deduplicate: getBoolDefault(args, "deduplicate", true),
		UseCache:    true,
	}

	if title := getStringDefault(args, "regulation", ""); title != "" {
		reg, err := s.storage.GetRegulationByTitle(ctx, title)
		if err != nil {
			return nil, storageError(err, "regulation not found", map[string]interface{}{"regulation": title})
		}
		req.RegulationID = reg.ID
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, m := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":          m.Rank,
			"entry_id":      m.Entry.ID,
			"regulation_id": m.Entry.RegulationID,
			"unit_label":    m.Entry.UnitLabel,
			"hierarchy":     m.Breadcrumb,
			"text":          m.Text,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":         query,
		"mode":          resp.Mode,
		"total_results": resp.TotalResults,
		"duplicates":    resp.Duplicates,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	})), nil
}

// handleGetEntryContext handles the get_entry_context tool invocation
func (s *Server) handleGetEntryContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := entryIDParam(request)
	if err != nil {
		return nil, err
	}

	c, err := s.assembler.Context(ctx, id)
	if err != nil {
		return nil, storageError(err, "failed to assemble context", map[string]interface{}{"entry_id": id})
	}

	ancestors := make([]map[string]interface{}, 0, len(c.Ancestors))
	for _, a := range c.Ancestors {
		ancestors = append(ancestors, entryJSON(a))
	}

	descendants := make([]map[string]interface{}, 0, len(c.Descendants))
	for _, d := range c.Descendants {
		e := entryJSON(d.Entry)
		e["distance"] = d.Distance
		descendants = append(descendants, e)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entry":       entryJSON(c.Entry),
		"hierarchy":   c.Breadcrumb(),
		"content":     c.Content(),
		"ancestors":   ancestors,
		"descendants": descendants,
	})), nil
}

// handleGetHierarchy handles the get_hierarchy tool invocation
func (s *Server) handleGetHierarchy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := entryIDParam(request)
	if err != nil {
		return nil, err
	}

	crumbs, err := s.assembler.ConcatenateUnitLabels(ctx, id)
	if err != nil {
		return nil, storageError(err, "failed to build hierarchy", map[string]interface{}{"entry_id": id})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entry_id":  id,
		"hierarchy": crumbs,
	})), nil
}

// handleSetEntryLabel handles the set_entry_label tool invocation
func (s *Server) handleSetEntryLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := entryIDParam(request)
	if err != nil {
		return nil, err
	}

	args, _ := request.Params.Arguments.(map[string]interface{})
	label, ok := args["label"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "label parameter is required", map[string]interface{}{
			"param":  "label",
			"reason": "missing",
		})
	}

	if err := s.storage.SetEntryLabel(ctx, id, label); err != nil {
		return nil, storageError(err, "failed to set label", map[string]interface{}{"entry_id": id})
	}
	s.searcher.Purge()
	s.logger.Info("entry label set", "entry_id", id, "label", label)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entry_id": id,
		"label":    label,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"backend":        status.Backend,
		"schema_version": status.SchemaVersion,
		"statistics": map[string]interface{}{
			"regulations":   status.Regulations,
			"entries":       status.Entries,
			"root_entries":  status.RootCount,
			"labeled":       status.LabeledCount,
			"store_size_mb": fmt.Sprintf("%.2f", status.SizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"foreign_keys_enabled": status.Health.ForeignKeysEnabled,
		},
		"import_running": s.indexer.Importing(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
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

// storageError maps store and assembler errors to MCP error codes
func storageError(err error, message string, data map[string]interface{}) error {
	data["error"] = err.Error()
	switch {
	case errors.Is(err, types.ErrForestConsistency) && errors.Is(err, storage.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, message, data)
	case errors.Is(err, types.ErrForestConsistency):
		return newMCPError(ErrorCodeForestInconsistency, message, data)
	case errors.Is(err, storage.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// entryIDParam extracts and validates the entry_id parameter
func entryIDParam(request mcp.CallToolRequest) (int64, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return 0, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := getIntDefault(args, "entry_id", 0)
	if id < 1 {
		return 0, newMCPError(ErrorCodeInvalidParams, "entry_id parameter is required", map[string]interface{}{
			"param":  "entry_id",
			"reason": "missing or not a positive integer",
		})
	}
	return int64(id), nil
}

// validatePath checks that path is absolute and readable
func validatePath(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return nil, ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, ErrPathNotReadable
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ErrPathNotReadable
	}
	_ = f.Close()

	return info, nil
}

func resultJSON(r *indexer.Result) map[string]interface{} {
	warnings := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, w.Error())
	}
	return map[string]interface{}{
		"title":         r.Title,
		"regulation_id": r.RegulationID,
		"skipped":       r.Skipped,
		"entries":       r.Entries,
		"rejected":      r.Rejected,
		"warnings":      warnings,
	}
}

func entryJSON(e *storage.Entry) map[string]interface{} {
	out := map[string]interface{}{
		"id":            e.ID,
		"regulation_id": e.RegulationID,
		"unit_label":    e.UnitLabel,
		"rank":          e.Rank.String(),
		"depth":         e.Depth,
		"content":       e.Content,
		"span":          []int{e.SpanStart, e.SpanEnd},
	}
	if e.ParentID != nil {
		out["parent_id"] = *e.ParentID
	}
	if e.Label != "" {
		out["label"] = e.Label
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
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

// getStringSlice extracts a string array parameter; non-string items are ignored
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
