package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// importRegulationsTool returns the tool definition for import_regulations
func importRegulationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "import_regulations",
		Description: "Import regulation text files into the hierarchy store. The file name without extension is the regulation title.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a regulation file or a directory of files",
				},
				"patterns": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for file names when path is a directory",
					"items": map[string]interface{}{
						"type": "string",
					},
					"default": []string{"*.txt"},
				},
				"reimport": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, replace regulations that are already stored instead of skipping them",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchRegulationsTool returns the tool definition for search_regulations
func searchRegulationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_regulations",
		Description: "Search stored regulation entries by literal text or regular expression",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text to find, or a Go regular expression in regex mode",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "literal (substring match) or regex",
					"enum":        []string{"literal", "regex"},
					"default":     "literal",
				},
				"regulation": map[string]interface{}{
					"type":        "string",
					"description": "Restrict the search to one regulation title",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-200)",
					"default":     20,
					"minimum":     1,
					"maximum":     200,
				},
				"with_context": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, prefix every match with the content of its chapter, article and other ancestors",
					"default":     true,
				},
				"deduplicate": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, drop matches whose text is contained in another match",
					"default":     true,
				},
			},
			Required: []string{"query"},
		},
	}
}

// entryIDSchema is the shared entry_id parameter
func entryIDSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Entry id as returned by search_regulations",
		"minimum":     1,
	}
}

// getEntryContextTool returns the tool definition for get_entry_context
func getEntryContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_entry_context",
		Description: "Get an entry with its ancestors (root first) and its whole subtree",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry_id": entryIDSchema(),
			},
			Required: []string{"entry_id"},
		},
	}
}

// getHierarchyTool returns the tool definition for get_hierarchy
func getHierarchyTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_hierarchy",
		Description: "Get the unit label path of an entry, e.g. \"第 一 章, 第 1 條, 一、\"",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry_id": entryIDSchema(),
			},
			Required: []string{"entry_id"},
		},
	}
}

// setEntryLabelTool returns the tool definition for set_entry_label
func setEntryLabelTool() mcp.Tool {
	return mcp.Tool{
		Name:        "set_entry_label",
		Description: "Attach a curation label to an entry. An empty label clears it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry_id": entryIDSchema(),
				"label": map[string]interface{}{
					"type":        "string",
					"description": "Label text",
				},
			},
			Required: []string{"entry_id", "label"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query store statistics: regulation and entry counts, schema version and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
