package indexer

import (
	"fmt"
	"strings"

	"github.com/dshills/regtree/internal/chunker"
	"github.com/dshills/regtree/internal/parser"
	"github.com/dshills/regtree/internal/tree"
	"github.com/dshills/regtree/pkg/types"
)

// ParsedDocument is a regulation after the pure pipeline stages:
// classification, promotion, extraction, span location and tree building.
// Nothing has been written to storage yet.
type ParsedDocument struct {
	Title    string
	RawText  string
	Preamble string
	Forest   *tree.Forest
	Spans    []types.Span // indexed like Forest.Nodes
	Rejected []bool       // sections that failed validation or span location
	Warnings []types.Warning
}

// Accepted returns the number of sections that can be stored
func (d *ParsedDocument) Accepted() int {
	n := 0
	for _, r := range d.Rejected {
		if !r {
			n++
		}
	}
	return n
}

// normalizeNewlines converts CRLF and CR line endings to LF so section
// content, which is joined with LF, is a literal substring of the raw text
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ParseDocument runs the pure pipeline over plain regulation text
func (idx *Indexer) ParseDocument(title, raw string) (*ParsedDocument, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("document title cannot be empty")
	}
	raw = normalizeNewlines(raw)

	lines, warnings := parser.Promote(idx.classifier.ClassifyLines(raw))
	return buildDocument(title, raw, lines, warnings)
}

// ParseMarkdownDocument runs the pipeline over the markdown staging format.
// Heading levels in the file are taken as depths and the raw text stored for
// the regulation is the file with heading markers removed.
func (idx *Indexer) ParseMarkdownDocument(title string, src []byte) (*ParsedDocument, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("document title cannot be empty")
	}

	lines, err := parser.ParseMarkdown([]byte(normalizeNewlines(string(src))), idx.classifier)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	text := make([]string, len(lines))
	for i, l := range lines {
		text[i] = l.Text
	}
	return buildDocument(title, strings.Join(text, "\n"), lines, nil)
}

func buildDocument(title, raw string, lines []types.DepthLine, warnings []types.Warning) (*ParsedDocument, error) {
	extracted := chunker.Extract(lines)

	forest := tree.Build(extracted.Sections)
	if err := forest.Validate(); err != nil {
		return nil, err
	}

	doc := &ParsedDocument{
		Title:    title,
		RawText:  raw,
		Preamble: extracted.Preamble,
		Forest:   forest,
		Spans:    make([]types.Span, forest.Len()),
		Rejected: make([]bool, forest.Len()),
		Warnings: warnings,
	}

	loc := chunker.NewLocator(raw)
	for i, node := range forest.Nodes {
		if err := node.Section.Validate(); err != nil {
			doc.Rejected[i] = true
			doc.Warnings = append(doc.Warnings, types.Warning{
				Line:  node.Section.Line,
				Label: node.Section.Label,
				Err:   err,
			})
			continue
		}

		span, err := loc.Locate(node.Section.Content)
		if err != nil {
			doc.Rejected[i] = true
			doc.Warnings = append(doc.Warnings, types.Warning{
				Line:  node.Section.Line,
				Label: node.Section.Label,
				Err:   err,
			})
			continue
		}
		doc.Spans[i] = span
	}

	return doc, nil
}
