package chunker

import (
	"strings"
	"unicode"

	"github.com/dshills/regtree/pkg/types"
)

// Result holds the output of section extraction for one document
type Result struct {
	// Preamble is the normalized body text that precedes the first heading
	Preamble string

	// Sections in source order
	Sections []types.Section
}

// Extract groups depth-annotated lines into sections. Each section starts at
// a heading line and runs through the body lines that follow it, stopping at
// the next heading of any rank.
func Extract(lines []types.DepthLine) *Result {
	result := &Result{Sections: make([]types.Section, 0)}

	var preamble []string
	var current *types.Section
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Content = Normalize(body)
		result.Sections = append(result.Sections, *current)
	}

	for _, l := range lines {
		if !l.IsHeading() {
			if current == nil {
				preamble = append(preamble, l.Text)
			} else {
				body = append(body, l.Text)
			}
			continue
		}

		flush()
		current = &types.Section{
			Rank:  l.Rank,
			Label: l.Label,
			Depth: l.Depth,
			Line:  l.Number,
		}
		body = []string{l.Text}
	}
	flush()

	result.Preamble = Normalize(preamble)
	return result
}

// Normalize joins section lines and trims surrounding whitespace. Markdown
// heading markers on the first line are removed so staged text normalizes
// to the same content as plain text.
func Normalize(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	first := strings.TrimLeftFunc(lines[0], unicode.IsSpace)
	if strings.HasPrefix(first, "#") {
		first = strings.TrimLeft(first, "#")
		lines = append([]string{first}, lines[1:]...)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
