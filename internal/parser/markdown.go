package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/regtree/pkg/types"
)

// FormatMarkdown renders depth-annotated lines as the markdown staging
// format: each heading line is prefixed with one '#' per depth level and body
// lines are written verbatim.
func FormatMarkdown(lines []types.DepthLine) string {
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if l.IsHeading() && l.Depth > 0 {
			sb.WriteString(strings.Repeat("#", l.Depth))
			sb.WriteByte(' ')
			sb.WriteString(trimLeadingSpace(l.Text))
			continue
		}
		sb.WriteString(l.Text)
	}
	return sb.String()
}

// ParseMarkdown reads the staging format back into depth-annotated lines.
// Top-level ATX headings are located with goldmark; their level becomes the
// depth and the heading text is re-classified for rank and label.
func ParseMarkdown(src []byte, c *Classifier) ([]types.DepthLine, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	raw := string(src)
	starts := lineStarts(raw)

	headings := make(map[int]int) // line index -> level
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		idx := sort.Search(len(starts), func(i int) bool { return starts[i] > seg.Start }) - 1
		if !strings.HasPrefix(strings.TrimLeft(raw[starts[idx]:], " "), "#") {
			continue // setext heading
		}
		headings[idx] = h.Level
	}

	srcLines := SplitLines(raw)
	out := make([]types.DepthLine, len(srcLines))
	for i, l := range srcLines {
		cl := types.ClassifiedLine{Number: i + 1, Text: l}
		level, isHeading := headings[i]
		if !isHeading {
			out[i] = types.DepthLine{ClassifiedLine: cl}
			continue
		}

		cl.Text = strings.TrimSpace(strings.TrimLeft(strings.TrimLeft(l, " "), "#"))
		cl.Rank, cl.Label = c.Classify(cl.Text)
		if !cl.IsHeading() {
			return nil, fmt.Errorf("line %d: markdown heading %q has no recognizable rank", i+1, cl.Text)
		}
		out[i] = types.DepthLine{ClassifiedLine: cl, Depth: level}
	}

	return out, nil
}

// lineStarts returns the byte offset at which every line of s begins
func lineStarts(s string) []int {
	starts := []int{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
