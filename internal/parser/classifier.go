package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dshills/regtree/pkg/types"
)

// Heading separators and numbers may be full-width: U+3000 and U+00A0 count
// as spaces and "１" as a digit.
const (
	space = `[\s\p{Z}]`
	digit = `\p{Nd}`
)

// trimLeadingSpace removes any leading Unicode whitespace
func trimLeadingSpace(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}

// rankPattern binds one heading rank to the patterns that identify it
type rankPattern struct {
	rank     types.Rank
	patterns []*regexp.Regexp
}

// Classifier assigns a heading rank to individual lines of regulation text.
// A Classifier is immutable once built and is safe for concurrent use.
type Classifier struct {
	table []rankPattern
}

// NewClassifier compiles the fixed six-rank pattern table. Entries are
// ordered coarsest to finest and the first match wins.
func NewClassifier() *Classifier {
	return &Classifier{
		table: []rankPattern{
			{types.RankChapter, []*regexp.Regexp{
				regexp.MustCompile(`^第` + space + `[零一二三四五六七八九十百]+` + space + `章(?:` + space + `|$)`),
			}},
			{types.RankSection, []*regexp.Regexp{
				regexp.MustCompile(`^第` + space + `[零一二三四五六七八九十百]+` + space + `節(?:` + space + `|$)`),
			}},
			{types.RankArticle, []*regexp.Regexp{
				regexp.MustCompile(`^第` + space + digit + `+` + space + `[條条]`),
				regexp.MustCompile(`^第` + space + digit + `+-` + digit + `+` + space + `[條条]`),
			}},
			{types.RankParagraph, []*regexp.Regexp{
				regexp.MustCompile(`^` + digit + `+` + space),
			}},
			{types.RankItem, []*regexp.Regexp{
				regexp.MustCompile(`^[零一二三四五六七八九十]+、`),
			}},
			{types.RankSubItem, []*regexp.Regexp{
				regexp.MustCompile(`^（[零一二三四五六七八九十]+）`),
			}},
		},
	}
}

// Classify returns the rank of a single line and the literal heading prefix
// it matched. Body lines return types.RankNone and an empty label.
func (c *Classifier) Classify(line string) (types.Rank, string) {
	trimmed := trimLeadingSpace(line)
	for _, rp := range c.table {
		for _, re := range rp.patterns {
			if m := re.FindString(trimmed); m != "" {
				return rp.rank, strings.TrimSpace(m)
			}
		}
	}
	return types.RankNone, ""
}

// ClassifyStrict is like Classify but evaluates every pattern and reports
// types.ErrClassificationAmbiguity when more than one rank matches.
func (c *Classifier) ClassifyStrict(line string) (types.Rank, string, error) {
	trimmed := trimLeadingSpace(line)

	var matched []types.Rank
	rank, label := types.RankNone, ""
	for _, rp := range c.table {
		for _, re := range rp.patterns {
			m := re.FindString(trimmed)
			if m == "" {
				continue
			}
			if len(matched) == 0 {
				rank, label = rp.rank, strings.TrimSpace(m)
			}
			if len(matched) == 0 || matched[len(matched)-1] != rp.rank {
				matched = append(matched, rp.rank)
			}
		}
	}

	if len(matched) > 1 {
		return rank, label, fmt.Errorf("%w: %q matches %v", types.ErrClassificationAmbiguity, line, matched)
	}
	return rank, label, nil
}

// ClassifyLines splits text into lines and classifies each one.
// Both LF and CRLF line endings are accepted.
func (c *Classifier) ClassifyLines(text string) []types.ClassifiedLine {
	raw := SplitLines(text)
	lines := make([]types.ClassifiedLine, len(raw))
	for i, l := range raw {
		rank, label := c.Classify(l)
		lines[i] = types.ClassifiedLine{
			Number: i + 1,
			Text:   l,
			Rank:   rank,
			Label:  label,
		}
	}
	return lines
}

// SplitLines splits text on LF and drops a trailing CR from every line
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
