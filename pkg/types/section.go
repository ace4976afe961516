package types

import "strings"

// Section is a contiguous structural block: one heading line together with
// all following body lines up to the next heading.
type Section struct {
	Rank    Rank
	Label   string // Literal heading prefix kept verbatim, e.g. "（二）"
	Content string // Normalized content: markers stripped, whitespace trimmed
	Depth   int
	Line    int // Source line of the heading
}

// Validate checks that the section can become a persisted entry
func (s *Section) Validate() error {
	if strings.TrimSpace(s.Content) == "" {
		return ErrEmptyContent
	}
	if !s.Rank.Valid() {
		return ErrInvalidRank
	}
	if s.Depth <= 0 {
		return ErrInvalidDepth
	}
	return nil
}

// Span is a half-open [Start, End) byte range over a regulation's raw text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Slice returns raw[Start:End], or false if the span does not fit raw
func (s Span) Slice(raw string) (string, bool) {
	if s.Start < 0 || s.End < s.Start || s.End > len(raw) {
		return "", false
	}
	return raw[s.Start:s.End], true
}
