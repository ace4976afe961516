package types

// ClassifiedLine is one line of source text with its heading classification.
type ClassifiedLine struct {
	Number int    // 1-based line number in the source text
	Text   string // Line text without the trailing newline
	Rank   Rank   // RankNone for body text
	Label  string // Matched heading prefix, e.g. "第 54 條"; empty for body text
}

// IsHeading returns true if the line was classified as a heading
func (l ClassifiedLine) IsHeading() bool {
	return l.Rank.IsHeading()
}

// DepthLine is a classified line with its resolved nesting depth.
//
// Depth is contextual and unrelated to the numeric value of Rank: a document
// whose outermost heading is an Article assigns that Article depth 1.
// Body lines carry depth 0.
type DepthLine struct {
	ClassifiedLine
	Depth int
}
