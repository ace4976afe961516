package types

import "fmt"

// Rank is the fixed structural class of a heading, determined by the textual
// pattern it matches. Lower values are coarser: a Chapter contains Sections,
// a Section contains Articles, and so on down to SubItems.
type Rank int

const (
	RankNone      Rank = iota // body text, not a heading
	RankChapter               // 章: "第 一 章"
	RankSection               // 節: "第 二 節"
	RankArticle               // 條: "第 54 條", "第 46-1 條"
	RankParagraph             // 項: "1 "
	RankItem                  // 款: "四、"
	RankSubItem               // 目: "（二）"
)

// NumRanks is the number of heading ranks in the numbering convention.
const NumRanks = 6

var rankNames = [...]string{
	RankNone:      "none",
	RankChapter:   "chapter",
	RankSection:   "section",
	RankArticle:   "article",
	RankParagraph: "paragraph",
	RankItem:      "item",
	RankSubItem:   "subitem",
}

// String returns the lower-case English name of the rank
func (r Rank) String() string {
	if r < RankNone || int(r) >= len(rankNames) {
		return fmt.Sprintf("rank(%d)", int(r))
	}
	return rankNames[r]
}

// Valid reports whether r is one of the six heading ranks
func (r Rank) Valid() bool {
	return r >= RankChapter && r <= RankSubItem
}

// IsHeading reports whether r denotes a heading (any rank other than RankNone)
func (r Rank) IsHeading() bool {
	return r != RankNone
}

// FinerThan reports whether r nests more deeply than other by convention.
func (r Rank) FinerThan(other Rank) bool {
	return r > other
}

// CoarserThan reports whether r is an outer unit relative to other.
func (r Rank) CoarserThan(other Rank) bool {
	return r < other
}

// ParseRank converts a rank name back to a Rank
func ParseRank(name string) (Rank, error) {
	for i, n := range rankNames {
		if n == name {
			return Rank(i), nil
		}
	}
	return RankNone, fmt.Errorf("unknown rank %q", name)
}
