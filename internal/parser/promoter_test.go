package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/regtree/pkg/types"
)

func depths(lines []types.DepthLine) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.Depth
	}
	return out
}

func promoteText(t *testing.T, text string) ([]types.DepthLine, []types.Warning) {
	t.Helper()
	return Promote(NewClassifier().ClassifyLines(text))
}

func TestPromote_ChapterArticleItemSubItem(t *testing.T) {
	lines, warnings := promoteText(t, "第 一 章 總則\n第 1 条 目的\n一、定義\n（一）說明\n第 二 章 罰則")

	assert.Empty(t, warnings)
	assert.Equal(t, []int{1, 2, 3, 4, 1}, depths(lines))
}

func TestPromote_ArticleOnlyDocument(t *testing.T) {
	lines, warnings := promoteText(t, "第 1 條 目的\n1 本法\n第 2 條 定義\n一、主管機關")

	assert.Empty(t, warnings)
	assert.Equal(t, []int{1, 2, 1, 2}, depths(lines))
}

func TestPromote_SkippedRankNestsOneLevel(t *testing.T) {
	// Article directly followed by an Item still nests only one level deeper.
	lines, _ := promoteText(t, "第 1 條 目的\n一、定義")
	assert.Equal(t, []int{1, 2}, depths(lines))
}

func TestPromote_EqualRankKeepsDepth(t *testing.T) {
	lines, _ := promoteText(t, "第 1 條 a\n一、b\n二、c\n三、d")
	assert.Equal(t, []int{1, 2, 2, 2}, depths(lines))
}

func TestPromote_BodyLinesDepthZero(t *testing.T) {
	lines, _ := promoteText(t, "前言\n第 1 條 目的\n本法之目的\n一、定義\n說明")
	assert.Equal(t, []int{0, 1, 0, 2, 0}, depths(lines))
}

func TestPromote_Underflow(t *testing.T) {
	lines, warnings := promoteText(t, "第 1 條 a\n一、b\n第 二 章 c\n一、d")

	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], types.ErrPromotionUnderflow)
	assert.Equal(t, 3, warnings[0].Line)
	assert.Equal(t, "第 二 章", warnings[0].Label)

	// Chapter recovers to depth 1; the item after it nests under it.
	assert.Equal(t, []int{1, 2, 1, 2}, depths(lines))
}

func TestPromote_DepthNeverExceedsRank(t *testing.T) {
	text := "第 一 章 a\n第 一 節 b\n第 1 條 c\n1 d\n一、e\n（一）f\n1 g\n（一）h\n第 二 節 i\n第 2 條 j"
	lines, _ := promoteText(t, text)

	for _, l := range lines {
		if l.IsHeading() {
			assert.LessOrEqual(t, l.Depth, int(l.Rank), l.Text)
			assert.GreaterOrEqual(t, l.Depth, 1, l.Text)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 4, 5, 2, 3}, depths(lines))
}

func TestPromoter_Next(t *testing.T) {
	p := NewPromoter()

	dl, w := p.Next(types.ClassifiedLine{Number: 1, Rank: types.RankArticle, Label: "第 1 條"})
	assert.Nil(t, w)
	assert.Equal(t, 1, dl.Depth)

	dl, w = p.Next(types.ClassifiedLine{Number: 2, Text: "body"})
	assert.Nil(t, w)
	assert.Equal(t, 0, dl.Depth)

	dl, w = p.Next(types.ClassifiedLine{Number: 3, Rank: types.RankSubItem, Label: "（一）"})
	assert.Nil(t, w)
	assert.Equal(t, 2, dl.Depth)
}
