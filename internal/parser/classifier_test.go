package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/regtree/pkg/types"
)

func TestNewClassifier(t *testing.T) {
	c := NewClassifier()
	require.NotNil(t, c)
	assert.Len(t, c.table, types.NumRanks)
}

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name      string
		line      string
		wantRank  types.Rank
		wantLabel string
	}{
		{"chapter", "第 一 章 總則", types.RankChapter, "第 一 章"},
		{"chapter hundreds", "第 一百 章 附則", types.RankChapter, "第 一百 章"},
		{"chapter end of line", "第 三 章", types.RankChapter, "第 三 章"},
		{"section", "第 二 節 組織", types.RankSection, "第 二 節"},
		{"article traditional", "第 54 條 本法自公布日施行。", types.RankArticle, "第 54 條"},
		{"article simplified", "第 1 条 目的", types.RankArticle, "第 1 条"},
		{"article hyphenated", "第 46-1 條 前條規定", types.RankArticle, "第 46-1 條"},
		{"paragraph", "1 主管機關應公告之。", types.RankParagraph, "1"},
		{"item", "四、其他事項。", types.RankItem, "四、"},
		{"subitem", "（二）申請書。", types.RankSubItem, "（二）"},
		{"leading ideographic space", "　　（一）依法辦理。", types.RankSubItem, "（一）"},
		{"leading ascii space", "  三、罰則", types.RankItem, "三、"},
		{"article ideographic spaces", "第\u300054\u3000條 安全帽", types.RankArticle, "第\u300054\u3000條"},
		{"article full-width digit", "第 １ 條 目的", types.RankArticle, "第 １ 條"},
		{"article full-width hyphenated", "第 ４６-１ 條 前條規定", types.RankArticle, "第 ４６-１ 條"},
		{"paragraph full-width digit", "１ 本法", types.RankParagraph, "１"},
		{"paragraph ideographic space", "2\u3000主管機關", types.RankParagraph, "2"},
		{"chapter no-break space", "第 一 章\u00a0總則", types.RankChapter, "第 一 章"},
		{"section ideographic spaces", "第\u3000二\u3000節\u3000組織", types.RankSection, "第\u3000二\u3000節"},
		{"body text", "本法所稱主管機關，為內政部。", types.RankNone, ""},
		{"empty", "", types.RankNone, ""},
		{"chapter without spaces", "第一章 總則", types.RankNone, ""},
		{"chapter word continues", "第 一 章程", types.RankNone, ""},
		{"arabic without space", "2024年施行", types.RankNone, ""},
		{"half-width parens", "(一) 說明", types.RankNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, label := c.Classify(tt.line)
			assert.Equal(t, tt.wantRank, rank)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestClassifyStrict_TableIsExclusive(t *testing.T) {
	c := NewClassifier()
	lines := []string{
		"第 一 章 總則",
		"第 二 節 組織",
		"第 54 條 本法",
		"第 46-1 條 前條",
		"第\u300054\u3000條 安全帽",
		"１ 本法",
		"1 主管機關",
		"四、其他",
		"（二）申請書",
		"本法所稱",
	}

	for _, l := range lines {
		rank, label, err := c.ClassifyStrict(l)
		require.NoError(t, err, l)
		wantRank, wantLabel := c.Classify(l)
		assert.Equal(t, wantRank, rank)
		assert.Equal(t, wantLabel, label)
	}
}

func TestClassifyStrict_Ambiguity(t *testing.T) {
	c := NewClassifier()
	c.table[types.RankItem-1].patterns = append(c.table[types.RankItem-1].patterns, c.table[types.RankParagraph-1].patterns...)

	rank, _, err := c.ClassifyStrict("1 主管機關")
	assert.ErrorIs(t, err, types.ErrClassificationAmbiguity)
	assert.Equal(t, types.RankParagraph, rank)
}

func TestClassifyLines(t *testing.T) {
	c := NewClassifier()
	lines := c.ClassifyLines("第 一 章 總則\r\n第 1 條 目的\r\n本法之目的")

	require.Len(t, lines, 3)
	assert.Equal(t, 1, lines[0].Number)
	assert.Equal(t, "第 一 章 總則", lines[0].Text)
	assert.Equal(t, types.RankChapter, lines[0].Rank)
	assert.Equal(t, types.RankArticle, lines[1].Rank)
	assert.False(t, lines[2].IsHeading())
	assert.Equal(t, 3, lines[2].Number)

	assert.Empty(t, c.ClassifyLines(""))
}
