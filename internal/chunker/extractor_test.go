package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/regtree/internal/parser"
	"github.com/dshills/regtree/pkg/types"
)

func extract(t *testing.T, text string) *Result {
	t.Helper()
	lines, _ := parser.Promote(parser.NewClassifier().ClassifyLines(text))
	return Extract(lines)
}

func TestExtract_SectionsAndBody(t *testing.T) {
	result := extract(t, "第 一 章 總則\n第 1 條 為規範事項。\n本法未規定者，適用其他法律。\n\n一、主管機關")

	require.Len(t, result.Sections, 3)
	assert.Empty(t, result.Preamble)

	ch := result.Sections[0]
	assert.Equal(t, types.RankChapter, ch.Rank)
	assert.Equal(t, "第 一 章", ch.Label)
	assert.Equal(t, "第 一 章 總則", ch.Content)
	assert.Equal(t, 1, ch.Depth)
	assert.Equal(t, 1, ch.Line)

	art := result.Sections[1]
	assert.Equal(t, "第 1 條 為規範事項。\n本法未規定者，適用其他法律。", art.Content)
	assert.Equal(t, 2, art.Depth)

	item := result.Sections[2]
	assert.Equal(t, "一、", item.Label)
	assert.Equal(t, 3, item.Depth)
	assert.Equal(t, 5, item.Line)
}

func TestExtract_Preamble(t *testing.T) {
	result := extract(t, "  中華民國九十年公布\n修正日期\n第 1 條 目的")

	assert.Equal(t, "中華民國九十年公布\n修正日期", result.Preamble)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "第 1 條 目的", result.Sections[0].Content)
}

func TestExtract_NoHeadings(t *testing.T) {
	result := extract(t, "純文字\n沒有條文")

	assert.Empty(t, result.Sections)
	assert.Equal(t, "純文字\n沒有條文", result.Preamble)
}

func TestExtract_Empty(t *testing.T) {
	result := Extract(nil)
	assert.NotNil(t, result.Sections)
	assert.Empty(t, result.Sections)
	assert.Empty(t, result.Preamble)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"plain", []string{"第 1 條 a", "b"}, "第 1 條 a\nb"},
		{"trailing blanks", []string{"一、a", "", "  "}, "一、a"},
		{"markdown marker", []string{"### 一、a", "b"}, "一、a\nb"},
		{"ideographic indent", []string{"　　（一）a"}, "（一）a"},
		{"indented marker", []string{"\u3000## 第\u30001\u3000條 a"}, "第\u30001\u3000條 a"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.lines))
		})
	}
}
