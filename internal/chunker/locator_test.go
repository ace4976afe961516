package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/regtree/pkg/types"
)

func TestLocate_RoundTrip(t *testing.T) {
	raw := "前言\n第 1 條 為規範事項。\n一、主管機關\n第 2 條 罰則"
	result := extract(t, raw)
	loc := NewLocator(raw)

	for _, s := range result.Sections {
		span, err := loc.Locate(s.Content)
		require.NoError(t, err, s.Label)
		assert.Equal(t, s.Content, raw[span.Start:span.End])
		assert.NoError(t, Verify(raw, span, s.Content))
	}
	assert.Equal(t, len(raw), loc.Cursor())
}

func TestLocate_RepeatedContentResolvesInOrder(t *testing.T) {
	raw := "第 1 條 a\n一、同上\n第 2 條 b\n一、同上"
	loc := NewLocator(raw)

	var spans []types.Span
	for _, c := range []string{"第 1 條 a", "一、同上", "第 2 條 b", "一、同上"} {
		span, err := loc.Locate(c)
		require.NoError(t, err)
		spans = append(spans, span)
	}

	assert.Less(t, spans[1].Start, spans[3].Start)
	assert.Equal(t, len(raw), spans[3].End)
	for i := 1; i < len(spans); i++ {
		assert.GreaterOrEqual(t, spans[i].Start, spans[i-1].End)
	}
}

func TestLocate_MissKeepsCursor(t *testing.T) {
	raw := "第 1 條 a\n第 2 條 b"
	loc := NewLocator(raw)

	_, err := loc.Locate("第 1 條 a")
	require.NoError(t, err)
	cursor := loc.Cursor()

	_, err = loc.Locate("第 9 條 不存在")
	assert.ErrorIs(t, err, types.ErrMalformedSpan)
	assert.Equal(t, cursor, loc.Cursor())

	span, err := loc.Locate("第 2 條 b")
	require.NoError(t, err)
	assert.Equal(t, "第 2 條 b", raw[span.Start:span.End])
}

func TestLocate_DoesNotSearchBackwards(t *testing.T) {
	loc := NewLocator("第 1 條 a\n第 2 條 b")

	_, err := loc.Locate("第 2 條 b")
	require.NoError(t, err)

	_, err = loc.Locate("第 1 條 a")
	assert.ErrorIs(t, err, types.ErrMalformedSpan)
}

func TestLocate_EmptyContent(t *testing.T) {
	_, err := NewLocator("abc").Locate("")
	assert.ErrorIs(t, err, types.ErrMalformedSpan)
	assert.ErrorIs(t, err, types.ErrEmptyContent)
}

func TestVerify(t *testing.T) {
	raw := "第 1 條 a"

	assert.NoError(t, Verify(raw, types.Span{Start: 0, End: len(raw)}, raw))
	assert.ErrorIs(t, Verify(raw, types.Span{Start: 0, End: 3}, raw), types.ErrMalformedSpan)
	assert.ErrorIs(t, Verify(raw, types.Span{Start: 0, End: 100}, raw), types.ErrMalformedSpan)
}
