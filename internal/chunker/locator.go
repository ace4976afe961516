package chunker

import (
	"fmt"
	"strings"

	"github.com/dshills/regtree/pkg/types"
)

// Locator finds the byte span of successive section contents in raw text.
//
// The search is monotonic: each lookup starts where the previous successful
// span ended, so a phrase repeated across articles resolves to the occurrence
// that belongs to the current section. A Locator is used by one document
// import at a time.
type Locator struct {
	raw    string
	cursor int
}

// NewLocator creates a Locator positioned at the start of raw
func NewLocator(raw string) *Locator {
	return &Locator{raw: raw}
}

// Locate returns the span of content at or after the cursor. On a miss the
// error wraps types.ErrMalformedSpan and the cursor does not move.
func (l *Locator) Locate(content string) (types.Span, error) {
	if content == "" {
		return types.Span{}, fmt.Errorf("%w: %w", types.ErrMalformedSpan, types.ErrEmptyContent)
	}

	idx := strings.Index(l.raw[l.cursor:], content)
	if idx < 0 {
		return types.Span{}, fmt.Errorf("%w: content %q not found after offset %d",
			types.ErrMalformedSpan, preview(content), l.cursor)
	}

	span := types.Span{Start: l.cursor + idx, End: l.cursor + idx + len(content)}
	l.cursor = span.End
	return span, nil
}

// Cursor returns the offset the next search starts from
func (l *Locator) Cursor() int {
	return l.cursor
}

// Verify checks that raw[span] is exactly content
func Verify(raw string, span types.Span, content string) error {
	got, ok := span.Slice(raw)
	if !ok {
		return fmt.Errorf("%w: span [%d,%d) outside text of length %d",
			types.ErrMalformedSpan, span.Start, span.End, len(raw))
	}
	if got != content {
		return fmt.Errorf("%w: span [%d,%d) holds %q, want %q",
			types.ErrMalformedSpan, span.Start, span.End, preview(got), preview(content))
	}
	return nil
}

// preview shortens content for error messages
func preview(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
