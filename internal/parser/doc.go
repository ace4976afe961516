// Package parser classifies regulation text lines and resolves their nesting.
//
// Parsing happens in two pure stages. The Classifier matches every line
// against a fixed table of numbering patterns and assigns one of six heading
// ranks (or none for body text). The Promoter then walks the classified lines
// in order and converts ranks into contextual depths, so a document that
// starts at the Article level still gets depth 1 for its first article.
//
// # Basic Usage
//
//	c := parser.NewClassifier()
//	lines := c.ClassifyLines(raw)
//	depthLines, warnings := parser.Promote(lines)
//	for _, w := range warnings {
//	    log.Printf("promotion: %v", w)
//	}
//
// # Pattern Table
//
// Patterns are anchored at the start of the line after leading ASCII and
// ideographic spaces are removed, and are tested coarsest to finest:
//
//	Chapter    第 一 章
//	Section    第 二 節
//	Article    第 54 條, 第 46-1 條
//	Paragraph  1 (arabic numeral followed by whitespace)
//	Item       四、
//	SubItem    （二）
//
// The table is mutually exclusive; ClassifyStrict reports
// types.ErrClassificationAmbiguity if that ever stops being true.
//
// # Promotion
//
// A heading finer than the current one nests one level deeper. A coarser
// heading returns to the depth last recorded for its rank. If that rank was
// never seen, the line is recovered to depth 1 and a warning wrapping
// types.ErrPromotionUnderflow is returned. Body lines always have depth 0.
//
// # Markdown Staging Format
//
// FormatMarkdown writes headings as '#' repeated depth times, matching the
// staging files regulations are reviewed in before import. ParseMarkdown uses
// goldmark to read them back.
package parser
