// Package types provides shared type definitions for regtree.
//
// This package defines the domain types that flow through the import
// pipeline: classified lines, depth-annotated lines, sections and spans,
// together with the domain errors and per-document warnings.
//
// # Ranks and Depths
//
// A Rank is the fixed class of a heading derived from its numbering pattern:
//
//	第 一 章    RankChapter
//	第 二 節    RankSection
//	第 54 條    RankArticle
//	1           RankParagraph
//	四、        RankItem
//	（二）      RankSubItem
//
// Depth is a separate integer space assigned by context. A regulation that has
// no chapters starts its articles at depth 1, so code must never compare a
// rank with a depth:
//
//	line := types.DepthLine{
//	    ClassifiedLine: types.ClassifiedLine{Rank: types.RankArticle, Label: "第 3 條"},
//	    Depth:          1,
//	}
//
// # Spans
//
// Span offsets are byte offsets into the raw regulation text. For every stored
// entry the round-trip property holds:
//
//	content, ok := span.Slice(raw)
//	// ok && content == entry.Content
//
// # Errors
//
// Domain errors are sentinels and are matched with errors.Is. Recoverable
// problems found during an import are reported as Warning values so the
// document can still be committed.
package types
