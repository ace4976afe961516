// Package assembler reconstructs the legal context of a stored entry.
//
// An entry on its own is rarely meaningful: "一、" only makes sense under the
// article and chapter that contain it. The assembler walks the persisted
// parent links to rebuild that context.
//
//	a := assembler.New(store)
//
//	text, _ := a.ConcatenateContent(ctx, id)     // chapter, article, item text
//	crumbs, _ := a.ConcatenateUnitLabels(ctx, id) // "第 一 章, 第 1 條, 一、"
//
// Every query reports a missing entry or a broken parent chain as
// types.ErrForestConsistency. These errors mean the stored data is corrupt
// and are never recovered.
package assembler
