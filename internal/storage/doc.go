// Package storage persists regulations and their entry forests.
//
// The storage layer manages:
//   - Regulation records (title, preamble, raw text)
//   - Entries with parent back-references and byte spans
//   - Ancestor and descendant queries over the parent links
//   - Literal and regular-expression content search
//
// Two backends implement Storage. SQLiteStorage is the persistent store and
// MemoryStorage keeps everything in process memory for tests and one-shot
// runs.
//
// # Database Schema
//
// Tables:
//   - regulations: one row per imported document, unique by title
//   - entries: one row per section, parent_id referencing entries(id)
//   - schema_version: applied migrations
//
// Deleting a regulation cascades to its entries. There is no other way to
// remove an entry: re-importing a document means deleting it first.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.regtree/regtree.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	reg := &storage.Regulation{Title: "職業安全衛生法", RawText: raw}
//	if err := db.CreateRegulation(ctx, reg); err != nil {
//	    return err
//	}
//
// # Transactions
//
// Imports write one document per transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.CreateRegulation(ctx, reg)
//	_ = tx.InsertEntry(ctx, entry)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Integrity
//
// InsertEntry refuses an entry unless RawText[SpanStart:SpanEnd] equals its
// content (types.ErrMalformedSpan) and its parent belongs to the same
// regulation at a smaller depth (types.ErrForestConsistency). Graph queries
// re-check the forest as they walk it and report any violation wrapped in
// types.ErrForestConsistency.
//
// # Graph Queries
//
// AncestorsOf returns the chain from the root down to the direct parent.
// DescendantsOf returns the whole subtree ordered by distance and then source
// position. The SQLite backend answers both with WITH RECURSIVE queries; the
// memory backend walks a github.com/dominikbraun/graph directed graph created
// with PreventCycles.
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags sqlite_cgo ./...
package storage
