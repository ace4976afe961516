// Package indexer imports regulation text into a storage.Storage.
//
// The pipeline runs the pure stages first and touches the store last:
//
//  1. Classify: every line gets a hierarchy rank and label (parser.Classifier)
//  2. Promote: heading ranks become depths (parser.Promote)
//  3. Extract: lines are grouped into sections (chunker.Extract)
//  4. Locate: each section gets its byte span in the raw text (chunker.Locator)
//  5. Build: sections are linked into a forest (tree.Build)
//  6. Store: regulation and entries are written in one transaction
//
// # Basic Usage
//
//	idx := indexer.New(store, logger)
//
//	result, err := idx.ImportRegulation(ctx, "勞動基準法", raw)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%d entries, %d warnings\n", result.Entries, len(result.Warnings))
//
// # Skip and Re-import
//
// A document whose title is already stored is skipped and Result.Skipped is
// set. Reimport deletes the stored regulation and its entries and imports the
// new text in the same transaction, so readers never see a half-replaced
// regulation.
//
// # Warnings
//
// Promotion underflows and sections whose span cannot be found are not
// fatal. They are returned as types.Warning values and logged at WARN. A
// section with a malformed span is not stored; its children are attached to
// the nearest stored ancestor instead.
//
// # Directory Imports
//
//	stats, err := idx.ImportDirectory(ctx, "staging", &indexer.Config{
//	    Workers:  4,
//	    Patterns: []string{"*.txt", "*.md"},
//	})
//
// The file stem is the regulation title. Files ending in .md are read in the
// markdown staging format, where the heading level is the depth. Failed files
// are counted in Statistics.FilesFailed and listed in ErrorMessages; the rest
// of the batch continues. Only one directory import runs per Indexer at a
// time; a second call returns ErrImportInProgress.
//
// # Verification
//
// VerifySpans re-checks that every stored entry's content equals the slice of
// the regulation's raw text at its span.
package indexer
