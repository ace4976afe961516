package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/regtree/internal/chunker"
	"github.com/dshills/regtree/internal/parser"
	"github.com/dshills/regtree/internal/storage"
	"github.com/dshills/regtree/internal/tree"
	"github.com/dshills/regtree/pkg/types"
)

// ErrImportInProgress is returned when a directory import is already running
var ErrImportInProgress = errors.New("import already in progress")

// DefaultPatterns selects plain text files. Add "*.md" to pick up markdown
// staging files.
var DefaultPatterns = []string{"*.txt"}

// Indexer coordinates the import pipeline: parse -> locate -> build -> store
type Indexer struct {
	classifier *parser.Classifier
	storage    storage.Storage
	logger     *slog.Logger
	lock       ImportLock

	// Worker pool configuration
	workers int
}

// Config contains configuration for a directory import
type Config struct {
	Workers  int      // Number of concurrent workers (default: runtime.NumCPU())
	Patterns []string // Glob patterns matched against file names (default: DefaultPatterns)
	Replace  bool     // Re-import regulations that already exist instead of skipping them

	// OnProgress is called after every file. Calls are serialized.
	OnProgress func(Progress)
}

// Progress tracks import progress
type Progress struct {
	TotalFiles    int32
	ImportedFiles int32
	SkippedFiles  int32
	FailedFiles   int32
	Entries       int32
	StartTime     time.Time
}

// Done returns the number of files processed so far
func (p Progress) Done() int32 {
	return p.ImportedFiles + p.SkippedFiles + p.FailedFiles
}

// Result describes the import of one document
type Result struct {
	Title        string
	RegulationID int64
	Skipped      bool // Title already existed
	Entries      int  // Entries written
	Rejected     int  // Sections dropped because of a malformed span
	Warnings     []types.Warning
}

// Statistics contains statistics about a directory import
type Statistics struct {
	RunID          string
	FilesImported  int
	FilesSkipped   int
	FilesFailed    int
	EntriesCreated int
	Warnings       int
	Duration       time.Duration
	ErrorMessages  []string
	Results        []*Result
}

// New creates a new Indexer instance. A nil logger discards log output.
func New(store storage.Storage, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Indexer{
		classifier: parser.NewClassifier(),
		storage:    store,
		logger:     logger,
		workers:    runtime.NumCPU(),
	}
}

// Importing reports whether a directory import is running
func (idx *Indexer) Importing() bool {
	return idx.lock.Held()
}

// ImportRegulation imports one plain text document. A document whose title
// already exists is skipped.
func (idx *Indexer) ImportRegulation(ctx context.Context, title, raw string) (*Result, error) {
	doc, err := idx.ParseDocument(title, raw)
	if err != nil {
		return nil, err
	}
	return idx.storeDocument(ctx, doc, false, idx.logger)
}

// Reimport replaces a stored document: the old regulation and all of its
// entries are deleted and the new text imported in the same transaction.
func (idx *Indexer) Reimport(ctx context.Context, title, raw string) (*Result, error) {
	doc, err := idx.ParseDocument(title, raw)
	if err != nil {
		return nil, err
	}
	return idx.storeDocument(ctx, doc, true, idx.logger)
}

// StoreDocument writes an already parsed document
func (idx *Indexer) StoreDocument(ctx context.Context, doc *ParsedDocument, replace bool) (*Result, error) {
	return idx.storeDocument(ctx, doc, replace, idx.logger)
}

// storeDocument writes one document in a single transaction. Entries are
// inserted in source order so every parent id is known before its children.
func (idx *Indexer) storeDocument(ctx context.Context, doc *ParsedDocument, replace bool, logger *slog.Logger) (*Result, error) {
	result := &Result{Title: doc.Title, Warnings: slices.Clone(doc.Warnings)}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := tx.GetRegulationByTitle(ctx, doc.Title)
	switch {
	case err == nil && !replace:
		result.Skipped = true
		result.RegulationID = existing.ID
		result.Warnings = nil
		logger.Info("regulation already imported", "regulation", doc.Title, "id", existing.ID)
		return result, nil
	case err == nil:
		if err := tx.DeleteRegulation(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete regulation: %w", err)
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	reg := &storage.Regulation{Title: doc.Title, Preamble: doc.Preamble, RawText: doc.RawText}
	if err := tx.CreateRegulation(ctx, reg); err != nil {
		return nil, err
	}
	result.RegulationID = reg.ID

	rejected := slices.Clone(doc.Rejected)
	ids := make([]int64, doc.Forest.Len())
	kept := func(i int) bool { return !rejected[i] }

	for i, node := range doc.Forest.Nodes {
		if rejected[i] {
			continue
		}

		entry := &storage.Entry{
			RegulationID: reg.ID,
			UnitLabel:    node.Section.Label,
			Rank:         node.Section.Rank,
			Content:      node.Section.Content,
			SpanStart:    doc.Spans[i].Start,
			SpanEnd:      doc.Spans[i].End,
			Depth:        node.Section.Depth,
			Position:     i,
		}
		if p := doc.Forest.NearestKept(i, kept); p != tree.NoParent {
			pid := ids[p]
			entry.ParentID = &pid
		}

		err := chunker.Verify(doc.RawText, doc.Spans[i], entry.Content)
		if err == nil {
			err = tx.InsertEntry(ctx, entry)
		}
		if errors.Is(err, types.ErrMalformedSpan) {
			rejected[i] = true
			result.Warnings = append(result.Warnings, types.Warning{
				Line: node.Section.Line, Label: node.Section.Label, Err: err,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s at line %d: %w", node.Section.Label, node.Section.Line, err)
		}
		ids[i] = entry.ID
		result.Entries++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, r := range rejected {
		if r {
			result.Rejected++
		}
	}
	for _, w := range result.Warnings {
		logger.Warn("import warning", "regulation", doc.Title, "line", w.Line, "label", w.Label, "error", w.Err)
	}
	logger.Info("regulation imported", "regulation", doc.Title, "id", reg.ID,
		"entries", result.Entries, "rejected", result.Rejected)

	return result, nil
}

// ImportDirectory imports every matching file under dir. The file stem is the
// regulation title. Files are parsed by a bounded worker pool; a failing
// document is recorded in the statistics and never aborts the batch.
func (idx *Indexer) ImportDirectory(ctx context.Context, dir string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer idx.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = idx.workers
	}
	patterns := config.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	startTime := time.Now()
	runID := uuid.NewString()
	logger := idx.logger.With("run_id", runID)

	files, err := discoverFiles(dir, patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	logger.Info("import started", "dir", dir, "files", len(files), "workers", workers)

	stats := &Statistics{
		RunID:         runID,
		ErrorMessages: make([]string, 0),
		Results:       make([]*Result, 0, len(files)),
	}

	// Track progress with atomic counters
	var imported, skipped, failed, entries, warnings int32
	var mu sync.Mutex // Protect stats.ErrorMessages, stats.Results and OnProgress

	report := func() {
		if config.OnProgress == nil {
			return
		}
		config.OnProgress(Progress{
			TotalFiles:    int32(len(files)),
			ImportedFiles: atomic.LoadInt32(&imported),
			SkippedFiles:  atomic.LoadInt32(&skipped),
			FailedFiles:   atomic.LoadInt32(&failed),
			Entries:       atomic.LoadInt32(&entries),
			StartTime:     startTime,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := idx.importFile(gctx, path, config.Replace, logger)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				atomic.AddInt32(&failed, 1)
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
				logger.Error("import failed", "file", path, "error", err)
			} else {
				if result.Skipped {
					atomic.AddInt32(&skipped, 1)
				} else {
					atomic.AddInt32(&imported, 1)
				}
				atomic.AddInt32(&entries, int32(result.Entries))
				atomic.AddInt32(&warnings, int32(len(result.Warnings)))
				stats.Results = append(stats.Results, result)
			}
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(stats.Results, func(a, b *Result) int { return strings.Compare(a.Title, b.Title) })
	slices.Sort(stats.ErrorMessages)

	stats.FilesImported = int(imported)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.EntriesCreated = int(entries)
	stats.Warnings = int(warnings)
	stats.Duration = time.Since(startTime)

	logger.Info("import finished", "imported", stats.FilesImported, "skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed, "entries", stats.EntriesCreated, "duration", stats.Duration)
	return stats, nil
}

// ImportFile reads, parses and stores one file. The file stem is the title;
// files ending in .md are read in the markdown staging format. With replace
// an existing regulation of the same title is re-imported.
func (idx *Indexer) ImportFile(ctx context.Context, path string, replace bool) (*Result, error) {
	return idx.importFile(ctx, path, replace, idx.logger)
}

func (idx *Indexer) importFile(ctx context.Context, path string, replace bool, logger *slog.Logger) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	title := Title(path)
	var doc *ParsedDocument
	if strings.EqualFold(filepath.Ext(path), ".md") {
		doc, err = idx.ParseMarkdownDocument(title, content)
	} else {
		doc, err = idx.ParseDocument(title, string(content))
	}
	if err != nil {
		return nil, err
	}

	return idx.storeDocument(ctx, doc, replace, logger.With("file", path))
}

// Title derives a regulation title from a file path: the base name without
// its extension
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// discoverFiles finds all files under root whose base name matches one of
// the glob patterns. Hidden directories are skipped.
func discoverFiles(root string, patterns []string) ([]string, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		matchers = append(matchers, g)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		for _, m := range matchers {
			if m.Match(d.Name()) {
				files = append(files, path)
				break
			}
		}
		return nil
	})

	return files, err
}
