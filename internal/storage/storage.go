package storage

import (
	"context"
	"strings"
	"time"

	"github.com/dshills/regtree/pkg/types"
)

// Storage defines the interface for persisting and querying regulation trees
type Storage interface {
	// Regulation operations
	CreateRegulation(ctx context.Context, reg *Regulation) error
	GetRegulation(ctx context.Context, id int64) (*Regulation, error)
	GetRegulationByTitle(ctx context.Context, title string) (*Regulation, error)
	ListRegulations(ctx context.Context) ([]*Regulation, error)
	DeleteRegulation(ctx context.Context, id int64) error

	// Entry operations
	InsertEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, id int64) (*Entry, error)
	ListEntriesByRegulation(ctx context.Context, regulationID int64) ([]*Entry, error)
	ListChildren(ctx context.Context, id int64) ([]*Entry, error)
	SetEntryLabel(ctx context.Context, id int64, label string) error

	// Graph operations
	AncestorsOf(ctx context.Context, id int64) ([]*Entry, error)
	DescendantsOf(ctx context.Context, id int64) ([]Descendant, error)

	// Search operations
	SearchContent(ctx context.Context, query string, filters *SearchFilters) ([]*Entry, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Regulation is one imported legal document
type Regulation struct {
	ID         int64
	Title      string // Unique; the de-duplication key for re-import
	Preamble   string // Body text before the first heading
	RawText    string
	EntryCount int // Populated by reads
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Entry is one persisted structural unit of a regulation
type Entry struct {
	ID           int64
	RegulationID int64
	ParentID     *int64 // Nullable; nil for roots
	UnitLabel    string // Literal heading prefix, e.g. "第 54 條"
	Rank         types.Rank
	Content      string // Always RawText[SpanStart:SpanEnd]
	SpanStart    int
	SpanEnd      int
	Depth        int
	Position     int    // Source order within the regulation
	Label        string // Curation annotation, empty by default
	CreatedAt    time.Time
}

// Span returns the entry's byte range in its regulation's raw text
func (e *Entry) Span() types.Span {
	return types.Span{Start: e.SpanStart, End: e.SpanEnd}
}

// FirstLine returns the first line of the entry content, trimmed
func (e *Entry) FirstLine() string {
	first, _, _ := strings.Cut(e.Content, "\n")
	return strings.TrimSpace(first)
}

// IsRoot returns true if the entry has no parent
func (e *Entry) IsRoot() bool {
	return e.ParentID == nil
}

// Descendant is an entry in the subtree of another entry, tagged with its
// distance from the subtree root (children are at distance 1)
type Descendant struct {
	Entry    *Entry
	Distance int
}

// SearchMode selects how SearchContent interprets the query
type SearchMode string

const (
	SearchLiteral SearchMode = "literal"
	SearchRegex   SearchMode = "regex"
)

// SearchFilters contains filters for narrowing content search
type SearchFilters struct {
	RegulationID int64      // 0 searches every regulation
	Mode         SearchMode // Defaults to SearchLiteral
	Limit        int        // 0 means no limit
}

// Status contains statistics about the stored regulations
type Status struct {
	Regulations   int
	Entries       int
	LabeledCount  int
	RootCount     int
	SchemaVersion string
	SizeMB        float64
	Backend       string
	Health        HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	ForeignKeysEnabled bool
}
