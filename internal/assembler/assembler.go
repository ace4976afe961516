package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/regtree/internal/storage"
	"github.com/dshills/regtree/pkg/types"
)

const (
	// ContentSeparator joins entry contents, root first
	ContentSeparator = "\n"

	// LabelSeparator joins unit labels into a breadcrumb
	LabelSeparator = ", "
)

// Assembler answers context queries over a tree store
type Assembler struct {
	store storage.Storage
}

// Context is an entry together with everything above and below it
type Context struct {
	Entry       *storage.Entry
	Ancestors   []*storage.Entry // root first, parent last
	Descendants []storage.Descendant
}

// Content returns the ancestor contents followed by the entry's own content
func (c *Context) Content() string {
	return JoinContent(c.Ancestors, c.Entry)
}

// Breadcrumb returns the ancestor unit labels followed by the entry's own
func (c *Context) Breadcrumb() string {
	return JoinUnitLabels(c.Ancestors, c.Entry)
}

// New creates an Assembler over store
func New(store storage.Storage) *Assembler {
	return &Assembler{store: store}
}

// entry loads exactly one entry. A missing entry is a consistency error:
// callers only ask about ids they got from the store.
func (a *Assembler) entry(ctx context.Context, id int64) (*storage.Entry, error) {
	e, err := a.store.GetEntry(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: entry %d: %w", types.ErrForestConsistency, id, err)
	}
	return e, err
}

// Ancestors returns the entries above id, root first and parent last. The
// result never contains id itself.
func (a *Assembler) Ancestors(ctx context.Context, id int64) ([]*storage.Entry, error) {
	return a.store.AncestorsOf(ctx, id)
}

// Descendants returns the subtree below id. Each entry is tagged with its
// distance from id; children are at distance 1.
func (a *Assembler) Descendants(ctx context.Context, id int64) ([]storage.Descendant, error) {
	return a.store.DescendantsOf(ctx, id)
}

// ConcatenateContent rebuilds the full text context of an entry: the content
// of every ancestor, root first, then the entry's own content, joined by
// newlines.
func (a *Assembler) ConcatenateContent(ctx context.Context, id int64) (string, error) {
	self, ancestors, err := a.chain(ctx, id)
	if err != nil {
		return "", err
	}
	return JoinContent(ancestors, self), nil
}

// ConcatenateUnitLabels is the breadcrumb form of ConcatenateContent: unit
// labels instead of content, joined by ", ".
func (a *Assembler) ConcatenateUnitLabels(ctx context.Context, id int64) (string, error) {
	self, ancestors, err := a.chain(ctx, id)
	if err != nil {
		return "", err
	}
	return JoinUnitLabels(ancestors, self), nil
}

// Context loads an entry with its ancestors and descendants
func (a *Assembler) Context(ctx context.Context, id int64) (*Context, error) {
	self, ancestors, err := a.chain(ctx, id)
	if err != nil {
		return nil, err
	}

	descendants, err := a.store.DescendantsOf(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Context{Entry: self, Ancestors: ancestors, Descendants: descendants}, nil
}

func (a *Assembler) chain(ctx context.Context, id int64) (*storage.Entry, []*storage.Entry, error) {
	self, err := a.entry(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ancestors, err := a.store.AncestorsOf(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return self, ancestors, nil
}

// JoinContent joins ancestor contents and self's content
func JoinContent(ancestors []*storage.Entry, self *storage.Entry) string {
	parts := make([]string, 0, len(ancestors)+1)
	for _, e := range ancestors {
		parts = append(parts, e.Content)
	}
	parts = append(parts, self.Content)
	return strings.Join(parts, ContentSeparator)
}

// JoinUnitLabels joins ancestor unit labels and self's label
func JoinUnitLabels(ancestors []*storage.Entry, self *storage.Entry) string {
	parts := make([]string, 0, len(ancestors)+1)
	for _, e := range ancestors {
		parts = append(parts, e.UnitLabel)
	}
	parts = append(parts, self.UnitLabel)
	return strings.Join(parts, LabelSeparator)
}
