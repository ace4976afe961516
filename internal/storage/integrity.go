package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/regtree/pkg/types"
)

// validateEntry checks the fields of an entry before it is stored
func validateEntry(entry *Entry) error {
	if entry.RegulationID <= 0 {
		return fmt.Errorf("entry must belong to a regulation")
	}
	if entry.Content == "" {
		return types.ErrEmptyContent
	}
	if !entry.Rank.Valid() {
		return types.ErrInvalidRank
	}
	if entry.Depth < 1 {
		return types.ErrInvalidDepth
	}
	if entry.SpanStart < 0 || entry.SpanEnd-entry.SpanStart != len(entry.Content) {
		return fmt.Errorf("%w: span [%d,%d) does not cover %d content bytes",
			types.ErrMalformedSpan, entry.SpanStart, entry.SpanEnd, len(entry.Content))
	}
	return nil
}

// checkParent enforces that a parent lives in the same regulation and is
// strictly shallower than its child
func checkParent(entry *Entry, parentRegulation int64, parentDepth int) error {
	if parentRegulation != entry.RegulationID {
		return fmt.Errorf("%w: parent %d belongs to regulation %d, not %d",
			types.ErrForestConsistency, *entry.ParentID, parentRegulation, entry.RegulationID)
	}
	if parentDepth >= entry.Depth {
		return fmt.Errorf("%w: parent %d depth %d is not above depth %d",
			types.ErrForestConsistency, *entry.ParentID, parentDepth, entry.Depth)
	}
	return nil
}

// checkChain validates a root-first ancestor chain that ends with the entry
// itself: no repeated ids, a single regulation, and a real root at the top.
func checkChain(id int64, chain []*Entry) error {
	self := chain[len(chain)-1]
	seen := make(map[int64]bool, len(chain))
	for _, e := range chain {
		if seen[e.ID] {
			return fmt.Errorf("%w: cycle through entry %d above %d", types.ErrForestConsistency, e.ID, id)
		}
		seen[e.ID] = true
		if e.RegulationID != self.RegulationID {
			return fmt.Errorf("%w: ancestor %d of entry %d belongs to regulation %d",
				types.ErrForestConsistency, e.ID, id, e.RegulationID)
		}
	}
	if !chain[0].IsRoot() {
		return fmt.Errorf("%w: entry %d has a dangling parent %d",
			types.ErrForestConsistency, chain[0].ID, *chain[0].ParentID)
	}
	return nil
}

// checkSubtree validates a subtree listing whose first element is the root
func checkSubtree(id int64, all []Descendant) error {
	regulationID := all[0].Entry.RegulationID
	seen := make(map[int64]bool, len(all))
	for _, d := range all {
		if seen[d.Entry.ID] || d.Distance >= maxChainLength {
			return fmt.Errorf("%w: cycle below entry %d", types.ErrForestConsistency, id)
		}
		seen[d.Entry.ID] = true
		if d.Entry.RegulationID != regulationID {
			return fmt.Errorf("%w: descendant %d of entry %d belongs to regulation %d",
				types.ErrForestConsistency, d.Entry.ID, id, d.Entry.RegulationID)
		}
	}
	return nil
}

// normalizeFilters fills in defaults
func normalizeFilters(filters *SearchFilters) SearchFilters {
	f := SearchFilters{Mode: SearchLiteral}
	if filters != nil {
		f = *filters
	}
	if f.Mode == "" {
		f.Mode = SearchLiteral
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	return f
}

// contentMatcher returns a predicate implementing the search mode
func contentMatcher(query string, mode SearchMode) (func(string) bool, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	switch mode {
	case SearchLiteral:
		return func(content string) bool { return strings.Contains(content, query) }, nil
	case SearchRegex:
		re, err := regexp.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression: %w", err)
		}
		return re.MatchString, nil
	default:
		return nil, fmt.Errorf("unknown search mode %q", mode)
	}
}

// filterEntries keeps matching entries in order, stopping at limit (0 = all)
func filterEntries(entries []*Entry, match func(string) bool, limit int) []*Entry {
	out := make([]*Entry, 0)
	for _, e := range entries {
		if !match(e.Content) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
