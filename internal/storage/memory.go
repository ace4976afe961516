package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dominikbraun/graph"

	"github.com/dshills/regtree/pkg/types"
)

var errTxDone = errors.New("transaction has already been committed or rolled back")

type positionKey struct {
	regulationID int64
	position     int
}

// MemoryStorage implements the Storage interface in process memory.
//
// Parent links are kept in a directed graph that rejects cycles, so the
// forest invariant is enforced on every insert. Readers share a RWMutex
// read lock; a transaction holds the write lock until it finishes.
type MemoryStorage struct {
	mu sync.RWMutex

	regulations  map[int64]*Regulation
	titles       map[string]int64
	entries      map[int64]*Entry
	byRegulation map[int64][]int64
	positions    map[positionKey]int64

	// tree holds one vertex per entry and an edge from parent to child
	tree graph.Graph[int64, int64]

	nextRegulationID int64
	nextEntryID      int64
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		regulations:  make(map[int64]*Regulation),
		titles:       make(map[string]int64),
		entries:      make(map[int64]*Entry),
		byRegulation: make(map[int64][]int64),
		positions:    make(map[positionKey]int64),
		tree:         graph.New(func(id int64) int64 { return id }, graph.Directed(), graph.PreventCycles()),
	}
}

// journal collects undo steps for a transaction; nil outside one
type journal []func()

func (j *journal) record(undo func()) {
	if j != nil {
		*j = append(*j, undo)
	}
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	if e.ParentID != nil {
		pid := *e.ParentID
		c.ParentID = &pid
	}
	return &c
}

// Regulation operations

func (m *MemoryStorage) createRegulationLocked(reg *Regulation, j *journal) error {
	if strings.TrimSpace(reg.Title) == "" {
		return fmt.Errorf("regulation title cannot be empty")
	}
	if _, ok := m.titles[reg.Title]; ok {
		return fmt.Errorf("regulation %q: %w", reg.Title, ErrAlreadyExists)
	}

	m.nextRegulationID++
	now := time.Now()
	reg.ID = m.nextRegulationID
	reg.CreatedAt = now
	reg.UpdatedAt = now

	stored := *reg
	m.regulations[reg.ID] = &stored
	m.titles[reg.Title] = reg.ID

	id, title := reg.ID, reg.Title
	j.record(func() {
		delete(m.regulations, id)
		delete(m.titles, title)
	})
	return nil
}

func (m *MemoryStorage) CreateRegulation(ctx context.Context, reg *Regulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRegulationLocked(reg, nil)
}

func (m *MemoryStorage) getRegulationLocked(id int64) (*Regulation, error) {
	reg, ok := m.regulations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *reg
	out.EntryCount = len(m.byRegulation[id])
	return &out, nil
}

func (m *MemoryStorage) GetRegulation(ctx context.Context, id int64) (*Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRegulationLocked(id)
}

func (m *MemoryStorage) getRegulationByTitleLocked(title string) (*Regulation, error) {
	id, ok := m.titles[title]
	if !ok {
		return nil, ErrNotFound
	}
	return m.getRegulationLocked(id)
}

func (m *MemoryStorage) GetRegulationByTitle(ctx context.Context, title string) (*Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRegulationByTitleLocked(title)
}

func (m *MemoryStorage) listRegulationsLocked() []*Regulation {
	regs := make([]*Regulation, 0, len(m.regulations))
	for id := range m.regulations {
		reg, _ := m.getRegulationLocked(id)
		regs = append(regs, reg)
	}
	slices.SortFunc(regs, func(a, b *Regulation) int { return strings.Compare(a.Title, b.Title) })
	return regs
}

func (m *MemoryStorage) ListRegulations(ctx context.Context) ([]*Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRegulationsLocked(), nil
}

func (m *MemoryStorage) deleteRegulationLocked(id int64, j *journal) error {
	reg, ok := m.regulations[id]
	if !ok {
		return ErrNotFound
	}

	ids := m.byRegulation[id]
	removed := make([]*Entry, 0, len(ids))
	for _, eid := range ids {
		e := m.entries[eid]
		if e.ParentID != nil {
			if err := m.tree.RemoveEdge(*e.ParentID, eid); err != nil {
				return fmt.Errorf("failed to unlink entry %d: %w", eid, err)
			}
		}
		removed = append(removed, e)
	}
	for _, e := range removed {
		if err := m.tree.RemoveVertex(e.ID); err != nil {
			return fmt.Errorf("failed to remove entry %d: %w", e.ID, err)
		}
		delete(m.entries, e.ID)
		delete(m.positions, positionKey{id, e.Position})
	}
	delete(m.byRegulation, id)
	delete(m.regulations, id)
	delete(m.titles, reg.Title)

	j.record(func() {
		m.regulations[id] = reg
		m.titles[reg.Title] = id
		m.byRegulation[id] = ids
		for _, e := range removed {
			_ = m.tree.AddVertex(e.ID)
			m.entries[e.ID] = e
			m.positions[positionKey{id, e.Position}] = e.ID
		}
		for _, e := range removed {
			if e.ParentID != nil {
				_ = m.tree.AddEdge(*e.ParentID, e.ID)
			}
		}
	})
	return nil
}

func (m *MemoryStorage) DeleteRegulation(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRegulationLocked(id, nil)
}

// Entry operations

func (m *MemoryStorage) insertEntryLocked(entry *Entry, j *journal) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	reg, ok := m.regulations[entry.RegulationID]
	if !ok {
		return fmt.Errorf("regulation %d: %w", entry.RegulationID, ErrNotFound)
	}
	if got, ok := entry.Span().Slice(reg.RawText); !ok || got != entry.Content {
		return fmt.Errorf("%w: entry %q does not match raw text at [%d,%d)",
			types.ErrMalformedSpan, entry.UnitLabel, entry.SpanStart, entry.SpanEnd)
	}

	if entry.ParentID != nil {
		parent, ok := m.entries[*entry.ParentID]
		if !ok {
			return fmt.Errorf("%w: parent %d: %w", types.ErrForestConsistency, *entry.ParentID, ErrNotFound)
		}
		if err := checkParent(entry, parent.RegulationID, parent.Depth); err != nil {
			return err
		}
	}

	key := positionKey{entry.RegulationID, entry.Position}
	if _, ok := m.positions[key]; ok {
		return fmt.Errorf("entry at position %d: %w", entry.Position, ErrAlreadyExists)
	}

	id := m.nextEntryID + 1
	if err := m.tree.AddVertex(id); err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}
	if entry.ParentID != nil {
		if err := m.tree.AddEdge(*entry.ParentID, id); err != nil {
			_ = m.tree.RemoveVertex(id)
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return fmt.Errorf("%w: %w", types.ErrForestConsistency, err)
			}
			return fmt.Errorf("failed to link entry: %w", err)
		}
	}

	m.nextEntryID = id
	entry.ID = id
	entry.CreatedAt = time.Now()
	m.entries[id] = cloneEntry(entry)
	m.byRegulation[entry.RegulationID] = append(m.byRegulation[entry.RegulationID], id)
	m.positions[key] = id

	regID, parentID := entry.RegulationID, entry.ParentID
	j.record(func() {
		if parentID != nil {
			_ = m.tree.RemoveEdge(*parentID, id)
		}
		_ = m.tree.RemoveVertex(id)
		delete(m.entries, id)
		delete(m.positions, key)
		ids := m.byRegulation[regID]
		m.byRegulation[regID] = ids[:len(ids)-1]
	})
	return nil
}

func (m *MemoryStorage) InsertEntry(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertEntryLocked(entry, nil)
}

func (m *MemoryStorage) getEntryLocked(id int64) (*Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntry(e), nil
}

func (m *MemoryStorage) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEntryLocked(id)
}

// sortByPosition orders entries by regulation, then source position
func sortByPosition(entries []*Entry) {
	slices.SortFunc(entries, func(a, b *Entry) int {
		if c := cmp.Compare(a.RegulationID, b.RegulationID); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
}

func (m *MemoryStorage) listEntriesByRegulationLocked(regulationID int64) []*Entry {
	ids := m.byRegulation[regulationID]
	out := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneEntry(m.entries[id]))
	}
	sortByPosition(out)
	return out
}

func (m *MemoryStorage) ListEntriesByRegulation(ctx context.Context, regulationID int64) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntriesByRegulationLocked(regulationID), nil
}

func (m *MemoryStorage) listChildrenLocked(id int64) ([]*Entry, error) {
	adjacency, err := m.tree.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(adjacency[id]))
	for child := range adjacency[id] {
		out = append(out, cloneEntry(m.entries[child]))
	}
	sortByPosition(out)
	return out, nil
}

func (m *MemoryStorage) ListChildren(ctx context.Context, id int64) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listChildrenLocked(id)
}

func (m *MemoryStorage) setEntryLabelLocked(id int64, label string, j *journal) error {
	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	old := e.Label
	e.Label = label
	j.record(func() { e.Label = old })
	return nil
}

func (m *MemoryStorage) SetEntryLabel(ctx context.Context, id int64, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setEntryLabelLocked(id, label, nil)
}

// Graph operations

func (m *MemoryStorage) ancestorsOfLocked(id int64) ([]*Entry, error) {
	self, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: entry %d: %w", types.ErrForestConsistency, id, ErrNotFound)
	}

	predecessors, err := m.tree.PredecessorMap()
	if err != nil {
		return nil, err
	}

	chain := []*Entry{cloneEntry(self)}
	for cur := id; ; {
		parents := predecessors[cur]
		if len(parents) == 0 {
			break
		}
		if len(parents) > 1 {
			return nil, fmt.Errorf("%w: entry %d has %d parents", types.ErrForestConsistency, cur, len(parents))
		}
		for p := range parents {
			cur = p
		}
		if len(chain) >= maxChainLength {
			return nil, fmt.Errorf("%w: cycle above entry %d", types.ErrForestConsistency, id)
		}
		chain = append(chain, cloneEntry(m.entries[cur]))
	}

	slices.Reverse(chain)
	if err := checkChain(id, chain); err != nil {
		return nil, err
	}
	return chain[:len(chain)-1], nil
}

func (m *MemoryStorage) AncestorsOf(ctx context.Context, id int64) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ancestorsOfLocked(id)
}

// descendantsOfLocked runs a level-by-level breadth-first walk over the
// adjacency map so every entry is tagged with its distance from id
func (m *MemoryStorage) descendantsOfLocked(id int64) ([]Descendant, error) {
	root, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: entry %d: %w", types.ErrForestConsistency, id, ErrNotFound)
	}

	adjacency, err := m.tree.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	all := []Descendant{{Entry: cloneEntry(root), Distance: 0}}
	level := []int64{id}
	for distance := 1; len(level) > 0; distance++ {
		if distance >= maxChainLength {
			return nil, fmt.Errorf("%w: cycle below entry %d", types.ErrForestConsistency, id)
		}
		var next []*Entry
		for _, parent := range level {
			for child := range adjacency[parent] {
				next = append(next, m.entries[child])
			}
		}
		sortByPosition(next)

		level = level[:0]
		for _, e := range next {
			all = append(all, Descendant{Entry: cloneEntry(e), Distance: distance})
			level = append(level, e.ID)
		}
	}

	if err := checkSubtree(id, all); err != nil {
		return nil, err
	}
	return all[1:], nil
}

func (m *MemoryStorage) DescendantsOf(ctx context.Context, id int64) ([]Descendant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.descendantsOfLocked(id)
}

// Search operations

func (m *MemoryStorage) searchContentLocked(query string, filters *SearchFilters) ([]*Entry, error) {
	f := normalizeFilters(filters)
	match, err := contentMatcher(query, f.Mode)
	if err != nil {
		return nil, err
	}

	var candidates []*Entry
	if f.RegulationID > 0 {
		candidates = m.listEntriesByRegulationLocked(f.RegulationID)
	} else {
		for _, e := range m.entries {
			candidates = append(candidates, cloneEntry(e))
		}
		sortByPosition(candidates)
	}
	return filterEntries(candidates, match, f.Limit), nil
}

func (m *MemoryStorage) SearchContent(ctx context.Context, query string, filters *SearchFilters) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchContentLocked(query, filters)
}

// Status operations

func (m *MemoryStorage) getStatusLocked() *Status {
	status := &Status{
		Regulations:   len(m.regulations),
		Entries:       len(m.entries),
		SchemaVersion: CurrentSchemaVersion,
		Backend:       "memory",
		Health: HealthStatus{
			DatabaseAccessible: true,
			ForeignKeysEnabled: true,
		},
	}
	for _, e := range m.entries {
		if e.Label != "" {
			status.LabeledCount++
		}
		if e.IsRoot() {
			status.RootCount++
		}
	}
	return status
}

func (m *MemoryStorage) GetStatus(ctx context.Context) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStatusLocked(), nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// BeginTx acquires the write lock; it is held until Commit or Rollback
func (m *MemoryStorage) BeginTx(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	return &memoryTx{store: m, undo: make(journal, 0)}, nil
}

// memoryTx is a transaction over MemoryStorage. Its methods run with the
// store's write lock already held.
type memoryTx struct {
	store *MemoryStorage
	undo  journal
	done  bool
}

func (t *memoryTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memoryTx) active() error {
	if t.done {
		return errTxDone
	}
	return nil
}

func (t *memoryTx) CreateRegulation(ctx context.Context, reg *Regulation) error {
	if err := t.active(); err != nil {
		return err
	}
	return t.store.createRegulationLocked(reg, &t.undo)
}

func (t *memoryTx) GetRegulation(ctx context.Context, id int64) (*Regulation, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.getRegulationLocked(id)
}

func (t *memoryTx) GetRegulationByTitle(ctx context.Context, title string) (*Regulation, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.getRegulationByTitleLocked(title)
}

func (t *memoryTx) ListRegulations(ctx context.Context) ([]*Regulation, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.listRegulationsLocked(), nil
}

func (t *memoryTx) DeleteRegulation(ctx context.Context, id int64) error {
	if err := t.active(); err != nil {
		return err
	}
	return t.store.deleteRegulationLocked(id, &t.undo)
}

func (t *memoryTx) InsertEntry(ctx context.Context, entry *Entry) error {
	if err := t.active(); err != nil {
		return err
	}
	return t.store.insertEntryLocked(entry, &t.undo)
}

func (t *memoryTx) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.getEntryLocked(id)
}

func (t *memoryTx) ListEntriesByRegulation(ctx context.Context, regulationID int64) ([]*Entry, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.listEntriesByRegulationLocked(regulationID), nil
}

func (t *memoryTx) ListChildren(ctx context.Context, id int64) ([]*Entry, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.listChildrenLocked(id)
}

func (t *memoryTx) SetEntryLabel(ctx context.Context, id int64, label string) error {
	if err := t.active(); err != nil {
		return err
	}
	return t.store.setEntryLabelLocked(id, label, &t.undo)
}

func (t *memoryTx) AncestorsOf(ctx context.Context, id int64) ([]*Entry, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.ancestorsOfLocked(id)
}

func (t *memoryTx) DescendantsOf(ctx context.Context, id int64) ([]Descendant, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.descendantsOfLocked(id)
}

func (t *memoryTx) SearchContent(ctx context.Context, query string, filters *SearchFilters) ([]*Entry, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.searchContentLocked(query, filters)
}

func (t *memoryTx) GetStatus(ctx context.Context) (*Status, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.store.getStatusLocked(), nil
}

func (t *memoryTx) Close() error {
	return nil
}

func (t *memoryTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}
