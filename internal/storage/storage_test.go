package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/regtree/pkg/types"
)

const testRaw = "前言\n第 一 章 總則\n第 1 條 目的\n一、定義\n第 2 條 罰則"

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

// backends returns every Storage implementation so behaviour is checked
// against both
func backends(t *testing.T) map[string]Storage {
	t.Helper()
	return map[string]Storage{
		"sqlite": setupTestDB(t),
		"memory": NewMemoryStorage(),
	}
}

type seeded struct {
	reg     *Regulation
	chapter *Entry
	art1    *Entry
	item    *Entry
	art2    *Entry
}

func newEntry(reg *Regulation, parent *Entry, label string, rank types.Rank, content string, depth, position int) *Entry {
	start := strings.Index(reg.RawText, content)
	e := &Entry{
		RegulationID: reg.ID,
		UnitLabel:    label,
		Rank:         rank,
		Content:      content,
		SpanStart:    start,
		SpanEnd:      start + len(content),
		Depth:        depth,
		Position:     position,
	}
	if parent != nil {
		pid := parent.ID
		e.ParentID = &pid
	}
	return e
}

func seed(t *testing.T, s Storage, title string) *seeded {
	t.Helper()
	ctx := context.Background()

	reg := &Regulation{Title: title, Preamble: "前言", RawText: testRaw}
	require.NoError(t, s.CreateRegulation(ctx, reg))

	out := &seeded{reg: reg}
	out.chapter = newEntry(reg, nil, "第 一 章", types.RankChapter, "第 一 章 總則", 1, 0)
	require.NoError(t, s.InsertEntry(ctx, out.chapter))
	out.art1 = newEntry(reg, out.chapter, "第 1 條", types.RankArticle, "第 1 條 目的", 2, 1)
	require.NoError(t, s.InsertEntry(ctx, out.art1))
	out.item = newEntry(reg, out.art1, "一、", types.RankItem, "一、定義", 3, 2)
	require.NoError(t, s.InsertEntry(ctx, out.item))
	out.art2 = newEntry(reg, out.chapter, "第 2 條", types.RankArticle, "第 2 條 罰則", 2, 3)
	require.NoError(t, s.InsertEntry(ctx, out.art2))
	return out
}

func ids(entries []*Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestCreateRegulation(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := &Regulation{Title: "道路交通管理處罰條例", RawText: "第 1 條 a"}
			require.NoError(t, s.CreateRegulation(ctx, reg))
			assert.Greater(t, reg.ID, int64(0))

			// Try to create duplicate - should fail
			err := s.CreateRegulation(ctx, &Regulation{Title: reg.Title, RawText: "x"})
			assert.ErrorIs(t, err, ErrAlreadyExists)

			assert.Error(t, s.CreateRegulation(ctx, &Regulation{Title: "  "}))
		})
	}
}

func TestGetRegulation(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "職業安全衛生法")

			byID, err := s.GetRegulation(ctx, data.reg.ID)
			require.NoError(t, err)
			assert.Equal(t, "職業安全衛生法", byID.Title)
			assert.Equal(t, "前言", byID.Preamble)
			assert.Equal(t, testRaw, byID.RawText)
			assert.Equal(t, 4, byID.EntryCount)

			byTitle, err := s.GetRegulationByTitle(ctx, "職業安全衛生法")
			require.NoError(t, err)
			assert.Equal(t, data.reg.ID, byTitle.ID)

			_, err = s.GetRegulation(ctx, 9999)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetRegulationByTitle(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListRegulations(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s, "b")
			seed(t, s, "a")

			regs, err := s.ListRegulations(ctx)
			require.NoError(t, err)
			require.Len(t, regs, 2)
			assert.Equal(t, "a", regs[0].Title)
			assert.Equal(t, "b", regs[1].Title)
		})
	}
}

func TestDeleteRegulation_CascadesEntries(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")
			other := seed(t, s, "other")

			require.NoError(t, s.DeleteRegulation(ctx, data.reg.ID))

			_, err := s.GetEntry(ctx, data.item.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			entries, err := s.ListEntriesByRegulation(ctx, data.reg.ID)
			require.NoError(t, err)
			assert.Empty(t, entries)

			remaining, err := s.ListEntriesByRegulation(ctx, other.reg.ID)
			require.NoError(t, err)
			assert.Len(t, remaining, 4)

			assert.ErrorIs(t, s.DeleteRegulation(ctx, data.reg.ID), ErrNotFound)
		})
	}
}

func TestInsertEntry(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")

			got, err := s.GetEntry(ctx, data.item.ID)
			require.NoError(t, err)
			assert.Equal(t, "一、", got.UnitLabel)
			assert.Equal(t, types.RankItem, got.Rank)
			assert.Equal(t, "一、定義", got.Content)
			assert.Equal(t, 3, got.Depth)
			require.NotNil(t, got.ParentID)
			assert.Equal(t, data.art1.ID, *got.ParentID)

			content, ok := got.Span().Slice(testRaw)
			require.True(t, ok)
			assert.Equal(t, got.Content, content)

			_, err = s.GetEntry(ctx, 9999)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestInsertEntry_RejectsMalformedSpan(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")

			e := newEntry(data.reg, nil, "第 一 章", types.RankChapter, "第 一 章 總則", 1, 10)
			e.SpanStart++
			e.SpanEnd++
			assert.ErrorIs(t, s.InsertEntry(ctx, e), types.ErrMalformedSpan)

			e = newEntry(data.reg, nil, "第 一 章", types.RankChapter, "第 一 章 總則", 1, 10)
			e.SpanEnd--
			assert.ErrorIs(t, s.InsertEntry(ctx, e), types.ErrMalformedSpan)
		})
	}
}

func TestInsertEntry_RejectsBrokenForest(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")
			other := seed(t, s, "other")

			// parent not shallower than child
			e := newEntry(data.reg, data.item, "一、", types.RankItem, "一、定義", 3, 10)
			assert.ErrorIs(t, s.InsertEntry(ctx, e), types.ErrForestConsistency)

			// parent in another regulation
			e = newEntry(data.reg, other.chapter, "一、", types.RankItem, "一、定義", 3, 11)
			assert.ErrorIs(t, s.InsertEntry(ctx, e), types.ErrForestConsistency)

			// missing parent
			e = newEntry(data.reg, nil, "一、", types.RankItem, "一、定義", 3, 12)
			missing := int64(9999)
			e.ParentID = &missing
			assert.ErrorIs(t, s.InsertEntry(ctx, e), types.ErrForestConsistency)

			// duplicate position
			e = newEntry(data.reg, nil, "第 一 章", types.RankChapter, "第 一 章 總則", 1, 0)
			assert.ErrorIs(t, s.InsertEntry(ctx, e), ErrAlreadyExists)
		})
	}
}

func TestListEntriesAndChildren(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")

			entries, err := s.ListEntriesByRegulation(ctx, data.reg.ID)
			require.NoError(t, err)
			assert.Equal(t, []int64{data.chapter.ID, data.art1.ID, data.item.ID, data.art2.ID}, ids(entries))

			children, err := s.ListChildren(ctx, data.chapter.ID)
			require.NoError(t, err)
			assert.Equal(t, []int64{data.art1.ID, data.art2.ID}, ids(children))

			children, err = s.ListChildren(ctx, data.item.ID)
			require.NoError(t, err)
			assert.Empty(t, children)
		})
	}
}

func TestSetEntryLabel(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")

			require.NoError(t, s.SetEntryLabel(ctx, data.art1.ID, "reviewed"))
			got, err := s.GetEntry(ctx, data.art1.ID)
			require.NoError(t, err)
			assert.Equal(t, "reviewed", got.Label)

			assert.ErrorIs(t, s.SetEntryLabel(ctx, 9999, "x"), ErrNotFound)

			status, err := s.GetStatus(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, status.LabeledCount)
		})
	}
}

func TestAncestorsOf(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")

			chain, err := s.AncestorsOf(ctx, data.item.ID)
			require.NoError(t, err)
			assert.Equal(t, []int64{data.chapter.ID, data.art1.ID}, ids(chain))
			assert.NotContains(t, ids(chain), data.item.ID)

			chain, err = s.AncestorsOf(ctx, data.chapter.ID)
			require.NoError(t, err)
			assert.Empty(t, chain)

			_, err = s.AncestorsOf(ctx, 9999)
			assert.ErrorIs(t, err, types.ErrForestConsistency)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDescendantsOf(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")

			desc, err := s.DescendantsOf(ctx, data.chapter.ID)
			require.NoError(t, err)
			require.Len(t, desc, 3)

			distances := make(map[int64]int)
			for _, d := range desc {
				distances[d.Entry.ID] = d.Distance
			}
			assert.Equal(t, map[int64]int{data.art1.ID: 1, data.art2.ID: 1, data.item.ID: 2}, distances)
			assert.Equal(t, data.art1.ID, desc[0].Entry.ID)
			assert.Equal(t, data.art2.ID, desc[1].Entry.ID)

			desc, err = s.DescendantsOf(ctx, data.item.ID)
			require.NoError(t, err)
			assert.Empty(t, desc)

			_, err = s.DescendantsOf(ctx, 9999)
			assert.ErrorIs(t, err, types.ErrForestConsistency)
		})
	}
}

func TestGraphQueries_PersistedCycle(t *testing.T) {
	ctx := context.Background()
	s := setupTestDB(t)
	data := seed(t, s, "reg")

	// chapter -> art1 -> item -> chapter
	_, err := s.db.ExecContext(ctx, "UPDATE entries SET parent_id = ? WHERE id = ?", data.item.ID, data.chapter.ID)
	require.NoError(t, err)

	_, err = s.AncestorsOf(ctx, data.item.ID)
	assert.ErrorIs(t, err, types.ErrForestConsistency)

	_, err = s.DescendantsOf(ctx, data.item.ID)
	assert.ErrorIs(t, err, types.ErrForestConsistency)

	_, err = s.DescendantsOf(ctx, data.chapter.ID)
	assert.ErrorIs(t, err, types.ErrForestConsistency)

	// art2 hangs off the cycle but is not part of it
	_, err = s.AncestorsOf(ctx, data.art2.ID)
	assert.ErrorIs(t, err, types.ErrForestConsistency)
}

func TestMemoryStorage_RejectsCycleEdge(t *testing.T) {
	m := NewMemoryStorage()
	data := seed(t, m, "reg")

	err := m.tree.AddEdge(data.item.ID, data.chapter.ID)
	assert.ErrorIs(t, err, graph.ErrEdgeCreatesCycle)

	chain, err := m.AncestorsOf(context.Background(), data.item.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{data.chapter.ID, data.art1.ID}, ids(chain))
}

func TestCheckChain(t *testing.T) {
	root := &Entry{ID: 1, RegulationID: 1}
	pid := int64(1)
	child := &Entry{ID: 2, RegulationID: 1, ParentID: &pid}

	assert.NoError(t, checkChain(2, []*Entry{root, child}))
	assert.ErrorIs(t, checkChain(2, []*Entry{root, child, root, child}), types.ErrForestConsistency)
	assert.ErrorIs(t, checkChain(2, []*Entry{child, child}), types.ErrForestConsistency)

	other := &Entry{ID: 3, RegulationID: 2, ParentID: &pid}
	assert.ErrorIs(t, checkChain(3, []*Entry{root, other}), types.ErrForestConsistency)
}

func TestCheckSubtree(t *testing.T) {
	root := &Entry{ID: 1, RegulationID: 1}
	child := &Entry{ID: 2, RegulationID: 1}

	assert.NoError(t, checkSubtree(1, []Descendant{{Entry: root}, {Entry: child, Distance: 1}}))
	assert.ErrorIs(t, checkSubtree(1, []Descendant{{Entry: root}, {Entry: child, Distance: 1}, {Entry: root, Distance: 2}}),
		types.ErrForestConsistency)
	assert.ErrorIs(t, checkSubtree(1, []Descendant{{Entry: root}, {Entry: child, Distance: maxChainLength}}),
		types.ErrForestConsistency)
}

func TestEntryFirstLine(t *testing.T) {
	e := &Entry{Content: "  第 1 條 總則\n本法依據"}
	assert.Equal(t, "第 1 條 總則", e.FirstLine())

	e.Content = "一、定義"
	assert.Equal(t, "一、定義", e.FirstLine())
}

func TestSearchContent(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := seed(t, s, "a")
			b := seed(t, s, "b")

			results, err := s.SearchContent(ctx, "條", nil)
			require.NoError(t, err)
			assert.Equal(t, []int64{a.art1.ID, a.art2.ID, b.art1.ID, b.art2.ID}, ids(results))

			results, err = s.SearchContent(ctx, "條", &SearchFilters{RegulationID: b.reg.ID, Limit: 1})
			require.NoError(t, err)
			assert.Equal(t, []int64{b.art1.ID}, ids(results))

			results, err = s.SearchContent(ctx, `^第 \d+ 條 罰`, &SearchFilters{Mode: SearchRegex})
			require.NoError(t, err)
			assert.Equal(t, []int64{a.art2.ID, b.art2.ID}, ids(results))

			results, err = s.SearchContent(ctx, "不存在", nil)
			require.NoError(t, err)
			assert.Empty(t, results)

			_, err = s.SearchContent(ctx, "(", &SearchFilters{Mode: SearchRegex})
			assert.Error(t, err)
			_, err = s.SearchContent(ctx, "", nil)
			assert.Error(t, err)
		})
	}
}

func TestTransaction_CommitAndRollback(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			tx, err := s.BeginTx(ctx)
			require.NoError(t, err)
			reg := &Regulation{Title: "rolled back", RawText: "第 1 條 a"}
			require.NoError(t, tx.CreateRegulation(ctx, reg))
			entry := &Entry{RegulationID: reg.ID, UnitLabel: "第 1 條", Rank: types.RankArticle,
				Content: "第 1 條 a", SpanEnd: len("第 1 條 a"), Depth: 1}
			require.NoError(t, tx.InsertEntry(ctx, entry))

			inTx, err := tx.GetRegulationByTitle(ctx, "rolled back")
			require.NoError(t, err)
			assert.Equal(t, 1, inTx.EntryCount)

			require.NoError(t, tx.Rollback())

			_, err = s.GetRegulationByTitle(ctx, "rolled back")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetEntry(ctx, entry.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			tx, err = s.BeginTx(ctx)
			require.NoError(t, err)
			reg = &Regulation{Title: "committed", RawText: "x"}
			require.NoError(t, tx.CreateRegulation(ctx, reg))
			require.NoError(t, tx.Commit())

			_, err = s.GetRegulationByTitle(ctx, "committed")
			assert.NoError(t, err)

			_, err = tx.BeginTx(ctx)
			assert.Error(t, err)
		})
	}
}

func TestTransaction_RollbackRestoresDeletedRegulation(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := seed(t, s, "reg")

			tx, err := s.BeginTx(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.DeleteRegulation(ctx, data.reg.ID))
			require.NoError(t, tx.Rollback())

			chain, err := s.AncestorsOf(ctx, data.item.ID)
			require.NoError(t, err)
			assert.Equal(t, []int64{data.chapter.ID, data.art1.ID}, ids(chain))
		})
	}
}

func TestGetStatus(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s, "reg")

			status, err := s.GetStatus(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, status.Regulations)
			assert.Equal(t, 4, status.Entries)
			assert.Equal(t, 1, status.RootCount)
			assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
			assert.True(t, status.Health.DatabaseAccessible)
			assert.True(t, status.Health.ForeignKeysEnabled)
		})
	}
}
