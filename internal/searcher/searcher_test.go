package searcher

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/regtree/internal/indexer"
	"github.com/dshills/regtree/internal/storage"
)

const testRaw = "第 一 章 施工架\n第 1 條 施工架應設置護欄\n一、護欄高度\n第 2 條 梯子"

// setupTestSearcher creates a searcher over in-memory storage holding testRaw
func setupTestSearcher(t *testing.T) (*Searcher, storage.Storage, int64) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	result, err := indexer.New(store, nil).ImportRegulation(context.Background(), "營造安全衛生設施標準", testRaw)
	if err != nil {
		t.Fatalf("failed to import test regulation: %v", err)
	}

	return NewSearcher(store, Options{}), store, result.RegulationID
}

// TestNewSearcher verifies searcher creation
func TestNewSearcher(t *testing.T) {
	store := storage.NewMemoryStorage()
	s := NewSearcher(store, Options{})

	if s.storage != store {
		t.Error("searcher storage not set correctly")
	}
	if s.opts.DefaultLimit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, s.opts.DefaultLimit)
	}
	if s.opts.CacheTTL != DefaultCacheTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultCacheTTL, s.opts.CacheTTL)
	}
}

// TestValidateRequest tests request validation
func TestValidateRequest(t *testing.T) {
	s := NewSearcher(storage.NewMemoryStorage(), Options{DefaultLimit: 5})

	tests := []struct {
		name        string
		req         Request
		expectError bool
		validate    func(t *testing.T, req *Request)
	}{
		{
			name:        "EmptyQuery",
			req:         Request{},
			expectError: true,
		},
		{
			name:        "UnknownMode",
			req:         Request{Query: "x", Mode: "fuzzy"},
			expectError: true,
		},
		{
			name: "Defaults",
			req:  Request{Query: "x"},
			validate: func(t *testing.T, req *Request) {
				if req.Limit != 5 {
					t.Errorf("expected limit 5, got %d", req.Limit)
				}
				if req.Mode != storage.SearchLiteral {
					t.Errorf("expected literal mode, got %s", req.Mode)
				}
				if req.CacheTTL != DefaultCacheTTL {
					t.Errorf("expected default TTL, got %v", req.CacheTTL)
				}
			},
		},
		{
			name: "LimitCapped",
			req:  Request{Query: "x", Limit: 10000},
			validate: func(t *testing.T, req *Request) {
				if req.Limit != MaxLimit {
					t.Errorf("expected limit %d, got %d", MaxLimit, req.Limit)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := s.validateRequest(&req)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, &req)
			}
		})
	}
}

func TestSearchLiteral(t *testing.T) {
	s, _, regID := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), Request{Query: "護欄", RegulationID: regID})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if resp.TotalResults != 2 {
		t.Fatalf("expected 2 results, got %d", resp.TotalResults)
	}
	if resp.Results[0].Entry.UnitLabel != "第 1 條" || resp.Results[1].Entry.UnitLabel != "一、" {
		t.Errorf("unexpected result order: %s, %s", resp.Results[0].Entry.UnitLabel, resp.Results[1].Entry.UnitLabel)
	}
	if resp.Results[0].Rank != 1 || resp.Results[1].Rank != 2 {
		t.Error("ranks not assigned in result order")
	}
	if resp.Results[0].Text != "第 1 條 施工架應設置護欄" {
		t.Errorf("unexpected text %q", resp.Results[0].Text)
	}
	if resp.Mode != storage.SearchLiteral {
		t.Errorf("expected literal mode, got %s", resp.Mode)
	}
}

func TestSearchRegex(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), Request{Query: `^第 \d+ 條`, Mode: storage.SearchRegex})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.TotalResults != 2 {
		t.Errorf("expected 2 articles, got %d", resp.TotalResults)
	}

	if _, err := s.Search(context.Background(), Request{Query: `(`, Mode: storage.SearchRegex}); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestSearchWithContextDeduplicate(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), Request{Query: "護欄", WithContext: true, Deduplicate: true})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	// The article's context is a prefix of the item's context
	if resp.TotalResults != 1 || resp.Duplicates != 1 {
		t.Fatalf("expected 1 result and 1 duplicate, got %d and %d", resp.TotalResults, resp.Duplicates)
	}

	m := resp.Results[0]
	if m.Text != "第 一 章 施工架\n第 1 條 施工架應設置護欄\n一、護欄高度" {
		t.Errorf("unexpected context %q", m.Text)
	}
	if m.Breadcrumb != "第 一 章, 第 1 條, 一、" {
		t.Errorf("unexpected breadcrumb %q", m.Breadcrumb)
	}
}

func TestSearchCache(t *testing.T) {
	s, _, _ := setupTestSearcher(t)
	ctx := context.Background()
	req := Request{Query: "梯子", UseCache: true}

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if first.CacheHit {
		t.Error("first search should not hit the cache")
	}

	second, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !second.CacheHit {
		t.Error("second search should hit the cache")
	}
	if second.TotalResults != first.TotalResults {
		t.Errorf("cached result differs: %d vs %d", second.TotalResults, first.TotalResults)
	}

	// Mutating a returned response must not leak into the cache
	second.Results[0].Entry.Content = "changed"
	third, _ := s.Search(ctx, req)
	if third.Results[0].Entry.Content == "changed" {
		t.Error("cached entry was modified through a returned response")
	}

	s.Purge()
	if s.CacheLen() != 0 {
		t.Errorf("expected empty cache after purge, got %d", s.CacheLen())
	}
}

func TestSearchCacheExpiry(t *testing.T) {
	s, _, _ := setupTestSearcher(t)
	ctx := context.Background()
	req := Request{Query: "梯子", UseCache: true, CacheTTL: time.Millisecond}

	if _, err := s.Search(ctx, req); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	resp, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.CacheHit {
		t.Error("expired entry should not be served")
	}
}

func TestComputeQueryHash(t *testing.T) {
	a := computeQueryHash(Request{Query: "護欄", Mode: storage.SearchLiteral, Limit: 20})
	b := computeQueryHash(Request{Query: "護欄", Mode: storage.SearchLiteral, Limit: 20, CacheTTL: time.Minute})
	c := computeQueryHash(Request{Query: "護欄", Mode: storage.SearchLiteral, Limit: 20, WithContext: true})

	if a != b {
		t.Error("TTL should not change the cache key")
	}
	if a == c {
		t.Error("context expansion should change the cache key")
	}
}
