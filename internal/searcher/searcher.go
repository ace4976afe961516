package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/regtree/internal/assembler"
	"github.com/dshills/regtree/internal/storage"
)

const (
	DefaultLimit     = 20
	MaxLimit         = 200
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Hour
)

// Request contains parameters for a search operation
type Request struct {
	Query        string
	Mode         storage.SearchMode // literal (default) or regex
	RegulationID int64              // 0 searches every regulation
	Limit        int

	// WithContext replaces each match's text with its ancestor contents
	// followed by its own, as ConcatenateContent does
	WithContext bool

	// Deduplicate drops matches whose text is contained in another match
	Deduplicate bool

	UseCache bool // Whether to use the result cache
	CacheTTL time.Duration
}

// Match is one search hit
type Match struct {
	Entry      *storage.Entry
	Rank       int
	Text       string // Entry content, or full context with WithContext
	Breadcrumb string // Unit labels from the root down to the entry
}

// Response contains search results and metadata
type Response struct {
	Results      []Match
	TotalResults int
	Mode         storage.SearchMode
	Duplicates   int // Matches removed by deduplication
	Duration     time.Duration
	CacheHit     bool
}

// Options configures a Searcher. Zero values select the defaults.
type Options struct {
	CacheSize    int
	CacheTTL     time.Duration
	DefaultLimit int
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher runs content searches and expands matches into legal context
type Searcher struct {
	storage   storage.Storage
	assembler *assembler.Assembler
	opts      Options
	cache     *lru.Cache[[32]byte, *cacheEntry]
	cacheMu   sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, opts Options) *Searcher {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage:   store,
		assembler: assembler.New(store),
		opts:      opts,
		cache:     cache,
	}
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	entries, err := s.storage.SearchContent(ctx, req.Query, &storage.SearchFilters{
		RegulationID: req.RegulationID,
		Mode:         req.Mode,
		Limit:        req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		m := Match{Entry: e, Text: e.Content, Breadcrumb: e.UnitLabel}
		if req.WithContext {
			ancestors, err := s.assembler.Ancestors(ctx, e.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to assemble context for entry %d: %w", e.ID, err)
			}
			m.Text = assembler.JoinContent(ancestors, e)
			m.Breadcrumb = assembler.JoinUnitLabels(ancestors, e)
		}
		matches = append(matches, m)
	}

	response := &Response{Mode: req.Mode}
	if req.Deduplicate {
		kept := DeduplicateFunc(matches, func(m Match) string { return m.Text })
		response.Duplicates = len(matches) - len(kept)
		matches = kept
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}

	response.Results = matches
	response.TotalResults = len(matches)
	response.Duration = time.Since(startTime)

	if req.UseCache {
		s.storeInCache(req, response)
	}

	return response, nil
}

// validateRequest ensures search request is valid and fills defaults
func (s *Searcher) validateRequest(req *Request) error {
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if req.Limit <= 0 {
		req.Limit = s.opts.DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	switch req.Mode {
	case "":
		req.Mode = storage.SearchLiteral
	case storage.SearchLiteral, storage.SearchRegex:
	default:
		return fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	if req.CacheTTL <= 0 {
		req.CacheTTL = s.opts.CacheTTL
	}

	return nil
}

// checkCache looks up cached search results. It returns nil on a miss.
func (s *Searcher) checkCache(req Request) *Response {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req Request, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// Purge drops every cached response. Call it after imports and label edits.
func (s *Searcher) Purge() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copyResponse creates a deep copy of a Response
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Results = make([]Match, len(src.Results))
	for i, m := range src.Results {
		dst.Results[i] = m
		if m.Entry != nil {
			entry := *m.Entry
			if m.Entry.ParentID != nil {
				pid := *m.Entry.ParentID
				entry.ParentID = &pid
			}
			dst.Results[i].Entry = &entry
		}
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request. CacheTTL and
// UseCache do not change the result and are left out.
func computeQueryHash(req Request) [32]byte {
	key := fmt.Sprintf("%q|%s|%d|%d|%t|%t",
		req.Query, req.Mode, req.RegulationID, req.Limit, req.WithContext, req.Deduplicate)
	return sha256.Sum256([]byte(key))
}
