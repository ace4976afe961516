// Package searcher finds stored entries by content and shapes the matches
// for display.
//
// Two modes are supported:
//   - literal: the query must appear verbatim in the entry content
//   - regex: the query is a Go regular expression matched against content
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, searcher.Options{})
//
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query:       "施工架",
//	    WithContext: true,
//	    Deduplicate: true,
//	})
//
//	for _, m := range resp.Results {
//	    fmt.Printf("[%d] %s\n%s\n", m.Rank, m.Breadcrumb, m.Text)
//	}
//
// # Context and Deduplication
//
// With WithContext each match's text becomes its ancestor contents followed by
// its own, so an item is shown under its article and chapter. A search often
// hits both an article and one of its items; the article's context is then a
// prefix of the item's. Deduplicate keeps only matches whose text is not
// contained in another match's text.
//
// Deduplication compares every pair of matches. It is meant for a page of
// results, not for whole-corpus result sets.
//
// # Caching
//
// Responses can be cached in an LRU keyed by a SHA-256 of the request:
//
//	resp, _ := s.Search(ctx, searcher.Request{Query: "梯子", UseCache: true})
//
// Entries expire after Options.CacheTTL (default one hour). Call Purge after
// imports or label edits so stale matches are not served.
package searcher
