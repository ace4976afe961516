package searcher

import (
	"cmp"
	"slices"
	"strings"
)

// Deduplicate keeps only the maximal strings of texts under substring
// containment. A string contained in another string of equal or greater
// length is dropped; identical strings collapse to their first occurrence.
// Empty strings are dropped. Survivors keep their input order.
//
// Every pair is compared, so the cost is quadratic in len(texts). That is
// fine for a page of search matches and will not scale to large result sets.
func Deduplicate(texts []string) []string {
	return DeduplicateFunc(texts, func(s string) string { return s })
}

// DeduplicateFunc is Deduplicate over arbitrary items, compared by the text
// that key returns
func DeduplicateFunc[T any](items []T, key func(T) string) []T {
	texts := make([]string, len(items))
	order := make([]int, len(items))
	for i, item := range items {
		texts[i] = key(item)
		order[i] = i
	}

	// Shortest first; a stable sort keeps input order among equal lengths
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(len(texts[a]), len(texts[b]))
	})

	keep := make([]bool, len(items))
	for p, i := range order {
		if texts[i] == "" {
			continue
		}
		keep[i] = true
		for _, j := range order[p+1:] {
			if texts[j] != texts[i] && strings.Contains(texts[j], texts[i]) {
				keep[i] = false
				break
			}
		}
		// Equal lengths sort in input order, so an identical string earlier
		// in order is an earlier occurrence
		for _, j := range order[:p] {
			if keep[i] && texts[j] == texts[i] {
				keep[i] = false
			}
		}
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		if keep[i] {
			out = append(out, item)
		}
	}
	return out
}
