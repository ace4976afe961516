// Package chunker splits classified regulation text into sections and maps
// each section back to its byte range in the original text.
//
// # Basic Usage
//
//	result := chunker.Extract(depthLines)
//	loc := chunker.NewLocator(raw)
//	for _, s := range result.Sections {
//	    span, err := loc.Locate(s.Content)
//	    if errors.Is(err, types.ErrMalformedSpan) {
//	        // reject this section, keep importing the rest
//	        continue
//	    }
//	    fmt.Println(s.Label, span.Start, span.End)
//	}
//
// # Sections
//
// A section is one heading line plus every body line up to the next heading,
// regardless of rank. Nesting is not resolved here; that is the tree
// builder's job. Text before the first heading is returned as the preamble
// and never becomes a section.
//
// # Spans
//
// Spans are byte offsets. The Locator searches with a monotonic cursor, so
// sections must be located in source order. The round-trip property
// raw[span.Start:span.End] == content holds for every span it returns, and
// Verify re-checks it for stored entries.
package chunker
