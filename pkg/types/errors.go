package types

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// ErrClassificationAmbiguity means a line matched more than one rank.
	// The pattern table is mutually exclusive, so this is an internal bug.
	ErrClassificationAmbiguity = errors.New("classification ambiguity")

	// ErrPromotionUnderflow means a heading returned to a rank whose depth was
	// never recorded. The promoter recovers with depth 1.
	ErrPromotionUnderflow = errors.New("promotion underflow")

	// ErrMalformedSpan means normalized content was not found in the raw text
	ErrMalformedSpan = errors.New("malformed span")

	// ErrForestConsistency means a persisted parent graph is not a forest
	ErrForestConsistency = errors.New("forest consistency violation")

	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidRank  = errors.New("rank must be between chapter and subitem")
	ErrInvalidDepth = errors.New("depth must be >= 1")
)

// Warning is a recoverable, per-line or per-entry problem found while
// processing one document.
type Warning struct {
	Line  int
	Label string
	Err   error
}

// Error implements the error interface
func (w Warning) Error() string {
	if w.Label == "" {
		return fmt.Sprintf("line %d: %v", w.Line, w.Err)
	}
	return fmt.Sprintf("line %d (%s): %v", w.Line, w.Label, w.Err)
}

// Unwrap returns the underlying error
func (w Warning) Unwrap() error {
	return w.Err
}
