package indexer

import (
	"context"
	"fmt"

	"github.com/dshills/regtree/internal/chunker"
)

// SpanMismatch is a stored entry whose content no longer equals the slice of
// its regulation's raw text
type SpanMismatch struct {
	EntryID   int64
	UnitLabel string
	Err       error
}

// VerifyReport summarizes a span verification run over one regulation
type VerifyReport struct {
	RegulationID int64
	Title        string
	Checked      int
	Mismatches   []SpanMismatch
}

// OK reports whether every checked entry round-tripped
func (r *VerifyReport) OK() bool {
	return len(r.Mismatches) == 0
}

// VerifySpans re-checks raw[start:end] == content for every stored entry of
// a regulation
func (idx *Indexer) VerifySpans(ctx context.Context, regulationID int64) (*VerifyReport, error) {
	reg, err := idx.storage.GetRegulation(ctx, regulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get regulation: %w", err)
	}

	entries, err := idx.storage.ListEntriesByRegulation(ctx, regulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	report := &VerifyReport{RegulationID: reg.ID, Title: reg.Title}
	for _, e := range entries {
		report.Checked++
		if err := chunker.Verify(reg.RawText, e.Span(), e.Content); err != nil {
			report.Mismatches = append(report.Mismatches, SpanMismatch{
				EntryID:   e.ID,
				UnitLabel: e.UnitLabel,
				Err:       err,
			})
		}
	}

	if !report.OK() {
		idx.logger.Warn("span verification failed", "regulation", reg.Title,
			"checked", report.Checked, "mismatches", len(report.Mismatches))
	}
	return report, nil
}

// VerifyAll runs VerifySpans over every stored regulation
func (idx *Indexer) VerifyAll(ctx context.Context) ([]*VerifyReport, error) {
	regs, err := idx.storage.ListRegulations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regulations: %w", err)
	}

	reports := make([]*VerifyReport, 0, len(regs))
	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := idx.VerifySpans(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
