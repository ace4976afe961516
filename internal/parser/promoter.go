package parser

import (
	"fmt"

	"github.com/dshills/regtree/pkg/types"
)

// Promoter converts fixed heading ranks into contextual nesting depths.
//
// It tracks the rank and depth of the most recent heading and remembers,
// for every rank, the depth it was last assigned. A Promoter carries state
// for a single document and must not be shared across goroutines.
type Promoter struct {
	lastDepth    [types.NumRanks + 1]int // indexed by rank; 0 means never recorded
	currentRank  types.Rank
	currentDepth int
}

// NewPromoter creates a Promoter positioned before the first heading
func NewPromoter() *Promoter {
	return &Promoter{}
}

// Next assigns a depth to one classified line. A non-nil warning is returned
// when a coarser heading appears whose rank has never been seen; the line is
// recovered to depth 1.
func (p *Promoter) Next(line types.ClassifiedLine) (types.DepthLine, *types.Warning) {
	if !line.IsHeading() {
		return types.DepthLine{ClassifiedLine: line}, nil
	}

	var warn *types.Warning
	switch {
	case line.Rank.FinerThan(p.currentRank):
		p.currentDepth++
		p.lastDepth[line.Rank] = p.currentDepth
	case line.Rank.CoarserThan(p.currentRank):
		depth := p.lastDepth[line.Rank]
		if depth == 0 {
			warn = &types.Warning{
				Line:  line.Number,
				Label: line.Label,
				Err:   fmt.Errorf("%w: %s after %s", types.ErrPromotionUnderflow, line.Rank, p.currentRank),
			}
			depth = 1
			p.lastDepth[line.Rank] = depth
		}
		p.currentDepth = depth
	}
	p.currentRank = line.Rank

	return types.DepthLine{ClassifiedLine: line, Depth: p.currentDepth}, warn
}

// Promote assigns depths to a whole document. Depth never exceeds rank, so
// the result fits the six heading levels of the markdown staging format.
func Promote(lines []types.ClassifiedLine) ([]types.DepthLine, []types.Warning) {
	p := NewPromoter()
	out := make([]types.DepthLine, len(lines))
	var warnings []types.Warning

	for i, l := range lines {
		dl, w := p.Next(l)
		out[i] = dl
		if w != nil {
			warnings = append(warnings, *w)
		}
	}
	return out, warnings
}
