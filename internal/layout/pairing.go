package layout

import (
	"math"
	"sort"
)

// Pairer matches static labels with the nearest unclaimed data-like item.
// Assignment is greedy: labels are processed in reading order (top-down, then
// left-right) and each accepted data item is withdrawn from later candidacy.
type Pairer struct {
	cfg Config
}

// NewPairer creates a pairer with the given thresholds.
func NewPairer(cfg Config) *Pairer {
	return &Pairer{cfg: cfg}
}

// Pair finds label-data pairs among the given component IDs. labelIDs and
// candidateIDs index into components; the returned relation is symmetric and
// each component appears in at most one pair.
func (p *Pairer) Pair(components []Component, labelIDs, candidateIDs []int) ([]LabelDataPair, map[int]int) {
	pairs := []LabelDataPair{}
	pairedWith := map[int]int{}

	// Reading order makes greedy assignment independent of input ordering
	// for identical geometry.
	ordered := append([]int(nil), labelIDs...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := components[ordered[i]], components[ordered[j]]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Text < b.Text
	})

	claimed := map[int]bool{}

	for _, labelID := range ordered {
		label := components[labelID]

		bestID := -1
		bestDistance := math.MaxFloat64
		for _, candID := range candidateIDs {
			if claimed[candID] || candID == labelID {
				continue
			}
			cand := components[candID]
			if !p.adjacent(label, cand) {
				continue
			}
			d := label.CenterDistance(cand.TextItem)
			if d < bestDistance {
				bestDistance = d
				bestID = candID
			}
		}
		if bestID < 0 {
			continue
		}

		proximity := p.proximity(bestDistance)
		if proximity <= p.cfg.MinPairingProximity {
			continue
		}

		pairs = append(pairs, LabelDataPair{LabelID: labelID, DataID: bestID, Proximity: proximity})
		pairedWith[labelID] = bestID
		pairedWith[bestID] = labelID
		claimed[bestID] = true
	}

	return pairs, pairedWith
}

// adjacent reports whether the candidate sits in an acceptable position
// relative to the label: on the same row to its right, or below it in the
// same column.
func (p *Pairer) adjacent(label, cand Component) bool {
	sameRowRightOf := cand.X > label.Right() &&
		math.Abs(cand.Y-label.Y) < p.cfg.RowTolerance
	belowAligned := cand.Y > label.Bottom() &&
		math.Abs(cand.X-label.X) < p.cfg.ColumnTolerance
	return sameRowRightOf || belowAligned
}

// proximity converts a center distance into a [0,1] score, 1 meaning
// coincident centers and 0 meaning at or beyond the maximum distance.
func (p *Pairer) proximity(distance float64) float64 {
	if p.cfg.MaxPairingDistance <= 0 {
		return 0
	}
	return math.Max(0, 1-distance/p.cfg.MaxPairingDistance)
}
