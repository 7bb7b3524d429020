package layout

import (
	"math"
	"sort"
)

// TableDetector infers tabular structure from row and column alignment.
//
// Detection proceeds in three passes: items are grouped into horizontal row
// bands by Y proximity, bands are tested against header-row heuristics, and
// the bands below a header are matched against its column X positions.
type TableDetector struct {
	cfg   Config
	vocab *Vocabulary
}

// NewTableDetector creates a detector with the given thresholds.
func NewTableDetector(cfg Config, vocab *Vocabulary) *TableDetector {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &TableDetector{cfg: cfg, vocab: vocab}
}

// rowBand is a horizontal group of component IDs sharing a Y position.
type rowBand struct {
	ids  []int
	avgY float64
}

// Detect finds tables among the given components. Components consumed by a
// table are reported in the consumed set so the assembler can exclude them
// from standalone reporting.
func (td *TableDetector) Detect(components []Component) ([]Table, map[int]bool) {
	tables := []Table{}
	consumed := map[int]bool{}

	bands := td.groupRowBands(components)

	for i := 0; i < len(bands); i++ {
		if td.bandConsumed(bands[i], consumed) {
			continue
		}
		if !td.isHeaderBand(components, bands[i]) {
			continue
		}

		headerIDs := td.sortByX(components, bands[i].ids)
		var rows [][]int

		for j := i + 1; j < len(bands); j++ {
			if td.bandConsumed(bands[j], consumed) {
				continue
			}
			row, ok := td.alignRow(components, headerIDs, bands[j])
			if !ok {
				break
			}
			rows = append(rows, row)
		}

		// A header with nothing aligned beneath it is not a table.
		if len(rows) == 0 {
			continue
		}

		table := Table{
			HeaderIDs:   headerIDs,
			RowIDs:      rows,
			ColumnCount: len(headerIDs),
			RowCount:    len(rows),
			Bounds:      td.bounds(components, headerIDs, rows),
		}
		tables = append(tables, table)

		for _, id := range headerIDs {
			consumed[id] = true
		}
		for _, row := range rows {
			for _, id := range row {
				consumed[id] = true
			}
		}
	}

	return tables, consumed
}

// groupRowBands sorts components by Y and merges neighbours whose Y lies
// within tolerance of the band's running average, absorbing slight drift.
func (td *TableDetector) groupRowBands(components []Component) []rowBand {
	ids := make([]int, 0, len(components))
	for i := range components {
		ids = append(ids, components[i].ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := components[ids[i]], components[ids[j]]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	var bands []rowBand
	for _, id := range ids {
		y := components[id].Y
		if len(bands) > 0 {
			band := &bands[len(bands)-1]
			if math.Abs(y-band.avgY) <= td.cfg.TableRowTolerance {
				band.avgY = (band.avgY*float64(len(band.ids)) + y) / float64(len(band.ids)+1)
				band.ids = append(band.ids, id)
				continue
			}
		}
		bands = append(bands, rowBand{ids: []int{id}, avgY: y})
	}
	return bands
}

// isHeaderBand applies the header-row heuristics: at least two items, and
// either mostly bold, or containing a known column-header token, or spaced at
// roughly uniform X intervals.
func (td *TableDetector) isHeaderBand(components []Component, band rowBand) bool {
	if len(band.ids) < 2 {
		return false
	}

	bold := 0
	for _, id := range band.ids {
		c := components[id]
		if c.Bold {
			bold++
		}
		if td.vocab.IsColumnHeader(c.Text) {
			return true
		}
	}
	if float64(bold)/float64(len(band.ids)) >= td.cfg.BoldHeaderRatio {
		return true
	}

	return td.hasUniformGaps(components, band.ids)
}

// hasUniformGaps checks whether consecutive X gaps between sorted items stay
// within the configured ratio of the mean gap. Needs at least two gaps to be
// meaningful.
func (td *TableDetector) hasUniformGaps(components []Component, ids []int) bool {
	if len(ids) < 3 {
		return false
	}
	sorted := td.sortByX(components, ids)

	gaps := make([]float64, 0, len(sorted)-1)
	total := 0.0
	for i := 1; i < len(sorted); i++ {
		gap := components[sorted[i]].X - components[sorted[i-1]].X
		gaps = append(gaps, gap)
		total += gap
	}
	mean := total / float64(len(gaps))
	if mean <= 0 {
		return false
	}
	for _, gap := range gaps {
		if math.Abs(gap-mean) > mean*td.cfg.UniformGapRatio {
			return false
		}
	}
	return true
}

// alignRow tests a band against the header's column positions. A band
// qualifies when it has enough items and a sufficient share of them sit
// within tolerance of some header X position.
func (td *TableDetector) alignRow(components []Component, headerIDs []int, band rowBand) ([]int, bool) {
	minItems := int(math.Max(2, math.Ceil(float64(len(headerIDs))*0.5)))
	if len(band.ids) < minItems {
		return nil, false
	}

	sorted := td.sortByX(components, band.ids)
	aligned := 0
	for _, id := range sorted {
		if td.alignsWithHeader(components, headerIDs, components[id].X) {
			aligned++
		}
	}
	if float64(aligned)/float64(len(sorted)) < td.cfg.RowAlignedRatio {
		return nil, false
	}

	// Ragged rows are allowed, but never wider than the header.
	if len(sorted) > len(headerIDs) {
		sorted = sorted[:len(headerIDs)]
	}
	return sorted, true
}

func (td *TableDetector) alignsWithHeader(components []Component, headerIDs []int, x float64) bool {
	for _, hid := range headerIDs {
		if math.Abs(components[hid].X-x) <= td.cfg.ColumnAlignTolerance {
			return true
		}
	}
	return false
}

func (td *TableDetector) sortByX(components []Component, ids []int) []int {
	sorted := append([]int(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool {
		return components[sorted[i]].X < components[sorted[j]].X
	})
	return sorted
}

func (td *TableDetector) bandConsumed(band rowBand, consumed map[int]bool) bool {
	for _, id := range band.ids {
		if consumed[id] {
			return true
		}
	}
	return false
}

func (td *TableDetector) bounds(components []Component, headerIDs []int, rows [][]int) BoundingBox {
	box := BoxOf(components[headerIDs[0]].TextItem)
	for _, id := range headerIDs[1:] {
		box = box.Union(BoxOf(components[id].TextItem))
	}
	for _, row := range rows {
		for _, id := range row {
			box = box.Union(BoxOf(components[id].TextItem))
		}
	}
	return box
}
