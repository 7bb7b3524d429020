package layout

// assignRegions partitions components into header, body and footer bands
// based on the vertical span the text actually occupies. Every component is
// assigned exactly one region.
//
// The header threshold is measured from the topmost item, the footer
// threshold from the bottommost. An item straddling both thresholds (only
// possible on very short pages) resolves toward header.
func assignRegions(components []Component, cfg Config) map[Region][]int {
	regions := map[Region][]int{
		RegionHeader: {},
		RegionBody:   {},
		RegionFooter: {},
	}
	if len(components) == 0 {
		return regions
	}

	minY := components[0].Y
	maxY := components[0].Y
	for _, c := range components {
		if c.Y < minY {
			minY = c.Y
		}
		if c.Y > maxY {
			maxY = c.Y
		}
	}

	span := maxY - minY
	if span <= 0 {
		// Single item or a degenerate one-line page. Everything is body.
		for i := range components {
			components[i].Region = RegionBody
			regions[RegionBody] = append(regions[RegionBody], components[i].ID)
		}
		return regions
	}

	headerThreshold := minY + span*cfg.HeaderBandRatio
	footerThreshold := maxY - span*cfg.FooterBandRatio

	for i := range components {
		c := &components[i]
		switch {
		case c.Y < headerThreshold:
			c.Region = RegionHeader
		case c.Bottom() > footerThreshold:
			c.Region = RegionFooter
		default:
			c.Region = RegionBody
		}
		regions[c.Region] = append(regions[c.Region], c.ID)
	}

	return regions
}
