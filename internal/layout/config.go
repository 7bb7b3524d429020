package layout

import "time"

// Config holds the tunable thresholds of the analysis pipeline. The geometry
// constants vary between scanned corpora, so every one of them is exposed
// here rather than hard-coded.
type Config struct {
	// Region segmentation. Band ratios are fractions of the vertical span
	// actually covered by text, not of the physical page.
	HeaderBandRatio float64 `json:"header_band_ratio"`
	FooterBandRatio float64 `json:"footer_band_ratio"`

	// Label-data pairing.
	RowTolerance        float64 `json:"row_tolerance"`         // same-row Y slack, points
	ColumnTolerance     float64 `json:"column_tolerance"`      // below-aligned X slack, points
	MaxPairingDistance  float64 `json:"max_pairing_distance"`  // distance at which proximity reaches 0
	MinPairingProximity float64 `json:"min_pairing_proximity"` // pairs below this score are rejected

	// Table detection.
	TableRowTolerance    float64 `json:"table_row_tolerance"`    // Y merge slack for row bands
	ColumnAlignTolerance float64 `json:"column_align_tolerance"` // X slack for header alignment
	UniformGapRatio      float64 `json:"uniform_gap_ratio"`      // max deviation from mean gap
	BoldHeaderRatio      float64 `json:"bold_header_ratio"`      // min bold share for header rows
	RowAlignedRatio      float64 `json:"row_aligned_ratio"`      // min aligned share for data rows

	// Classification.
	MaxLabelLength      int     `json:"max_label_length"`      // uppercase-label length cutoff
	LongTextLength      int     `json:"long_text_length"`      // beyond this, treat as data/prose
	HeaderFontSizeRatio float64 `json:"header_font_size_ratio"`
	LeftColumnRatio     float64 `json:"left_column_ratio"` // share of page width counted as left column

	// Zero-shot refinement.
	RefineThreshold float64       `json:"refine_threshold"` // refine results at or below this confidence
	RuleWeight      float64       `json:"rule_weight"`
	ModelWeight     float64       `json:"model_weight"`
	RefineTimeout   time.Duration `json:"refine_timeout"`
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		HeaderBandRatio:      0.20,
		FooterBandRatio:      0.15,
		RowTolerance:         15,
		ColumnTolerance:      75,
		MaxPairingDistance:   250,
		MinPairingProximity:  0.35,
		TableRowTolerance:    10,
		ColumnAlignTolerance: 20,
		UniformGapRatio:      0.30,
		BoldHeaderRatio:      0.50,
		RowAlignedRatio:      0.60,
		MaxLabelLength:       25,
		LongTextLength:       30,
		HeaderFontSizeRatio:  1.2,
		LeftColumnRatio:      0.30,
		RefineThreshold:      0.80,
		RuleWeight:           0.70,
		ModelWeight:          0.30,
		RefineTimeout:        2 * time.Second,
	}
}
