package layout

import (
	"math"
	"time"
)

// Region represents the vertical band of the page an item belongs to.
type Region string

const (
	RegionHeader Region = "header"
	RegionBody   Region = "body"
	RegionFooter Region = "footer"
)

// Kind represents the semantic classification of a text item.
type Kind string

const (
	KindStaticLabel    Kind = "static_label"
	KindDynamicData    Kind = "dynamic_data"
	KindTableHeader    Kind = "table_header"
	KindStandaloneText Kind = "standalone_text"
)

// IsValid checks if the kind is one of the four supported classifications.
func (k Kind) IsValid() bool {
	switch k {
	case KindStaticLabel, KindDynamicData, KindTableHeader, KindStandaloneText:
		return true
	default:
		return false
	}
}

// TextItem is a positioned text fragment supplied by the extraction boundary.
// Coordinates use a top-left origin in page points (72 per inch).
type TextItem struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"font_size"`
	FontName string  `json:"font_name,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// CenterX returns the horizontal center of the item.
func (t TextItem) CenterX() float64 {
	return t.X + t.Width/2
}

// CenterY returns the vertical center of the item.
func (t TextItem) CenterY() float64 {
	return t.Y + t.Height/2
}

// Right returns the right edge of the item.
func (t TextItem) Right() float64 {
	return t.X + t.Width
}

// Bottom returns the bottom edge of the item.
func (t TextItem) Bottom() float64 {
	return t.Y + t.Height
}

// CenterDistance returns the Euclidean distance between the centers of two items.
func (t TextItem) CenterDistance(other TextItem) float64 {
	dx := t.CenterX() - other.CenterX()
	dy := t.CenterY() - other.CenterY()
	return math.Sqrt(dx*dx + dy*dy)
}

// BoundingBox is an axis-aligned rectangle in top-left-origin page space.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoxOf returns the bounding box of a single item.
func BoxOf(t TextItem) BoundingBox {
	return BoundingBox{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height}
}

// Union returns the smallest box containing both boxes.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	x := math.Min(b.X, other.X)
	y := math.Min(b.Y, other.Y)
	right := math.Max(b.X+b.Width, other.X+other.Width)
	bottom := math.Max(b.Y+b.Height, other.Y+other.Height)
	return BoundingBox{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Contains reports whether the box fully contains the other box.
func (b BoundingBox) Contains(other BoundingBox) bool {
	return other.X >= b.X && other.Y >= b.Y &&
		other.X+other.Width <= b.X+b.Width+1e-9 &&
		other.Y+other.Height <= b.Y+b.Height+1e-9
}

// Component is a TextItem enriched by the analysis pipeline. Components are
// identified by their index into Analysis.Components; pairing is kept as an
// index relation on the Analysis rather than as embedded back-pointers.
type Component struct {
	TextItem

	ID         int     `json:"id"`
	Kind       Kind    `json:"kind"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Region     Region  `json:"region"`
	FieldName  string  `json:"field_name,omitempty"`
}

// LabelDataPair links a static label to the dynamic value it captions.
// Proximity is a normalized inverse-distance score in [0,1].
type LabelDataPair struct {
	LabelID   int     `json:"label_id"`
	DataID    int     `json:"data_id"`
	Proximity float64 `json:"proximity"`
}

// Table is a detected tabular structure. HeaderIDs and RowIDs reference
// component IDs; rows may be ragged but never wider than ColumnCount.
type Table struct {
	HeaderIDs   []int       `json:"header_ids"`
	RowIDs      [][]int     `json:"row_ids"`
	Bounds      BoundingBox `json:"bounds"`
	ColumnCount int         `json:"column_count"`
	RowCount    int         `json:"row_count"`
}

// FieldMapping binds a generated identifier to a report data-set field.
type FieldMapping struct {
	Name        string `json:"name"`
	DataField   string `json:"data_field"`
	TypeName    string `json:"type_name"`
	Description string `json:"description,omitempty"`
}

// RunMetadata records how an analysis run was performed.
type RunMetadata struct {
	RunID          string        `json:"run_id"`
	AnalyzedAt     time.Time     `json:"analyzed_at"`
	Duration       time.Duration `json:"duration"`
	ComponentsUsed []string      `json:"components_used"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// Analysis is the assembled result of analyzing one page. It is built once
// and treated as read-only by consumers.
type Analysis struct {
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`

	Components []Component      `json:"components"`
	Regions    map[Region][]int `json:"regions"`
	Tables     []Table          `json:"tables"`
	Pairs      []LabelDataPair  `json:"pairs"`

	// PairedWith maps a component ID to its partner's ID. The relation is
	// symmetric: PairedWith[a] == b implies PairedWith[b] == a.
	PairedWith map[int]int `json:"paired_with"`

	Fields []FieldMapping `json:"fields"`

	OverallConfidence float64     `json:"overall_confidence"`
	Metadata          RunMetadata `json:"metadata"`
}

// Component returns the component with the given ID, or nil if out of range.
func (a *Analysis) Component(id int) *Component {
	if id < 0 || id >= len(a.Components) {
		return nil
	}
	return &a.Components[id]
}

// RegionComponents returns the components assigned to a region, in ID order.
func (a *Analysis) RegionComponents(r Region) []Component {
	ids := a.Regions[r]
	out := make([]Component, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.Components[id])
	}
	return out
}
