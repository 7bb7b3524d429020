package layout

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/layoutforge/rdlgen/internal/zeroshot"
)

// Analyzer runs the full analysis pipeline for one page: region
// segmentation, component classification, table detection, label-data
// pairing and field-mapping generation.
type Analyzer struct {
	cfg        Config
	vocab      *Vocabulary
	classifier *ComponentClassifier
	pairer     *Pairer
	tables     *TableDetector
}

// NewAnalyzer creates an analyzer with default thresholds and no external
// refiner.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(DefaultConfig(), nil, nil)
}

// NewAnalyzerWithConfig creates an analyzer with custom thresholds, an
// optional custom vocabulary and an optional zero-shot refiner.
func NewAnalyzerWithConfig(cfg Config, vocab *Vocabulary, refiner zeroshot.Classifier) *Analyzer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Analyzer{
		cfg:        cfg,
		vocab:      vocab,
		classifier: NewComponentClassifierWithRefiner(cfg, vocab, refiner),
		pairer:     NewPairer(cfg),
		tables:     NewTableDetector(cfg, vocab),
	}
}

// Analyze runs the pipeline over one page's text items. An empty item set is
// a valid input and produces an empty Analysis with overall confidence 0.
// Zero-shot refiner failures degrade to rule-based results and are recorded
// as a warning, never returned as an error.
func (a *Analyzer) Analyze(ctx context.Context, items []TextItem, pageWidth, pageHeight float64) (*Analysis, error) {
	start := time.Now()

	analysis := &Analysis{
		PageWidth:  pageWidth,
		PageHeight: pageHeight,
		Regions: map[Region][]int{
			RegionHeader: {},
			RegionBody:   {},
			RegionFooter: {},
		},
		Tables:     []Table{},
		Pairs:      []LabelDataPair{},
		PairedWith: map[int]int{},
		Fields:     []FieldMapping{},
		Metadata: RunMetadata{
			RunID:      uuid.New().String(),
			AnalyzedAt: start,
		},
	}

	components := buildComponents(items)
	analysis.Components = components
	if len(components) == 0 {
		analysis.Metadata.Duration = time.Since(start)
		return analysis, nil
	}

	stats := pageStats{
		avgFontSize: averageFontSize(components),
		pageWidth:   pageWidth,
	}

	// Stage 1: regions.
	analysis.Regions = assignRegions(components, a.cfg)
	used := []string{"regions"}

	// Stage 2: classification, then zero-shot refinement of uncertain
	// results. Refinement completes for every component before any pairing
	// state is touched.
	refinerFailed := false
	for i := range components {
		c := &components[i]
		rule := a.classifier.Classify(c.TextItem, stats)
		if !refinerFailed {
			refined, _, err := a.classifier.Refine(ctx, c.TextItem, rule)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// Degrade to rule-based results for the rest of the run.
				refinerFailed = true
			} else {
				rule = refined
			}
		}
		c.Kind = rule.Kind
		c.Confidence = rule.Confidence
		c.Reasoning = rule.Reasoning
	}
	used = append(used, "classifier")
	if refinerFailed {
		analysis.Metadata.Warnings = append(analysis.Metadata.Warnings,
			"zero-shot refiner unavailable, rule-based classification only")
	}

	// Stage 3: table detection. Consumed items are excluded from pairing
	// and standalone reporting.
	tables, consumed := a.tables.Detect(components)
	analysis.Tables = tables
	used = append(used, "tables")

	// Stage 4: label-data pairing among unconsumed components.
	var labelIDs, candidateIDs []int
	for i := range components {
		if consumed[components[i].ID] {
			continue
		}
		switch components[i].Kind {
		case KindStaticLabel:
			labelIDs = append(labelIDs, components[i].ID)
		case KindDynamicData, KindStandaloneText:
			candidateIDs = append(candidateIDs, components[i].ID)
		}
	}
	analysis.Pairs, analysis.PairedWith = a.pairer.Pair(components, labelIDs, candidateIDs)
	used = append(used, "pairing")

	// Stage 5: field mappings for paired labels and table headers,
	// first-seen-wins on name collisions.
	a.assignFieldMappings(analysis)
	used = append(used, "fields")

	analysis.OverallConfidence = overallConfidence(components)
	analysis.Metadata.ComponentsUsed = used
	analysis.Metadata.Duration = time.Since(start)

	return analysis, nil
}

// buildComponents trims input text and drops empty items, assigning IDs by
// index.
func buildComponents(items []TextItem) []Component {
	components := make([]Component, 0, len(items))
	for _, item := range items {
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			continue
		}
		if !item.Bold && item.FontName != "" {
			item.Bold = strings.Contains(strings.ToLower(item.FontName), "bold")
		}
		if !item.Italic && item.FontName != "" {
			lower := strings.ToLower(item.FontName)
			item.Italic = strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")
		}
		components = append(components, Component{
			TextItem: item,
			ID:       len(components),
			Region:   RegionBody,
		})
	}
	return components
}

func averageFontSize(components []Component) float64 {
	total := 0.0
	count := 0
	for i := range components {
		if components[i].FontSize > 0 {
			total += components[i].FontSize
			count++
		}
	}
	if count == 0 {
		return 12.0
	}
	return total / float64(count)
}

func overallConfidence(components []Component) float64 {
	if len(components) == 0 {
		return 0
	}
	total := 0.0
	for i := range components {
		total += components[i].Confidence
	}
	return total / float64(len(components))
}

// assignFieldMappings derives identifiers for every paired label and table
// header and builds the global field table. The first label to claim a name
// keeps it; later collisions map to the same data field.
func (a *Analyzer) assignFieldMappings(analysis *Analysis) {
	seen := map[string]bool{}

	add := func(c *Component, description string) {
		name := FieldName(c.Text)
		c.FieldName = name
		if seen[name] {
			return
		}
		seen[name] = true
		analysis.Fields = append(analysis.Fields, FieldMapping{
			Name:        name,
			DataField:   name,
			TypeName:    InferTypeName(name),
			Description: description,
		})
	}

	for _, pair := range analysis.Pairs {
		label := &analysis.Components[pair.LabelID]
		add(label, fmt.Sprintf("value for label %q", label.Text))
		// The paired value binds to the label's field.
		analysis.Components[pair.DataID].FieldName = label.FieldName
	}

	for _, table := range analysis.Tables {
		for _, hid := range table.HeaderIDs {
			header := &analysis.Components[hid]
			add(header, fmt.Sprintf("table column %q", header.Text))
		}
	}
}

// Textbox is the flattened, unit-converted projection of a component for the
// template emitter. Positions are inches with four decimal places.
type Textbox struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Top        string  `json:"top"`
	Left       string  `json:"left"`
	Width      string  `json:"width"`
	Height     string  `json:"height"`
	FontSize   string  `json:"font_size"`
	FontFamily string  `json:"font_family"`
	FontWeight string  `json:"font_weight"`
	Color      string  `json:"color"`
	Italic     bool    `json:"italic"`
	Type       Kind    `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Minimum rendered box sizes, in inches.
const (
	minBoxWidthIn  = 0.5
	minBoxHeightIn = 0.25
)

// Textboxes projects a region's components into emitter-ready textboxes.
// Components consumed by tables are skipped; dynamic components render as
// field expressions.
func (a *Analysis) Textboxes(region Region) []Textbox {
	consumed := map[int]bool{}
	for _, t := range a.Tables {
		for _, id := range t.HeaderIDs {
			consumed[id] = true
		}
		for _, row := range t.RowIDs {
			for _, id := range row {
				consumed[id] = true
			}
		}
	}

	boxes := []Textbox{}
	for _, id := range a.Regions[region] {
		c := a.Components[id]
		if consumed[id] {
			continue
		}

		// Component IDs are unique across the page, so the names stay unique
		// even when a label and its value share a field name.
		name := fmt.Sprintf("Textbox%d", c.ID+1)

		value := c.Text
		if c.Kind == KindDynamicData && c.FieldName != "" {
			value = FieldExpression(c.FieldName)
		}

		weight := "Normal"
		if c.Bold {
			weight = "Bold"
		}
		color := c.Color
		if color == "" {
			color = "Black"
		}
		fontFamily := c.FontName
		if fontFamily == "" {
			fontFamily = "Arial"
		}

		boxes = append(boxes, Textbox{
			Name:       name,
			Value:      value,
			Top:        formatInches(c.Y, 0),
			Left:       formatInches(c.X, 0),
			Width:      formatInches(c.Width, minBoxWidthIn),
			Height:     formatInches(c.Height, minBoxHeightIn),
			FontSize:   formatPoints(c.FontSize),
			FontFamily: fontFamily,
			FontWeight: weight,
			Color:      color,
			Italic:     c.Italic,
			Type:       c.Kind,
			Confidence: c.Confidence,
		})
	}
	return boxes
}

// TableView is a table resolved to text for the emitter.
type TableView struct {
	Name    string      `json:"name"`
	Headers []string    `json:"headers"`
	Rows    [][]string  `json:"rows"`
	Top     string      `json:"top"`
	Left    string      `json:"left"`
	Width   string      `json:"width"`
	Height  string      `json:"height"`
	Bounds  BoundingBox `json:"bounds"`
}

// TableData is the emitter-facing projection of detected tables and the
// global field list.
type TableData struct {
	Tables []TableView    `json:"tables"`
	Fields []FieldMapping `json:"fields"`
}

// TableData resolves tables and fields for the template emitter.
func (a *Analysis) TableData() TableData {
	data := TableData{Tables: []TableView{}, Fields: a.Fields}

	for i, t := range a.Tables {
		view := TableView{
			Name:   fmt.Sprintf("Table%d", i+1),
			Top:    formatInches(t.Bounds.Y, 0),
			Left:   formatInches(t.Bounds.X, 0),
			Width:  formatInches(t.Bounds.Width, minBoxWidthIn),
			Height: formatInches(t.Bounds.Height, minBoxHeightIn),
			Bounds: t.Bounds,
		}
		for _, hid := range t.HeaderIDs {
			view.Headers = append(view.Headers, a.Components[hid].Text)
		}
		for _, row := range t.RowIDs {
			cells := make([]string, 0, len(row))
			for _, id := range row {
				cells = append(cells, a.Components[id].Text)
			}
			view.Rows = append(view.Rows, cells)
		}
		data.Tables = append(data.Tables, view)
	}

	return data
}

// formatInches converts page points to an RDL length string ("0.6944in"),
// clamping degenerate values so the output never carries NaN or Inf.
func formatInches(points, minInches float64) string {
	v := points / 72.0
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		v = 0
	}
	if v < minInches {
		v = minInches
	}
	return fmt.Sprintf("%.4fin", v)
}

// formatPoints renders a font size, defaulting degenerate values to 10pt.
func formatPoints(size float64) string {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		size = 10
	}
	return fmt.Sprintf("%.0fpt", size)
}
