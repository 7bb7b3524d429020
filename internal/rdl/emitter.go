// Package rdl renders an analyzed page layout into an SSRS report
// definition (RDL 2016) document.
package rdl

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/layoutforge/rdlgen/internal/layout"
)

//go:embed templates/report.tmpl
var templateFS embed.FS

// Document is the template-facing model of one report.
type Document struct {
	ReportName  string
	DataSetName string
	PageWidth   string
	PageHeight  string

	Fields []layout.FieldMapping

	HeaderBoxes []layout.Textbox
	BodyBoxes   []layout.Textbox
	FooterBoxes []layout.Textbox

	Tables []Tablix
}

// Tablix is one detected table prepared for rendering.
type Tablix struct {
	Name    string
	Top     string
	Left    string
	Width   string
	Height  string
	Columns []TablixColumn
}

// TablixColumn carries a column title and the data expression bound to it.
// HeaderName and CellName are the unique textbox names for the two cells.
type TablixColumn struct {
	Title      string
	Expression string
	Width      string
	HeaderName string
	CellName   string
}

// Emitter renders Analysis results through the embedded RDL template.
type Emitter struct {
	tmpl *template.Template
}

// NewEmitter parses the embedded template. Parse failures indicate a broken
// build, so they surface as errors rather than panics.
func NewEmitter() (*Emitter, error) {
	tmpl, err := template.New("report.tmpl").Funcs(template.FuncMap{
		"xml": escapeXML,
	}).ParseFS(templateFS, "templates/report.tmpl")
	if err != nil {
		return nil, fmt.Errorf("error parsing RDL template: %w", err)
	}
	return &Emitter{tmpl: tmpl}, nil
}

// Emit renders the analysis into an RDL XML string.
func (e *Emitter) Emit(a *layout.Analysis, reportName string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("analysis cannot be nil")
	}
	if reportName == "" {
		reportName = "GeneratedReport"
	}

	doc := Document{
		ReportName:  reportName,
		DataSetName: "ReportData",
		PageWidth:   inches(a.PageWidth),
		PageHeight:  inches(a.PageHeight),
		Fields:      a.Fields,
		HeaderBoxes: a.Textboxes(layout.RegionHeader),
		BodyBoxes:   a.Textboxes(layout.RegionBody),
		FooterBoxes: a.Textboxes(layout.RegionFooter),
		Tables:      buildTablixes(a),
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("error rendering RDL template: %w", err)
	}
	return buf.String(), nil
}

// buildTablixes converts detected tables into renderable tablixes. Each
// column binds to the field generated from its header text.
func buildTablixes(a *layout.Analysis) []Tablix {
	data := a.TableData()
	tablixes := make([]Tablix, 0, len(a.Tables))

	for i, t := range a.Tables {
		view := data.Tables[i]
		tablix := Tablix{
			Name:   view.Name,
			Top:    view.Top,
			Left:   view.Left,
			Width:  view.Width,
			Height: view.Height,
		}

		colWidth := t.Bounds.Width
		if t.ColumnCount > 0 {
			colWidth = t.Bounds.Width / float64(t.ColumnCount)
		}

		for col, hid := range t.HeaderIDs {
			header := a.Components[hid]
			name := header.FieldName
			if name == "" {
				name = layout.FieldName(header.Text)
			}
			tablix.Columns = append(tablix.Columns, TablixColumn{
				Title:      header.Text,
				Expression: layout.FieldExpression(name),
				Width:      inches(colWidth),
				HeaderName: fmt.Sprintf("%sHeader%d", view.Name, col+1),
				CellName:   fmt.Sprintf("%sCell%d", view.Name, col+1),
			})
		}
		tablixes = append(tablixes, tablix)
	}
	return tablixes
}

func inches(points float64) string {
	if points <= 0 {
		return "0.0000in"
	}
	return fmt.Sprintf("%.4fin", points/72.0)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
