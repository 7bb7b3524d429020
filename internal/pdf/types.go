package pdf

import (
	"errors"

	"github.com/layoutforge/rdlgen/internal/layout"
)

// ErrExtraction marks fatal extraction failures: the document could not be
// opened or parsed, and no partial analysis is possible.
var ErrExtraction = errors.New("could not analyze document")

// Standard US Letter dimensions in points, used when a page carries no
// usable MediaBox.
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

// ExtractPageRequest asks for the positioned text of one page.
type ExtractPageRequest struct {
	Path string
	Page int // 1-based; 0 means page 1
}

// PageLayout is the extraction result: text fragments in top-left-origin
// page points, ready for layout analysis.
type PageLayout struct {
	Path   string            `json:"path"`
	Page   int               `json:"page"`
	Width  float64           `json:"width"`
	Height float64           `json:"height"`
	Items  []layout.TextItem `json:"items"`
}

// ValidateFileRequest asks whether a file is a readable PDF.
type ValidateFileRequest struct {
	Path string
}

// ValidateFileResult reports validation outcome without failing the call.
type ValidateFileResult struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}
