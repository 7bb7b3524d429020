package pdf

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/layoutforge/rdlgen/internal/layout"
)

// Reader extracts positioned text fragments from PDF files.
type Reader struct {
	maxFileSize int64
}

// NewReader creates a reader with the specified file size constraint.
func NewReader(maxFileSize int64) *Reader {
	return &Reader{maxFileSize: maxFileSize}
}

// ExtractPage opens the document and returns the positioned text of one page
// in top-left-origin coordinates. Failures wrap ErrExtraction; no partial
// result is returned.
func (r *Reader) ExtractPage(req ExtractPageRequest) (*PageLayout, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrExtraction)
	}

	fileInfo, err := os.Stat(req.Path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: file does not exist: %s", ErrExtraction, req.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot access file: %v", ErrExtraction, err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%w: path is a directory: %s", ErrExtraction, req.Path)
	}
	if !strings.HasSuffix(strings.ToLower(req.Path), ".pdf") {
		return nil, fmt.Errorf("%w: file is not a PDF: %s", ErrExtraction, req.Path)
	}
	if r.maxFileSize > 0 && fileInfo.Size() > r.maxFileSize {
		return nil, fmt.Errorf("%w: file too large: %d bytes (max: %d)",
			ErrExtraction, fileInfo.Size(), r.maxFileSize)
	}

	pageNum := req.Page
	if pageNum < 1 {
		pageNum = 1
	}

	f, pdfReader, err := pdf.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", ErrExtraction, err)
	}
	defer f.Close()

	if pageNum > pdfReader.NumPage() {
		return nil, fmt.Errorf("%w: page %d out of range (document has %d pages)",
			ErrExtraction, pageNum, pdfReader.NumPage())
	}

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d has no content", ErrExtraction, pageNum)
	}

	width, height := pageSize(page)

	var content pdf.Content
	func() {
		// ledongthuc/pdf panics on some malformed content streams.
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("%w: content stream parse failure: %v", ErrExtraction, rec)
			}
		}()
		content = page.Content()
	}()
	if err != nil {
		return nil, err
	}

	return &PageLayout{
		Path:   req.Path,
		Page:   pageNum,
		Width:  width,
		Height: height,
		Items:  assembleItems(content.Text, height),
	}, nil
}

// pageSize reads the page MediaBox, falling back to US Letter when absent.
func pageSize(page pdf.Page) (width, height float64) {
	width, height = DefaultPageWidth, DefaultPageHeight

	mb := page.V.Key("MediaBox")
	if mb.IsNull() || mb.Len() < 4 {
		return width, height
	}

	x0 := mb.Index(0).Float64()
	y0 := mb.Index(1).Float64()
	x1 := mb.Index(2).Float64()
	y1 := mb.Index(3).Float64()
	if x1 > x0 && y1 > y0 {
		width = x1 - x0
		height = y1 - y0
	}
	return width, height
}

// assembleItems merges raw glyph runs into word/phrase fragments and flips
// them into a top-left-origin coordinate space.
//
// ledongthuc/pdf reports runs at character or word granularity with a
// bottom-left origin. Runs on the same baseline are merged when the
// horizontal gap is small relative to the font size; a gap wide enough to
// read as whitespace inserts a space, a column-sized gap starts a new
// fragment.
func assembleItems(runs []pdf.Text, pageHeight float64) []layout.TextItem {
	if len(runs) == 0 {
		return []layout.TextItem{}
	}

	sorted := append([]pdf.Text(nil), runs...)
	sort.Slice(sorted, func(i, j int) bool {
		// Higher PDF Y first (top of page), then left to right. Y is
		// quantized to 2pt buckets so baseline jitter keeps X order.
		yi, yj := math.Round(sorted[i].Y/2), math.Round(sorted[j].Y/2)
		if yi != yj {
			return yi > yj
		}
		return sorted[i].X < sorted[j].X
	})

	var items []layout.TextItem
	var cur *fragment

	for _, run := range sorted {
		if strings.TrimSpace(run.S) == "" && cur == nil {
			continue
		}

		if cur != nil && cur.sameLine(run) {
			gap := run.X - cur.right
			switch {
			case gap <= cur.wordGap():
				cur.append(run, gap > cur.charGap())
				continue
			default:
				// Column break: flush and start a new fragment.
				items = appendFragment(items, cur, pageHeight)
			}
		} else if cur != nil {
			items = appendFragment(items, cur, pageHeight)
		}
		cur = newFragment(run)
	}
	items = appendFragment(items, cur, pageHeight)

	return items
}

// fragment accumulates adjacent runs on one baseline.
type fragment struct {
	text     strings.Builder
	x, y     float64
	right    float64
	fontSize float64
	font     string
}

func newFragment(run pdf.Text) *fragment {
	f := &fragment{
		x:        run.X,
		y:        run.Y,
		right:    run.X + run.W,
		fontSize: run.FontSize,
		font:     run.Font,
	}
	f.text.WriteString(run.S)
	return f
}

func (f *fragment) sameLine(run pdf.Text) bool {
	tolerance := f.fontSize * 0.25
	if tolerance < 1 {
		tolerance = 1
	}
	return run.Y >= f.y-tolerance && run.Y <= f.y+tolerance
}

// wordGap is the widest gap still read as intra-fragment whitespace.
func (f *fragment) wordGap() float64 {
	if f.fontSize <= 0 {
		return 6
	}
	return f.fontSize * 1.2
}

// charGap is the threshold above which a space is inserted between runs.
func (f *fragment) charGap() float64 {
	if f.fontSize <= 0 {
		return 1
	}
	return f.fontSize * 0.18
}

func (f *fragment) append(run pdf.Text, addSpace bool) {
	if addSpace && !strings.HasSuffix(f.text.String(), " ") {
		f.text.WriteString(" ")
	}
	f.text.WriteString(run.S)
	if run.X+run.W > f.right {
		f.right = run.X + run.W
	}
	if run.FontSize > f.fontSize {
		f.fontSize = run.FontSize
	}
}

func appendFragment(items []layout.TextItem, f *fragment, pageHeight float64) []layout.TextItem {
	if f == nil {
		return items
	}
	text := strings.TrimSpace(f.text.String())
	if text == "" {
		return items
	}

	height := f.fontSize
	if height <= 0 {
		height = 12.0
	}

	items = append(items, layout.TextItem{
		Text:     text,
		X:        f.x,
		Y:        pageHeight - f.y - height, // flip to top-left origin
		Width:    f.right - f.x,
		Height:   height,
		FontSize: f.fontSize,
		FontName: f.font,
	})
	return items
}
