package pdf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPageRejectsBadInput(t *testing.T) {
	tempDir := t.TempDir()

	notPDF := filepath.Join(tempDir, "notes.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("hello"), 0o644))

	fake := filepath.Join(tempDir, "fake.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("%PDF-1.7 but not really"), 0o644))

	big := filepath.Join(tempDir, "big.pdf")
	require.NoError(t, os.WriteFile(big, make([]byte, 4096), 0o644))

	tests := []struct {
		name        string
		req         ExtractPageRequest
		maxFileSize int64
	}{
		{name: "empty path", req: ExtractPageRequest{}},
		{name: "missing file", req: ExtractPageRequest{Path: filepath.Join(tempDir, "none.pdf")}},
		{name: "directory", req: ExtractPageRequest{Path: tempDir}},
		{name: "wrong extension", req: ExtractPageRequest{Path: notPDF}},
		{name: "too large", req: ExtractPageRequest{Path: big}, maxFileSize: 1024},
		{name: "unparseable pdf", req: ExtractPageRequest{Path: fake}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxSize := tt.maxFileSize
			if maxSize == 0 {
				maxSize = 1024 * 1024
			}
			reader := NewReader(maxSize)

			result, err := reader.ExtractPage(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExtraction), "error should wrap ErrExtraction: %v", err)
			assert.Nil(t, result, "no partial result on failure")
		})
	}
}

func TestAssembleItemsEmpty(t *testing.T) {
	items := assembleItems(nil, 792)
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestAssembleItemsMergesRuns(t *testing.T) {
	// Word-level runs on one baseline, gaps below the word threshold.
	runs := []pdf.Text{
		{S: "Invoice", X: 50, Y: 700, W: 40, FontSize: 12, Font: "Helvetica"},
		{S: "Number:", X: 94, Y: 700, W: 42, FontSize: 12, Font: "Helvetica"},
	}

	items := assembleItems(runs, 792)

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "Invoice Number:", item.Text)
	assert.Equal(t, 50.0, item.X)
	// Top-left origin: y = pageHeight - pdfY - height.
	assert.InDelta(t, 792-700-12, item.Y, 0.01)
	assert.InDelta(t, 86, item.Width, 0.01)
	assert.Equal(t, 12.0, item.FontSize)
	assert.Equal(t, "Helvetica", item.FontName)
}

func TestAssembleItemsGlyphRuns(t *testing.T) {
	// Character-level runs with negligible gaps join without spaces.
	runs := []pdf.Text{
		{S: "Q", X: 100, Y: 500, W: 8, FontSize: 10},
		{S: "t", X: 108, Y: 500, W: 4, FontSize: 10},
		{S: "y", X: 112, Y: 500, W: 5, FontSize: 10},
	}

	items := assembleItems(runs, 792)

	require.Len(t, items, 1)
	assert.Equal(t, "Qty", items[0].Text)
}

func TestAssembleItemsColumnBreak(t *testing.T) {
	// A gap wider than the word threshold starts a separate fragment.
	runs := []pdf.Text{
		{S: "Label:", X: 50, Y: 700, W: 30, FontSize: 10},
		{S: "Value", X: 200, Y: 700, W: 28, FontSize: 10},
	}

	items := assembleItems(runs, 792)

	require.Len(t, items, 2)
	assert.Equal(t, "Label:", items[0].Text)
	assert.Equal(t, "Value", items[1].Text)
}

func TestAssembleItemsLineBreak(t *testing.T) {
	runs := []pdf.Text{
		{S: "First", X: 50, Y: 700, W: 25, FontSize: 10},
		{S: "Second", X: 50, Y: 650, W: 35, FontSize: 10},
	}

	items := assembleItems(runs, 792)

	require.Len(t, items, 2)
	// Higher PDF Y renders first (top of page).
	assert.Equal(t, "First", items[0].Text)
	assert.Equal(t, "Second", items[1].Text)
	assert.Less(t, items[0].Y, items[1].Y, "top-of-page item should have the smaller top-left Y")
}

func TestAssembleItemsDropsBlankRuns(t *testing.T) {
	runs := []pdf.Text{
		{S: "  ", X: 10, Y: 700, W: 5, FontSize: 10},
		{S: "Text", X: 50, Y: 600, W: 20, FontSize: 10},
	}

	items := assembleItems(runs, 792)

	require.Len(t, items, 1)
	assert.Equal(t, "Text", items[0].Text)
}

func TestAssembleItemsBaselineJitter(t *testing.T) {
	// Sub-point baseline differences stay on one line.
	runs := []pdf.Text{
		{S: "Total", X: 50, Y: 700, W: 26, FontSize: 10},
		{S: "Due:", X: 80, Y: 700.8, W: 22, FontSize: 10},
	}

	items := assembleItems(runs, 792)

	require.Len(t, items, 1)
	assert.Equal(t, "Total Due:", items[0].Text)
}

func TestAssembleItemsDefaultHeight(t *testing.T) {
	runs := []pdf.Text{
		{S: "NoFont", X: 50, Y: 700, W: 30, FontSize: 0},
	}

	items := assembleItems(runs, 792)

	require.Len(t, items, 1)
	assert.Equal(t, 12.0, items[0].Height, "missing font size falls back to 12pt height")
}
