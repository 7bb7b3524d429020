package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Validator checks whether a file is a readable PDF before analysis.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator with the specified file size constraint.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// ValidateFile performs validation on a PDF file. Validation problems are
// reported in the result, not as errors; the error return is reserved for
// processing failures.
func (v *Validator) ValidateFile(req ValidateFileRequest) (*ValidateFileResult, error) {
	result := &ValidateFileResult{
		Path:  req.Path,
		Valid: false,
	}

	if err := v.validatePDFFile(req.Path); err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation outcome, not a processing error
	}

	result.Valid = true
	return result, nil
}

// validatePDFFile performs detailed validation on a PDF file: basic file
// checks, the %PDF header magic, and a structural pass with pdfcpu.
func (v *Validator) validatePDFFile(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file does not have a .pdf extension: %s", filePath)
	}
	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}
	if v.maxFileSize > 0 && fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), v.maxFileSize)
	}

	if err := v.checkPDFHeader(filePath); err != nil {
		return err
	}

	if err := api.ValidateFile(filePath, nil); err != nil {
		return fmt.Errorf("PDF structure validation failed: %w", err)
	}

	return nil
}

// checkPDFHeader verifies the file starts with the PDF magic bytes.
func (v *Validator) checkPDFHeader(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	header := make([]byte, 5)
	if _, err := file.Read(header); err != nil {
		return fmt.Errorf("cannot read file header: %w", err)
	}
	if string(header) != "%PDF-" {
		return fmt.Errorf("file is not a valid PDF (missing %%PDF header)")
	}

	return nil
}
