package pdf

import (
	"fmt"
	"path/filepath"
)

// Service is the extraction boundary the analysis pipeline and the MCP
// server talk to.
type Service struct {
	maxFileSize int64
	reader      *Reader
	validator   *Validator
}

// NewService creates a PDF service with all components.
func NewService(maxFileSize int64) *Service {
	return &Service{
		maxFileSize: maxFileSize,
		reader:      NewReader(maxFileSize),
		validator:   NewValidator(maxFileSize),
	}
}

// ExtractPageLayout extracts the positioned text of one page.
func (s *Service) ExtractPageLayout(req ExtractPageRequest) (*PageLayout, error) {
	path, err := normalizePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	req.Path = path
	return s.reader.ExtractPage(req)
}

// ValidateFile performs validation on a PDF file.
func (s *Service) ValidateFile(req ValidateFileRequest) (*ValidateFileResult, error) {
	path, err := normalizePath(req.Path)
	if err != nil {
		return &ValidateFileResult{Path: req.Path, Message: err.Error()}, nil
	}
	req.Path = path
	return s.validator.ValidateFile(req)
}

// normalizePath resolves the path to an absolute, cleaned form.
func normalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %s: %v", path, err)
	}
	return abs, nil
}
