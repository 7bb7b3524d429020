package layout

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the token lists the rule-based classifier matches against.
// The built-in lists cover common invoice and report layouts; additional
// tokens can be appended from a YAML file for domain-specific documents.
type Vocabulary struct {
	columnHeaders map[string]bool
	knownLabels   map[string]bool
	phraseMarkers []string
}

// vocabularyFile is the on-disk shape of a custom vocabulary.
type vocabularyFile struct {
	ColumnHeaders []string `yaml:"column_headers"`
	KnownLabels   []string `yaml:"known_labels"`
	PhraseMarkers []string `yaml:"phrase_markers"`
}

// DefaultVocabulary returns the built-in token lists.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		columnHeaders: make(map[string]bool),
		knownLabels:   make(map[string]bool),
	}

	for _, tok := range []string{
		"item", "items", "description", "qty", "quantity", "price",
		"unit price", "unit cost", "amount", "total", "subtotal", "sku",
		"no", "no.", "#", "date", "rate", "hours", "tax", "discount",
		"line total", "product", "service", "code", "units", "cost",
	} {
		v.columnHeaders[tok] = true
	}

	for _, label := range []string{
		"ship to", "bill to", "sold to", "remit to", "invoice", "invoice #",
		"invoice no", "invoice no.", "invoice number", "invoice date",
		"customer", "customer id", "customer no", "account", "account no",
		"account number", "po number", "p.o. number", "purchase order",
		"order number", "order date", "due date", "terms", "payment terms",
		"balance due", "amount due", "total due", "phone", "fax", "email",
		"attention", "attn", "reference", "date", "salesperson", "project",
	} {
		v.knownLabels[label] = true
	}

	v.phraseMarkers = []string{" TO ", " NUMBER ", " DATE ", " CODE ", " NO. ", " ID "}

	return v
}

// LoadVocabularyFile appends custom tokens from a YAML file to the built-in
// vocabulary.
func (v *Vocabulary) LoadVocabularyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	for _, tok := range file.ColumnHeaders {
		if tok = strings.ToLower(strings.TrimSpace(tok)); tok != "" {
			v.columnHeaders[tok] = true
		}
	}
	for _, label := range file.KnownLabels {
		if label = strings.ToLower(strings.TrimSpace(label)); label != "" {
			v.knownLabels[label] = true
		}
	}
	for _, marker := range file.PhraseMarkers {
		if marker = strings.ToUpper(strings.TrimSpace(marker)); marker != "" {
			v.phraseMarkers = append(v.phraseMarkers, " "+marker+" ")
		}
	}

	return nil
}

// IsColumnHeader reports whether the text is a whole-token match for a known
// column header, case-insensitive. Trailing colons do not disqualify.
func (v *Vocabulary) IsColumnHeader(text string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.TrimSuffix(cleaned, ":")
	return v.columnHeaders[cleaned]
}

// IsKnownLabel reports whether the text matches the curated label list,
// ignoring case and trailing ':' / '#' decoration.
func (v *Vocabulary) IsKnownLabel(text string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.TrimRight(cleaned, ":# ")
	return v.knownLabels[cleaned]
}

// HasPhraseMarker reports whether the uppercased text contains one of the
// structural label phrases (" TO ", " NUMBER", ...). The text is padded with
// spaces so markers also match at the boundaries ("INVOICE DATE" hits " DATE").
func (v *Vocabulary) HasPhraseMarker(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	upper = strings.TrimRight(upper, ":# ")
	upper = " " + upper + " "
	for _, marker := range v.phraseMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
