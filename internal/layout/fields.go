package layout

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes accented characters and strips the combining marks, so
// "Référence" cleans to "Reference" before identifier generation.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FieldName derives a stable PascalCase identifier from label or header text.
// It is deterministic and idempotent: FieldName(FieldName(s)) == FieldName(s).
// Input that cleans down to nothing yields the "Field1" placeholder, never an
// empty string.
func FieldName(text string) string {
	folded, _, err := transform.String(asciiFold, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Everything else (punctuation, symbols) is dropped.
	}

	var name strings.Builder
	for _, token := range strings.Fields(b.String()) {
		r := []rune(token)
		name.WriteRune(unicode.ToUpper(r[0]))
		for _, rest := range r[1:] {
			name.WriteRune(rest)
		}
	}

	if name.Len() == 0 {
		return "Field1"
	}
	return name.String()
}

// InferTypeName guesses a .NET data type for a generated field from naming
// heuristics, for the emitted data-set schema.
func InferTypeName(fieldName string) string {
	lower := strings.ToLower(fieldName)
	switch {
	case strings.Contains(lower, "date"):
		return "System.DateTime"
	case strings.Contains(lower, "amount"),
		strings.Contains(lower, "price"),
		strings.Contains(lower, "total"),
		strings.Contains(lower, "cost"):
		return "System.Decimal"
	case strings.Contains(lower, "quantity"),
		strings.Contains(lower, "count"),
		strings.Contains(lower, "id"):
		return "System.Int32"
	default:
		return "System.String"
	}
}

// FieldExpression returns the report expression binding a field name to its
// data-set value.
func FieldExpression(fieldName string) string {
	return "=Fields!" + fieldName + ".Value"
}
