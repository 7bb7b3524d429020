package layout

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/layoutforge/rdlgen/internal/zeroshot"
)

// RuleResult is the outcome of classifying a single text item.
type RuleResult struct {
	Kind       Kind    `json:"kind"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

var (
	leadingDigitRe  = regexp.MustCompile(`^\d`)
	multiDigitRe    = regexp.MustCompile(`\d{2,}`)
	emailRe         = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	dateRe          = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	currencyRe      = regexp.MustCompile(`\$\s?\d`)
	codeShapeRe     = regexp.MustCompile(`^[A-Za-z0-9]+([-_./][A-Za-z0-9]+)+$`)
	upperLettersRe  = regexp.MustCompile(`^[A-Z][A-Z\s]*$`)
	leadingLowerRe  = regexp.MustCompile(`^[a-z]`)
	trailingColonRe = regexp.MustCompile(`[:#]\s*$`)
)

// refinementLabels is the fixed candidate vocabulary sent to the zero-shot
// classifier. The mapping back onto the four-way classification is in
// kindForRefinementLabel.
var refinementLabels = []string{
	"form label",
	"table header",
	"data value",
	"title or heading",
	"address",
	"monetary amount",
	"date or time",
	"contact info",
}

func kindForRefinementLabel(label string) (Kind, bool) {
	switch label {
	case "form label":
		return KindStaticLabel, true
	case "table header":
		return KindTableHeader, true
	case "data value", "monetary amount", "date or time", "contact info", "address":
		return KindDynamicData, true
	case "title or heading":
		return KindStandaloneText, true
	default:
		return "", false
	}
}

// ComponentClassifier assigns each text item one of the four semantic kinds
// through a priority cascade of pattern tiers. An optional zero-shot refiner
// is consulted for low-confidence results; refiner failures never propagate.
type ComponentClassifier struct {
	cfg     Config
	vocab   *Vocabulary
	refiner zeroshot.Classifier
}

// NewComponentClassifier creates a classifier with the default vocabulary and
// no refiner.
func NewComponentClassifier(cfg Config) *ComponentClassifier {
	return &ComponentClassifier{
		cfg:     cfg,
		vocab:   DefaultVocabulary(),
		refiner: zeroshot.Disabled{},
	}
}

// NewComponentClassifierWithRefiner creates a classifier backed by an external
// zero-shot model for ambiguous items.
func NewComponentClassifierWithRefiner(cfg Config, vocab *Vocabulary, refiner zeroshot.Classifier) *ComponentClassifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if refiner == nil {
		refiner = zeroshot.Disabled{}
	}
	return &ComponentClassifier{cfg: cfg, vocab: vocab, refiner: refiner}
}

// pageStats carries page-level aggregates the style tiers need.
type pageStats struct {
	avgFontSize float64
	pageWidth   float64
}

// Classify runs the rule cascade on a single item. Tiers are checked in
// priority order and the first match wins.
func (cc *ComponentClassifier) Classify(item TextItem, stats pageStats) RuleResult {
	text := strings.TrimSpace(item.Text)

	// Tier 1: closed vocabulary of common column headers.
	if cc.vocab.IsColumnHeader(text) {
		return RuleResult{KindTableHeader, 0.95, "matches known column header token"}
	}

	// Tier 2: static label patterns.
	if r, ok := cc.classifyLabelPatterns(text); ok {
		return r
	}

	// Tier 3: dynamic data patterns.
	if r, ok := cc.classifyDataPatterns(text); ok {
		return r
	}

	// Tier 4: style-based fallback.
	if r, ok := cc.classifyByStyle(item, text, stats); ok {
		return r
	}

	// Tier 5: position-based fallback.
	if stats.pageWidth > 0 && item.X < stats.pageWidth*cc.cfg.LeftColumnRatio &&
		trailingColonRe.MatchString(text) {
		return RuleResult{KindStaticLabel, 0.75, "left-column position with trailing colon"}
	}

	return RuleResult{KindStandaloneText, 0.5, "no pattern matched"}
}

func (cc *ComponentClassifier) classifyLabelPatterns(text string) (RuleResult, bool) {
	if cc.vocab.IsKnownLabel(text) {
		return RuleResult{KindStaticLabel, 0.9, "matches known label vocabulary"}, true
	}
	if trailingColonRe.MatchString(text) {
		return RuleResult{KindStaticLabel, 0.7, "ends with colon or hash"}, true
	}
	if len(text) <= cc.cfg.MaxLabelLength && upperLettersRe.MatchString(text) {
		return RuleResult{KindStaticLabel, 0.7, "short fully-uppercase text"}, true
	}
	if cc.vocab.HasPhraseMarker(text) {
		return RuleResult{KindStaticLabel, 0.7, "contains label phrase marker"}, true
	}
	return RuleResult{}, false
}

func (cc *ComponentClassifier) classifyDataPatterns(text string) (RuleResult, bool) {
	switch {
	case dateRe.MatchString(text):
		return RuleResult{KindDynamicData, 0.85, "date shape"}, true
	case currencyRe.MatchString(text):
		return RuleResult{KindDynamicData, 0.85, "currency shape"}, true
	case emailRe.MatchString(text):
		return RuleResult{KindDynamicData, 0.85, "email shape"}, true
	case codeShapeRe.MatchString(text) && multiDigitRe.MatchString(text):
		return RuleResult{KindDynamicData, 0.85, "alphanumeric code shape"}, true
	case leadingDigitRe.MatchString(text):
		return RuleResult{KindDynamicData, 0.8, "starts with a digit"}, true
	case multiDigitRe.MatchString(text):
		return RuleResult{KindDynamicData, 0.8, "contains consecutive digits"}, true
	case len(text) > cc.cfg.LongTextLength:
		return RuleResult{KindDynamicData, 0.8, "long free-form text"}, true
	case leadingLowerRe.MatchString(text):
		return RuleResult{KindDynamicData, 0.8, "starts with lowercase letter"}, true
	}
	return RuleResult{}, false
}

func (cc *ComponentClassifier) classifyByStyle(item TextItem, text string, stats pageStats) (RuleResult, bool) {
	short := countLetters(text) > 0 && len(text) <= cc.cfg.MaxLabelLength
	if item.Bold && short {
		if trailingColonRe.MatchString(text) {
			return RuleResult{KindStaticLabel, 0.8, "bold short text with colon"}, true
		}
		return RuleResult{KindTableHeader, 0.7, "bold short text"}, true
	}
	if stats.avgFontSize > 0 && item.FontSize > stats.avgFontSize*cc.cfg.HeaderFontSizeRatio {
		return RuleResult{KindStaticLabel, 0.65, "font size above page average"}, true
	}
	return RuleResult{}, false
}

// Refine consults the zero-shot model for an uncertain rule result and
// combines the two opinions. Any refiner error leaves the rule result
// untouched; the returned bool reports whether the model was actually used.
func (cc *ComponentClassifier) Refine(ctx context.Context, item TextItem, rule RuleResult) (RuleResult, bool, error) {
	if rule.Confidence > cc.cfg.RefineThreshold {
		return rule, false, nil
	}
	if _, off := cc.refiner.(zeroshot.Disabled); off {
		return rule, false, nil
	}

	callCtx := ctx
	if cc.cfg.RefineTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cc.cfg.RefineTimeout)
		defer cancel()
	}

	pred, err := cc.refiner.Classify(callCtx, zeroshot.Request{
		Text:   item.Text,
		Labels: refinementLabels,
		Hints: map[string]string{
			"font": item.FontName,
			"bold": boolWord(item.Bold),
		},
	})
	if err != nil {
		return rule, false, err
	}

	kind, ok := kindForRefinementLabel(pred.Label)
	if !ok {
		return rule, false, nil
	}

	if kind == rule.Kind {
		combined := cc.cfg.RuleWeight*rule.Confidence + cc.cfg.ModelWeight*pred.Score
		return RuleResult{
			Kind:       rule.Kind,
			Confidence: clamp01(combined),
			Reasoning:  rule.Reasoning + "; confirmed by zero-shot model",
		}, true, nil
	}

	if pred.Score > rule.Confidence {
		return RuleResult{
			Kind:       kind,
			Confidence: clamp01(pred.Score),
			Reasoning:  "zero-shot model: " + pred.Label,
		}, true, nil
	}
	return rule, true, nil
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
