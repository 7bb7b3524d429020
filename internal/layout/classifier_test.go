package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/layoutforge/rdlgen/internal/zeroshot"
)

func defaultStats() pageStats {
	return pageStats{avgFontSize: 10, pageWidth: 612}
}

func TestClassifyRuleCascade(t *testing.T) {
	cc := NewComponentClassifier(DefaultConfig())

	tests := []struct {
		name           string
		item           TextItem
		wantKind       Kind
		wantConfidence float64
	}{
		{
			name:           "known column header token",
			item:           TextItem{Text: "Qty"},
			wantKind:       KindTableHeader,
			wantConfidence: 0.95,
		},
		{
			name:           "column header with colon stays a column header",
			item:           TextItem{Text: "Qty:"},
			wantKind:       KindTableHeader,
			wantConfidence: 0.95,
		},
		{
			name:           "known label vocabulary",
			item:           TextItem{Text: "INVOICE #:"},
			wantKind:       KindStaticLabel,
			wantConfidence: 0.9,
		},
		{
			name:           "known label mixed case",
			item:           TextItem{Text: "Bill To"},
			wantKind:       KindStaticLabel,
			wantConfidence: 0.9,
		},
		{
			name:           "trailing colon",
			item:           TextItem{Text: "Notes:"},
			wantKind:       KindStaticLabel,
			wantConfidence: 0.7,
		},
		{
			name:           "short fully uppercase",
			item:           TextItem{Text: "SHIP VIA"},
			wantKind:       KindStaticLabel,
			wantConfidence: 0.7,
		},
		{
			name:           "label phrase marker",
			item:           TextItem{Text: "Tracking Number"},
			wantKind:       KindStaticLabel,
			wantConfidence: 0.7,
		},
		{
			name:           "date shape",
			item:           TextItem{Text: "12/31/2024"},
			wantKind:       KindDynamicData,
			wantConfidence: 0.85,
		},
		{
			name:           "currency shape",
			item:           TextItem{Text: "$1,234.56"},
			wantKind:       KindDynamicData,
			wantConfidence: 0.85,
		},
		{
			name:           "email shape",
			item:           TextItem{Text: "billing@example.com"},
			wantKind:       KindDynamicData,
			wantConfidence: 0.85,
		},
		{
			name:           "alphanumeric code",
			item:           TextItem{Text: "INV-2024-001"},
			wantKind:       KindDynamicData,
			wantConfidence: 0.85,
		},
		{
			name:           "leading digit",
			item:           TextItem{Text: "42 Main Street"},
			wantKind:       KindDynamicData,
			wantConfidence: 0.8,
		},
		{
			name:           "long free-form text",
			item:           TextItem{Text: "Payment is due within thirty days of the invoice"},
			wantKind:       KindDynamicData,
			wantConfidence: 0.8,
		},
		{
			name:           "leading lowercase",
			item:           TextItem{Text: "per agreement"},
			wantKind:       KindDynamicData,
			wantConfidence: 0.8,
		},
		{
			name:           "bold short text with colon",
			item:           TextItem{Text: "Remarks;:", Bold: true},
			wantKind:       KindStaticLabel,
			wantConfidence: 0.7, // trailing colon wins at tier 2
		},
		{
			name:           "bold short text without colon",
			item:           TextItem{Text: "Product Name", Bold: true},
			wantKind:       KindTableHeader,
			wantConfidence: 0.7,
		},
		{
			name:           "oversized font",
			item:           TextItem{Text: "Acme Corporation", FontSize: 20},
			wantKind:       KindStaticLabel,
			wantConfidence: 0.65,
		},
		{
			name:           "no pattern matched",
			item:           TextItem{Text: "Hello World"},
			wantKind:       KindStandaloneText,
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cc.Classify(tt.item, defaultStats())
			if got.Kind != tt.wantKind {
				t.Errorf("Classify(%q) kind = %s, want %s (reasoning: %s)",
					tt.item.Text, got.Kind, tt.wantKind, got.Reasoning)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Classify(%q) confidence = %v, want %v",
					tt.item.Text, got.Confidence, tt.wantConfidence)
			}
			if got.Reasoning == "" {
				t.Errorf("Classify(%q) should always report reasoning", tt.item.Text)
			}
		})
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	cc := NewComponentClassifier(DefaultConfig())

	inputs := []string{
		"", " ", "Qty", "INVOICE #:", "12/31/2024", "$5.00", "x",
		"A very long line of descriptive narrative text here", "TOTAL DUE",
	}
	for _, text := range inputs {
		r := cc.Classify(TextItem{Text: text}, defaultStats())
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("Classify(%q) confidence %v out of [0,1]", text, r.Confidence)
		}
		if !r.Kind.IsValid() {
			t.Errorf("Classify(%q) produced invalid kind %q", text, r.Kind)
		}
	}
}

func TestRefineSkipsConfidentResults(t *testing.T) {
	called := false
	refiner := zeroshot.Func(func(ctx context.Context, req zeroshot.Request) (zeroshot.Prediction, error) {
		called = true
		return zeroshot.Prediction{Label: "form label", Score: 0.9}, nil
	})
	cc := NewComponentClassifierWithRefiner(DefaultConfig(), nil, refiner)

	rule := RuleResult{Kind: KindTableHeader, Confidence: 0.95, Reasoning: "matches known column header token"}
	got, used, err := cc.Refine(context.Background(), TextItem{Text: "Qty"}, rule)
	if err != nil {
		t.Fatalf("Refine() error: %v", err)
	}
	if used {
		t.Error("Refine() should not consult the model above the threshold")
	}
	if called {
		t.Error("model should not be called for a confident rule result")
	}
	if got != rule {
		t.Errorf("Refine() = %+v, want unchanged %+v", got, rule)
	}
}

func TestRefineAgreementCombinesScores(t *testing.T) {
	refiner := zeroshot.Func(func(ctx context.Context, req zeroshot.Request) (zeroshot.Prediction, error) {
		return zeroshot.Prediction{Label: "form label", Score: 0.9}, nil
	})
	cc := NewComponentClassifierWithRefiner(DefaultConfig(), nil, refiner)

	rule := RuleResult{Kind: KindStaticLabel, Confidence: 0.7, Reasoning: "ends with colon or hash"}
	got, used, err := cc.Refine(context.Background(), TextItem{Text: "Notes:"}, rule)
	if err != nil {
		t.Fatalf("Refine() error: %v", err)
	}
	if !used {
		t.Error("Refine() should report the model was used")
	}
	if got.Kind != KindStaticLabel {
		t.Errorf("agreement should keep the rule kind, got %s", got.Kind)
	}
	want := 0.7*0.7 + 0.3*0.9
	if diff := got.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("combined confidence = %v, want %v", got.Confidence, want)
	}
}

func TestRefineDisagreementHigherWins(t *testing.T) {
	refiner := zeroshot.Func(func(ctx context.Context, req zeroshot.Request) (zeroshot.Prediction, error) {
		return zeroshot.Prediction{Label: "data value", Score: 0.92}, nil
	})
	cc := NewComponentClassifierWithRefiner(DefaultConfig(), nil, refiner)

	rule := RuleResult{Kind: KindStandaloneText, Confidence: 0.5, Reasoning: "no pattern matched"}
	got, used, err := cc.Refine(context.Background(), TextItem{Text: "ambiguous"}, rule)
	if err != nil {
		t.Fatalf("Refine() error: %v", err)
	}
	if !used {
		t.Error("Refine() should report the model was used")
	}
	if got.Kind != KindDynamicData {
		t.Errorf("higher-scoring model opinion should win, got %s", got.Kind)
	}
	if got.Confidence != 0.92 {
		t.Errorf("confidence = %v, want model score 0.92", got.Confidence)
	}
}

func TestRefineDisagreementLowerLoses(t *testing.T) {
	refiner := zeroshot.Func(func(ctx context.Context, req zeroshot.Request) (zeroshot.Prediction, error) {
		return zeroshot.Prediction{Label: "data value", Score: 0.4}, nil
	})
	cc := NewComponentClassifierWithRefiner(DefaultConfig(), nil, refiner)

	rule := RuleResult{Kind: KindStaticLabel, Confidence: 0.7, Reasoning: "ends with colon or hash"}
	got, used, err := cc.Refine(context.Background(), TextItem{Text: "Notes:"}, rule)
	if err != nil {
		t.Fatalf("Refine() error: %v", err)
	}
	if !used {
		t.Error("Refine() should report the model was used")
	}
	if got != rule {
		t.Errorf("weaker model opinion should leave the rule result, got %+v", got)
	}
}

func TestRefineErrorLeavesRuleResult(t *testing.T) {
	modelErr := errors.New("model down")
	refiner := zeroshot.Func(func(ctx context.Context, req zeroshot.Request) (zeroshot.Prediction, error) {
		return zeroshot.Prediction{}, modelErr
	})
	cc := NewComponentClassifierWithRefiner(DefaultConfig(), nil, refiner)

	rule := RuleResult{Kind: KindStandaloneText, Confidence: 0.5, Reasoning: "no pattern matched"}
	got, used, err := cc.Refine(context.Background(), TextItem{Text: "anything"}, rule)
	if !errors.Is(err, modelErr) {
		t.Fatalf("Refine() error = %v, want %v", err, modelErr)
	}
	if used {
		t.Error("a failed call should not count as model usage")
	}
	if got != rule {
		t.Errorf("Refine() on error = %+v, want unchanged rule result", got)
	}
}

func TestRefineWithoutModelIsNoop(t *testing.T) {
	cc := NewComponentClassifier(DefaultConfig())

	rule := RuleResult{Kind: KindStandaloneText, Confidence: 0.5, Reasoning: "no pattern matched"}
	got, used, err := cc.Refine(context.Background(), TextItem{Text: "anything"}, rule)
	if err != nil {
		t.Fatalf("Refine() without a model should not error: %v", err)
	}
	if used {
		t.Error("Refine() without a model should not report usage")
	}
	if got != rule {
		t.Errorf("Refine() without a model = %+v, want unchanged rule result", got)
	}
}
