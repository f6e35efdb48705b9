package extension

import (
	"context"
	"testing"

	"github.com/graphweave/graphweave/pkg/extract"
	"github.com/graphweave/graphweave/pkg/types"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Pack{Name: "financial"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(Pack{Name: "financial"}); err == nil {
		t.Error("duplicate register succeeded, want error")
	}
	if err := r.Register(Pack{}); err == nil {
		t.Error("unnamed pack accepted, want error")
	}
}

func TestActiveTypesSelection(t *testing.T) {
	r := Default()

	all := r.ActiveTypes()
	financialOnly := r.ActiveTypes("financial")
	if len(financialOnly) != 4 {
		t.Errorf("financial pack types = %d, want 4", len(financialOnly))
	}
	if len(all) != len(financialOnly)+2 {
		t.Errorf("all types = %d, want financial + 2 legal", len(all))
	}
	if got := r.ActiveTypes("no_such_pack"); len(got) != 0 {
		t.Errorf("unknown pack yielded %d types, want 0", len(got))
	}
}

func TestStockSymbolExtraction(t *testing.T) {
	text := "Microsoft (NASDAQ: MSFT) closed up while the ticker ACME stayed flat."
	defs := append(extract.CoreTypes(), Default().ActiveTypes("financial")...)
	p := extract.NewPatternExtractor(defs...)

	var symbols []types.SpanCandidate
	for _, c := range p.Extract(context.Background(), text, []string{TypeStockSymbol}) {
		symbols = append(symbols, c)
	}
	if len(symbols) != 2 {
		t.Fatalf("stock symbols = %d, want 2: %+v", len(symbols), symbols)
	}
	if symbols[0].Value != "MSFT" {
		t.Errorf("first symbol = %q, want MSFT", symbols[0].Value)
	}
	if symbols[0].Confidence <= symbols[1].Confidence {
		t.Errorf("exchange-qualified symbol (%v) should outscore prefixed symbol (%v)",
			symbols[0].Confidence, symbols[1].Confidence)
	}
}

func TestRunExtractorsRecovers(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Pack{
		Name: "custom",
		Extractors: []CustomExtractorFunc{
			func(ctx context.Context, text string) []types.SpanCandidate {
				panic("broken pack")
			},
			func(ctx context.Context, text string) []types.SpanCandidate {
				return []types.SpanCandidate{{Type: "WIDGET_ID", Value: "W-42", Confidence: 0.9}}
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := r.RunExtractors(context.Background(), "widget W-42 shipped")
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1 (panicking extractor skipped)", len(got))
	}
	if got[0].Source != types.SourceCustom {
		t.Errorf("source = %s, want %s", got[0].Source, types.SourceCustom)
	}
}

func TestCategoryFor(t *testing.T) {
	r := Default()
	tests := []struct {
		typeID string
		want   types.KnowledgeCategory
	}{
		{TypeFinancialInstitution, types.CategoryAgent},
		{TypeStockSymbol, types.CategoryAbstract},
		{"PERSON_NAME", types.CategoryAgent},
		{"MONETARY_AMOUNT", types.CategoryQuality},
		{"NEVER_SEEN", types.CategoryInformation},
	}
	for _, tt := range tests {
		if got := r.CategoryFor(tt.typeID); got != tt.want {
			t.Errorf("CategoryFor(%s) = %s, want %s", tt.typeID, got, tt.want)
		}
	}
}
