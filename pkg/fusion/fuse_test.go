package fusion

import (
	"reflect"
	"testing"

	"github.com/graphweave/graphweave/pkg/types"
)

func TestFuseNormalizesWithMergedProvenance(t *testing.T) {
	pattern := []types.SpanCandidate{
		{Type: "STOCK_SYMBOL", Value: "MSFT", Confidence: 0.95, Start: 18, End: 22, Source: types.SourcePattern},
	}
	statistical := []types.SpanCandidate{
		{Type: "STOCK_SYMBOL", Value: "Microsoft Corporation", Confidence: 0.8, Start: 0, End: 21, Source: types.SourceStatistical},
	}
	refinement := &types.RefinementResult{
		Verdicts: []types.Verdict{
			{Value: "MSFT", Type: "STOCK_SYMBOL", Valid: true, NormalizedValue: "Microsoft Corporation"},
		},
	}

	fused := Fuse(pattern, statistical, refinement)
	if len(fused) != 1 {
		t.Fatalf("fused = %d entities, want 1: %+v", len(fused), fused)
	}

	e := fused[0]
	if e.CanonicalValue != "Microsoft Corporation" {
		t.Errorf("canonical value = %q, want Microsoft Corporation", e.CanonicalValue)
	}
	wantProvenance := []types.ExtractorSource{
		types.SourcePattern, types.SourceStatistical, types.SourceGenerative,
	}
	if !reflect.DeepEqual(e.Provenance, wantProvenance) {
		t.Errorf("provenance = %v, want %v", e.Provenance, wantProvenance)
	}
	if e.Confidence != 0.95 {
		t.Errorf("confidence = %v, want max contributor 0.95", e.Confidence)
	}
	if len(e.SourceDetails) != 3 {
		t.Errorf("source details = %d, want candidate+verdict+candidate", len(e.SourceDetails))
	}
}

func TestFuseInvalidVerdictExcludes(t *testing.T) {
	pattern := []types.SpanCandidate{
		{Type: "PERSON_NAME", Value: "Dear Sir", Confidence: 0.99, Source: types.SourcePattern},
		{Type: "PERSON_NAME", Value: "Jane Doe", Confidence: 0.6, Source: types.SourcePattern},
	}
	refinement := &types.RefinementResult{
		Verdicts: []types.Verdict{
			{Value: "Dear Sir", Type: "PERSON_NAME", Valid: false, Reason: "salutation"},
		},
	}

	fused := Fuse(pattern, nil, refinement)
	if len(fused) != 1 {
		t.Fatalf("fused = %d entities, want 1", len(fused))
	}
	if fused[0].CanonicalValue != "Jane Doe" {
		t.Errorf("surviving entity = %q, want Jane Doe", fused[0].CanonicalValue)
	}
}

func TestFuseGenerativeOnlyAdditions(t *testing.T) {
	refinement := &types.RefinementResult{
		NewEntities: []types.ProposedEntity{
			{Value: "Satya Nadella", Type: "PERSON_NAME", Confidence: 0.9},
			{Value: "   ", Type: "PERSON_NAME", Confidence: 0.9},
		},
	}

	fused := Fuse(nil, nil, refinement)
	if len(fused) != 1 {
		t.Fatalf("fused = %d entities, want 1 (blank value dropped)", len(fused))
	}
	e := fused[0]
	if !e.HasProvenance(types.SourceGenerative) || len(e.Provenance) != 1 {
		t.Errorf("provenance = %v, want generative only", e.Provenance)
	}
}

func TestFuseUnaddressedPassThrough(t *testing.T) {
	pattern := []types.SpanCandidate{
		{Type: "EMAIL_ADDRESS", Value: "a@b.com", Confidence: 0.98, Source: types.SourcePattern},
	}

	fused := Fuse(pattern, nil, nil)
	if len(fused) != 1 {
		t.Fatalf("fused = %d entities, want 1", len(fused))
	}
	if fused[0].CanonicalValue != "a@b.com" || fused[0].Confidence != 0.98 {
		t.Errorf("entity = %+v, want unchanged pass-through", fused[0])
	}
}

func TestFuseCaseInsensitiveDedupe(t *testing.T) {
	pattern := []types.SpanCandidate{
		{Type: "COMPANY_NAME", Value: "Acme Corp", Confidence: 0.75, Source: types.SourcePattern},
	}
	statistical := []types.SpanCandidate{
		{Type: "COMPANY_NAME", Value: "ACME  corp", Confidence: 0.85, Source: types.SourceStatistical},
		{Type: "PERSON_NAME", Value: "Acme Corp", Confidence: 0.6, Source: types.SourceStatistical},
	}

	fused := Fuse(pattern, statistical, nil)
	if len(fused) != 2 {
		t.Fatalf("fused = %d entities, want 2 (same value different type stays separate)", len(fused))
	}

	company := fused[0]
	if company.Type != "COMPANY_NAME" {
		t.Fatalf("first fused entity = %+v, want the company", company)
	}
	if company.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", company.Confidence)
	}
	// Single-source contributors tie on provenance; higher confidence picks
	// the representative spelling.
	if company.CanonicalValue != "ACME corp" {
		t.Errorf("canonical value = %q, want the higher-confidence spelling", company.CanonicalValue)
	}
	if len(company.Provenance) != 2 {
		t.Errorf("provenance = %v, want both sources", company.Provenance)
	}
}

func TestFuseDeterministic(t *testing.T) {
	pattern := []types.SpanCandidate{
		{Type: "COMPANY_NAME", Value: "Acme Corp", Confidence: 0.75, Source: types.SourcePattern},
		{Type: "EMAIL_ADDRESS", Value: "a@b.com", Confidence: 0.98, Source: types.SourcePattern},
	}
	statistical := []types.SpanCandidate{
		{Type: "PERSON_NAME", Value: "Jane Doe", Confidence: 0.85, Source: types.SourceStatistical},
	}
	refinement := &types.RefinementResult{
		Verdicts: []types.Verdict{
			{Value: "Acme Corp", Type: "COMPANY_NAME", Valid: true},
		},
		NewEntities: []types.ProposedEntity{
			{Value: "Globex", Type: "COMPANY_NAME", Confidence: 0.7},
		},
	}

	want := Fuse(pattern, statistical, refinement)
	for i := 0; i < 10; i++ {
		if got := Fuse(pattern, statistical, refinement); !reflect.DeepEqual(got, want) {
			t.Fatalf("iteration %d: fusion output varies for identical input", i)
		}
	}
}
