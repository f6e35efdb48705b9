package extract

import (
	"context"
	"regexp"
	"testing"

	"github.com/graphweave/graphweave/pkg/types"
)

func findByType(candidates []types.SpanCandidate, typeID string) []types.SpanCandidate {
	var out []types.SpanCandidate
	for _, c := range candidates {
		if c.Type == typeID {
			out = append(out, c)
		}
	}
	return out
}

func TestPatternExtractorContactText(t *testing.T) {
	text := "Contact Jane Doe at jane.doe@example.com or call 555-123-4567."
	p := NewPatternExtractor()

	candidates := p.Extract(context.Background(), text, nil)

	emails := findByType(candidates, TypeEmailAddress)
	if len(emails) != 1 {
		t.Fatalf("email candidates = %d, want 1", len(emails))
	}
	if emails[0].Value != "jane.doe@example.com" {
		t.Errorf("email value = %q", emails[0].Value)
	}
	if emails[0].Confidence < 0.9 {
		t.Errorf("email confidence = %v, want >= 0.9", emails[0].Confidence)
	}

	phones := findByType(candidates, TypePhoneNumber)
	if len(phones) != 1 {
		t.Fatalf("phone candidates = %d, want 1", len(phones))
	}
	if phones[0].Value != "555-123-4567" {
		t.Errorf("phone value = %q", phones[0].Value)
	}

	if emails[0].Overlaps(phones[0]) {
		t.Error("email and phone spans overlap")
	}

	for _, c := range candidates {
		if c.End-c.Start != len(c.Value) {
			t.Errorf("%s %q: span length %d != value length %d", c.Type, c.Value, c.End-c.Start, len(c.Value))
		}
		if text[c.Start:c.End] != c.Value {
			t.Errorf("%s: text[%d:%d] = %q, want %q", c.Type, c.Start, c.End, text[c.Start:c.End], c.Value)
		}
	}
}

func TestPatternExtractorMonetaryConfidence(t *testing.T) {
	text := "The invoice total is $1,234.56 while the estimate was $1200."
	p := NewPatternExtractor()

	// Raw extraction also yields the "$1,234" prefix from the plain-amount
	// rule; resolution must collapse it into the cent-precision match.
	amounts := findByType(Resolve(p.Extract(context.Background(), text, nil)), TypeMonetaryAmount)
	if len(amounts) != 2 {
		t.Fatalf("monetary candidates = %d, want 2: %+v", len(amounts), amounts)
	}

	var withCents, bare types.SpanCandidate
	for _, a := range amounts {
		if a.Value == "$1,234.56" {
			withCents = a
		}
		if a.Value == "$1200" {
			bare = a
		}
	}
	if withCents.Value == "" || bare.Value == "" {
		t.Fatalf("missing expected values, got %+v", amounts)
	}
	if withCents.Confidence <= bare.Confidence {
		t.Errorf("cent-precision amount (%v) should outscore bare amount (%v)", withCents.Confidence, bare.Confidence)
	}
}

func TestPatternExtractorContextBoost(t *testing.T) {
	boosted := "Please call me at 555-123-4567 tomorrow."
	plain := "Reference number 555-123-4567 on file."
	p := NewPatternExtractor()

	withKeyword := findByType(p.Extract(context.Background(), boosted, nil), TypePhoneNumber)
	withoutKeyword := findByType(p.Extract(context.Background(), plain, nil), TypePhoneNumber)
	if len(withKeyword) != 1 || len(withoutKeyword) != 1 {
		t.Fatalf("phone candidates = %d/%d, want 1/1", len(withKeyword), len(withoutKeyword))
	}
	if withKeyword[0].Confidence <= withoutKeyword[0].Confidence {
		t.Errorf("keyword context (%v) should outscore plain context (%v)",
			withKeyword[0].Confidence, withoutKeyword[0].Confidence)
	}
}

func TestPatternExtractorEnabledTypes(t *testing.T) {
	text := "Email jane.doe@example.com or call 555-123-4567."
	p := NewPatternExtractor()

	candidates := p.Extract(context.Background(), text, []string{TypeEmailAddress})
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if candidates[0].Type != TypeEmailAddress {
		t.Errorf("type = %s, want %s", candidates[0].Type, TypeEmailAddress)
	}
}

func TestPatternExtractorBrokenRuleDoesNotAbort(t *testing.T) {
	broken := types.EntityTypeDefinition{
		TypeID: "BROKEN",
		MatchRules: []types.MatchRule{
			{Pattern: nil, BaseConfidence: 0.9},
		},
	}
	panicking := types.EntityTypeDefinition{
		TypeID: "PANICKY",
		MatchRules: []types.MatchRule{
			{Pattern: regexp.MustCompile(`\bword\b`), BaseConfidence: 0.9},
		},
		ValidationRules: []types.ValidationRule{
			{
				Name: "explodes",
				Predicate: func(value, context string) bool {
					panic("boom")
				},
			},
		},
	}
	defs := append([]types.EntityTypeDefinition{broken, panicking}, CoreTypes()...)
	p := NewPatternExtractor(defs...)

	text := "A word to jane.doe@example.com."
	candidates := p.Extract(context.Background(), text, nil)

	if got := findByType(candidates, TypeEmailAddress); len(got) != 1 {
		t.Errorf("email candidates = %d, want 1 despite broken rules", len(got))
	}
	// The panicking validation rule penalizes confidence but keeps the candidate.
	panicky := findByType(candidates, "PANICKY")
	if len(panicky) != 1 {
		t.Fatalf("panicky candidates = %d, want 1", len(panicky))
	}
	if panicky[0].Confidence >= 0.9 {
		t.Errorf("confidence = %v, want penalized below 0.9", panicky[0].Confidence)
	}
}

func TestPatternExtractorFiltersNoise(t *testing.T) {
	lowType := types.EntityTypeDefinition{
		TypeID: "LOW",
		MatchRules: []types.MatchRule{
			{Pattern: regexp.MustCompile(`\bthe\b`), BaseConfidence: 0.9},
		},
	}
	p := NewPatternExtractor(lowType)

	candidates := p.Extract(context.Background(), "the quick brown fox", nil)
	if len(candidates) != 0 {
		t.Errorf("stop-word candidates = %d, want 0", len(candidates))
	}
}
