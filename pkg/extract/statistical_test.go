package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/graphweave/graphweave/pkg/nlp"
	"github.com/graphweave/graphweave/pkg/types"
)

type fakeExtractor struct {
	candidates []types.SpanCandidate
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]types.SpanCandidate, error) {
	return f.candidates, f.err
}

func TestStatisticalAdapterResolvesOffsets(t *testing.T) {
	text := "Jane Doe joined Acme Corp last week."
	fake := &fakeExtractor{
		candidates: []types.SpanCandidate{
			// Offsets reported by the sidecar are junk and must be re-derived.
			{Type: TypePersonName, Value: "Jane Doe", Confidence: 0.85, Start: 999, End: 1007},
			{Type: TypeCompanyName, Value: "Acme Corp", Confidence: 0.8},
			{Type: TypeCompanyName, Value: "Globex", Confidence: 0.9},
		},
	}
	adapter := NewStatisticalAdapter(fake, NewPatternExtractor())

	candidates := adapter.Extract(context.Background(), text, nil)
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2 (value absent from text dropped)", len(candidates))
	}
	for _, c := range candidates {
		if c.Source != types.SourceStatistical {
			t.Errorf("%q: source = %s, want %s", c.Value, c.Source, types.SourceStatistical)
		}
		if text[c.Start:c.End] != c.Value {
			t.Errorf("%q: text[%d:%d] = %q", c.Value, c.Start, c.End, text[c.Start:c.End])
		}
		if c.Metadata["fallback"] == true {
			t.Errorf("%q: fallback marker set on successful extraction", c.Value)
		}
	}
}

func TestStatisticalAdapterFallback(t *testing.T) {
	text := "Contact Jane Doe at jane.doe@example.com or call 555-123-4567."
	fake := &fakeExtractor{err: nlp.ErrUnavailable}
	pattern := NewPatternExtractor()
	adapter := NewStatisticalAdapter(fake, pattern)

	got := adapter.Extract(context.Background(), text, nil)
	want := pattern.Extract(context.Background(), text, nil)
	if len(got) != len(want) {
		t.Fatalf("fallback candidates = %d, want %d (same as pattern extractor)", len(got), len(want))
	}

	for i := range got {
		if got[i].Metadata["fallback"] != true {
			t.Errorf("%q: fallback marker missing", got[i].Value)
		}
		if got[i].Source != types.SourcePattern {
			t.Errorf("%q: source = %s, want %s", got[i].Value, got[i].Source, types.SourcePattern)
		}

		stripped := got[i]
		stripped.Metadata = nil
		if !reflect.DeepEqual(stripped, want[i]) {
			t.Errorf("candidate %d diverges from pattern output:\ngot  %+v\nwant %+v", i, stripped, want[i])
		}
	}
}

func TestStatisticalAdapterFallbackIsOneShot(t *testing.T) {
	calls := 0
	fake := &countingExtractor{count: &calls, err: errors.New("boom")}
	adapter := NewStatisticalAdapter(fake, NewPatternExtractor())

	adapter.Extract(context.Background(), "some text", nil)
	if calls != 1 {
		t.Errorf("extractor called %d times, want 1 (no retry before fallback)", calls)
	}
}

type countingExtractor struct {
	count *int
	err   error
}

func (c *countingExtractor) Extract(ctx context.Context, text string) ([]types.SpanCandidate, error) {
	*c.count++
	return nil, c.err
}
