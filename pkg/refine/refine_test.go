package refine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/types"
)

type fakeClient struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	return ai.UnmarshalFlexible(f.reply, out)
}

func (f *fakeClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) ResetMetrics() {}

func (f *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

// flakyClient fails its first n completion calls before answering.
type flakyClient struct {
	fakeClient
	failures int
	calls    int
}

func (f *flakyClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("model overloaded")
	}
	return f.fakeClient.GenerateCompletion(ctx, prompt, opts...)
}

const tickerReply = "Looking at the document, MSFT clearly refers to the company discussed.\n" +
	"```json\n" +
	`{
  "verdicts": [
    {"value": "MSFT", "type": "STOCK_SYMBOL", "valid": true, "normalized_value": "Microsoft Corporation"}
  ],
  "new_entities": [
    {"value": "Satya Nadella", "type": "PERSON_NAME", "confidence": 0.9}
  ],
  "relationships": [
    {"source_value": "Satya Nadella", "target_value": "Microsoft Corporation", "type": "LEADS", "strength": 0.9}
  ],
  "summary": "Quarterly earnings commentary on Microsoft."
}` + "\n```\nLet me know if you need anything else."

func TestRefineParsesFencedReply(t *testing.T) {
	client := &fakeClient{reply: tickerReply}
	r := New(Params{Client: client})

	candidates := []types.SpanCandidate{
		{Type: "STOCK_SYMBOL", Value: "MSFT", Confidence: 0.95},
	}
	result, err := r.Refine(context.Background(), "Microsoft (NASDAQ: MSFT) reported earnings.", candidates)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	if len(result.Verdicts) != 1 {
		t.Fatalf("verdicts = %d, want 1", len(result.Verdicts))
	}
	v := result.Verdicts[0]
	if !v.Valid || v.NormalizedValue != "Microsoft Corporation" {
		t.Errorf("verdict = %+v, want valid with normalized value", v)
	}
	if len(result.NewEntities) != 1 || result.NewEntities[0].Value != "Satya Nadella" {
		t.Errorf("new entities = %+v", result.NewEntities)
	}
	if len(result.Relationships) != 1 || result.Relationships[0].Type != "LEADS" {
		t.Errorf("relationships = %+v", result.Relationships)
	}

	if len(client.prompts) != 1 {
		t.Fatalf("prompts sent = %d, want 1", len(client.prompts))
	}
	if !strings.Contains(client.prompts[0], `"MSFT"`) {
		t.Error("prompt does not contain the candidate value")
	}
}

func TestRefineStructuredOutput(t *testing.T) {
	client := &fakeClient{reply: `{"verdicts": [{"value": "MSFT", "type": "STOCK_SYMBOL", "valid": true}], "new_entities": [], "relationships": [], "summary": ""}`}
	r := New(Params{Client: client, StructuredOutput: true})

	result, err := r.Refine(context.Background(), "some text", nil)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(result.Verdicts) != 1 {
		t.Errorf("verdicts = %d, want 1", len(result.Verdicts))
	}
}

func TestRefineRetriesTransientFailure(t *testing.T) {
	client := &flakyClient{fakeClient: fakeClient{reply: tickerReply}, failures: 2}
	r := New(Params{Client: client, MaxRetries: 3})

	result, err := r.Refine(context.Background(), "Microsoft (NASDAQ: MSFT) reported earnings.", nil)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3 (two failures, then success)", client.calls)
	}
	if len(result.Verdicts) != 1 {
		t.Errorf("verdicts = %d, want 1 from the final attempt", len(result.Verdicts))
	}
}

func TestRefineRetriesExhausted(t *testing.T) {
	client := &flakyClient{fakeClient: fakeClient{reply: tickerReply}, failures: 10}
	r := New(Params{Client: client, MaxRetries: 2})

	_, err := r.Refine(context.Background(), "some text", nil)
	if err == nil {
		t.Fatal("want error after exhausted retries")
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
}

func TestRefineMalformedReply(t *testing.T) {
	client := &fakeClient{reply: "I could not process this document, sorry."}
	r := New(Params{Client: client})

	_, err := r.Refine(context.Background(), "some text", nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestRefineEmptyText(t *testing.T) {
	client := &fakeClient{}
	r := New(Params{Client: client})

	result, err := r.Refine(context.Background(), "   \n  ", nil)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(result.Verdicts) != 0 || len(client.prompts) != 0 {
		t.Error("empty document should not reach the model")
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"bare object", `{"verdicts": [], "new_entities": [], "relationships": [], "summary": "s"}`, false},
		{"plain fence", "```\n{\"verdicts\": [], \"summary\": \"s\"}\n```", false},
		{"unterminated fence", "```json\n{\"verdicts\": [], \"summary\": \"s\"", false},
		{"no json at all", "The document mentions several companies.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.reply)
			if tt.wantErr != (err != nil) {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestChunkByTokens(t *testing.T) {
	sentence := "The quarterly report shows steady growth across all segments."
	text := strings.Repeat(sentence+" ", 40)

	chunks, err := chunkByTokens(text, defaultEncoder, 100)
	if err != nil {
		t.Fatalf("chunkByTokens: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want several for a long document", len(chunks))
	}
	for i, c := range chunks {
		if !strings.HasSuffix(strings.TrimSpace(c), ".") {
			t.Errorf("chunk %d does not end on a sentence boundary: %q", i, c[len(c)-20:])
		}
	}

	joined := strings.Join(chunks, " ")
	if strings.Count(joined, sentence) != 40 {
		t.Errorf("sentences lost in chunking: %d of 40", strings.Count(joined, sentence))
	}
}
