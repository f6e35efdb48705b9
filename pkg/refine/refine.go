// Package refine runs the generative refinement pass: a model reviews the
// preliminary candidates against the document, validates and normalizes
// them, and proposes entities and relationships the earlier stages missed.
package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/types"
)

const (
	defaultEncoder         = "o200k_base"
	defaultMaxPromptTokens = 6000
	defaultMaxRetries      = 3
)

// Refiner drives one refinement pass per document (or per chunk for long
// documents).
//
// A Refiner should be created using New.
type Refiner struct {
	client          ai.GenerativeClient
	model           string
	encoder         string
	maxPromptTokens int
	maxRetries      int
	structured      bool
}

// Params configures a Refiner. Model empty means the client's default.
// StructuredOutput switches from the fenced-JSON protocol to the client's
// schema-enforced response format; the fenced protocol is the default
// because it works across models without structured-output support.
// MaxRetries bounds the attempts per model call; transport failures retry,
// malformed replies do not.
type Params struct {
	Client           ai.GenerativeClient
	Model            string
	Encoder          string
	MaxPromptTokens  int
	MaxRetries       int
	StructuredOutput bool
}

// New creates a Refiner.
func New(params Params) *Refiner {
	encoder := params.Encoder
	if encoder == "" {
		encoder = defaultEncoder
	}
	maxTokens := params.MaxPromptTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxPromptTokens
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Refiner{
		client:          params.Client,
		model:           params.Model,
		encoder:         encoder,
		maxPromptTokens: maxTokens,
		maxRetries:      maxRetries,
		structured:      params.StructuredOutput,
	}
}

// Refine reviews the candidates against text. Long documents are chunked on
// sentence boundaries within the token budget and the per-chunk results
// merged; each candidate is judged against the chunk containing its value.
// A malformed model reply yields ErrMalformedResponse, which callers treat
// as "no refinement" rather than a document failure.
func (r *Refiner) Refine(ctx context.Context, text string, candidates []types.SpanCandidate) (*types.RefinementResult, error) {
	chunks, err := chunkByTokens(text, r.encoder, r.maxPromptTokens)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &types.RefinementResult{}, nil
	}
	if len(chunks) == 1 {
		return r.refineChunk(ctx, chunks[0], candidates)
	}

	logger.Debug("[Refine] Document over token budget, chunking", "chunks", len(chunks))

	merged := &types.RefinementResult{}
	seenVerdicts := make(map[string]bool)
	for _, chunk := range chunks {
		chunkCandidates := candidatesInChunk(chunk, candidates)
		result, err := r.refineChunk(ctx, chunk, chunkCandidates)
		if err != nil {
			return nil, err
		}

		for _, v := range result.Verdicts {
			key := types.CanonicalKey(v.Value, v.Type)
			if seenVerdicts[key] {
				continue
			}
			seenVerdicts[key] = true
			merged.Verdicts = append(merged.Verdicts, v)
		}
		merged.NewEntities = append(merged.NewEntities, result.NewEntities...)
		merged.Relationships = append(merged.Relationships, result.Relationships...)
		if merged.Summary == "" {
			merged.Summary = result.Summary
		}
	}
	return merged, nil
}

func (r *Refiner) refineChunk(ctx context.Context, text string, candidates []types.SpanCandidate) (*types.RefinementResult, error) {
	prompt := fmt.Sprintf(RefinementPrompt, formatCandidates(candidates), text)

	var opts []ai.GenerateOption
	if r.model != "" {
		opts = append(opts, ai.WithModel(r.model))
	}

	if r.structured {
		var result types.RefinementResult
		err := util.RetryErrWithContext(ctx, r.maxRetries, func(ctx context.Context) error {
			return r.client.GenerateCompletionWithFormat(
				ctx,
				"entity_refinement",
				"Verdicts over extracted entity candidates plus newly found entities and relationships",
				prompt,
				&result,
				opts...,
			)
		})
		if err != nil {
			return nil, err
		}
		return &result, nil
	}

	reply, err := util.RetryWithContext(ctx, r.maxRetries, func(ctx context.Context) (string, error) {
		return r.client.GenerateCompletion(ctx, prompt, opts...)
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(reply)
}

// formatCandidates renders candidates as one JSON object per line, the shape
// the prompt documents.
func formatCandidates(candidates []types.SpanCandidate) string {
	if len(candidates) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, c := range candidates {
		line, err := json.Marshal(map[string]any{
			"value":      c.Value,
			"type":       c.Type,
			"confidence": c.Confidence,
		})
		if err != nil {
			continue
		}
		b.Write(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func candidatesInChunk(chunk string, candidates []types.SpanCandidate) []types.SpanCandidate {
	out := make([]types.SpanCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(chunk, c.Value) {
			out = append(out, c)
		}
	}
	return out
}
