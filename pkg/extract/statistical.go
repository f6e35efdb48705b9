package extract

import (
	"context"

	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/nlp"
	"github.com/graphweave/graphweave/pkg/types"
)

// StatisticalAdapter normalizes output from an out-of-process statistical
// extractor into span candidates with re-derived offsets. When the
// underlying call fails for any reason, the adapter transparently falls
// back to the pattern extractor for the same text: callers never see a
// hard failure for this stage.
//
// A StatisticalAdapter should be created using NewStatisticalAdapter.
type StatisticalAdapter struct {
	extractor nlp.StatisticalExtractor
	fallback  *PatternExtractor
}

// NewStatisticalAdapter wires a statistical extractor to its pattern
// fallback.
func NewStatisticalAdapter(extractor nlp.StatisticalExtractor, fallback *PatternExtractor) *StatisticalAdapter {
	return &StatisticalAdapter{
		extractor: extractor,
		fallback:  fallback,
	}
}

// Extract runs the statistical extractor over text. On success each
// candidate's offsets are re-derived by locating its value in text;
// candidates whose value is not found verbatim are dropped. On failure the
// pattern extractor's output is returned instead, each candidate marked
// with Metadata["fallback"]=true and Source left as Pattern. There is no
// retry beyond this one-shot fallback.
func (a *StatisticalAdapter) Extract(ctx context.Context, text string, enabledTypes []string) []types.SpanCandidate {
	candidates, err := a.extractor.Extract(ctx, text)
	if err != nil {
		logger.Warn("[Extract] Statistical extractor failed, falling back to pattern rules", "err", err)
		fallback := a.fallback.Extract(ctx, text, enabledTypes)
		for i := range fallback {
			if fallback[i].Metadata == nil {
				fallback[i].Metadata = make(map[string]any, 1)
			}
			fallback[i].Metadata["fallback"] = true
		}
		return fallback
	}

	for i := range candidates {
		candidates[i].Source = types.SourceStatistical
	}
	return ResolveOffsets(text, candidates)
}
