package extract

import (
	"strings"

	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/types"
)

// ResolveOffsets re-derives each candidate's offsets by locating its value
// in the original text instead of trusting extractor-reported positions.
// Repeated values are assigned successive occurrences in document order.
// A candidate whose value does not appear verbatim in the text is dropped.
func ResolveOffsets(text string, candidates []types.SpanCandidate) []types.SpanCandidate {
	resolved := make([]types.SpanCandidate, 0, len(candidates))
	nextSearch := make(map[string]int)

	for _, cand := range candidates {
		value := cand.Value
		if value == "" {
			continue
		}

		from := nextSearch[value]
		idx := -1
		if from <= len(text) {
			idx = strings.Index(text[from:], value)
			if idx >= 0 {
				idx += from
			}
		}
		if idx < 0 {
			// The value may have been seen before at an earlier position
			// than the cursor; fall back to the first occurrence.
			idx = strings.Index(text, value)
		}
		if idx < 0 {
			logger.Debug("[Extract] Candidate value not found in text, dropping", "type", cand.Type, "value", value)
			continue
		}

		nextSearch[value] = idx + len(value)
		cand.Start = idx
		cand.End = idx + len(value)
		resolved = append(resolved, cand)
	}

	return resolved
}
