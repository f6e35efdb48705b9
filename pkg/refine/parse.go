package refine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/types"
)

// ErrMalformedResponse indicates the model reply carried no parsable fenced
// JSON block. Recoverable: the caller proceeds without refinement.
var ErrMalformedResponse = errors.New("malformed refinement response")

// ParseResponse extracts the fenced JSON block from a model reply and
// unmarshals it. Prose before or after the block is tolerated; a missing or
// unparsable block yields ErrMalformedResponse.
func ParseResponse(reply string) (*types.RefinementResult, error) {
	block, ok := extractFencedJSON(reply)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON block found", ErrMalformedResponse)
	}

	var result types.RefinementResult
	if err := ai.UnmarshalFlexible(block, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &result, nil
}

// extractFencedJSON returns the content of the first ```json (or bare ```)
// fence. A reply that is already a bare JSON object passes through.
func extractFencedJSON(s string) (string, bool) {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(s, fence)
		if start < 0 {
			continue
		}
		rest := s[start+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			// Unterminated fence: models sometimes run out of tokens
			// mid-block, let the flexible unmarshal try to repair it.
			return strings.TrimSpace(rest), true
		}
		return strings.TrimSpace(rest[:end]), true
	}

	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed, true
	}
	return "", false
}
