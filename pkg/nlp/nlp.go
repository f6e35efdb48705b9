package nlp

import (
	"context"
	"errors"

	"github.com/graphweave/graphweave/pkg/types"
)

// StatisticalExtractor is the capability boundary to an out-of-process
// statistical NLP model. Implementations are treated as unreliable: every
// call path must handle an error by falling back to pattern extraction.
type StatisticalExtractor interface {
	Extract(ctx context.Context, text string) ([]types.SpanCandidate, error)
}

// ErrUnavailable indicates the extractor service was unreachable or timed
// out. Recovered via fallback, never fatal.
var ErrUnavailable = errors.New("statistical extractor unavailable")

// ErrMalformedResponse indicates the extractor responded with something the
// client could not parse. Recovered the same way as ErrUnavailable.
var ErrMalformedResponse = errors.New("malformed extractor response")
