package extract

import (
	"sort"

	"github.com/graphweave/graphweave/pkg/types"
)

// DefaultPositionalTolerance is the maximum start-offset distance at which
// two non-overlapping candidates with identical (type, value) are treated as
// the same occurrence. Test fixtures depend on this default; change it only
// together with them.
const DefaultPositionalTolerance = 10

// ResolverConfig tunes overlap resolution. The zero value is not useful;
// use DefaultResolverConfig.
type ResolverConfig struct {
	PositionalTolerance int
}

// DefaultResolverConfig returns the documented default configuration.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{PositionalTolerance: DefaultPositionalTolerance}
}

// Resolve collapses duplicate and overlapping candidates with the default
// configuration. See ResolveWith.
func Resolve(candidates []types.SpanCandidate) []types.SpanCandidate {
	return ResolveWith(DefaultResolverConfig(), candidates)
}

// ResolveWith walks the candidates in document order and greedily accepts
// them: a candidate overlapping an already-accepted one survives only if its
// confidence is strictly higher (exact ties keep the earlier-accepted
// candidate); non-overlapping candidates with the same type and value whose
// start offsets differ by less than the positional tolerance are positional
// duplicates and resolve the same way. A candidate conflicting with several
// accepted spans must beat every one of them; eviction happens only then, so
// a span is never dropped on behalf of a challenger that itself loses.
//
// This is deliberately not an optimal interval scheduling: the greedy single
// pass in document order is the documented, reproducible policy. For fixed
// input the output is deterministic, ordered by start offset, and pairwise
// non-overlapping.
func ResolveWith(cfg ResolverConfig, candidates []types.SpanCandidate) []types.SpanCandidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]types.SpanCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type < sorted[j].Type
		}
		return sorted[i].Value < sorted[j].Value
	})

	accepted := make([]types.SpanCandidate, 0, len(sorted))
	for _, cand := range sorted {
		keep := true
		var beaten []int
		for i, existing := range accepted {
			conflict := cand.Overlaps(existing) ||
				isPositionalDuplicate(cfg, cand, existing)
			if !conflict {
				continue
			}
			if cand.Confidence > existing.Confidence {
				beaten = append(beaten, i)
				continue
			}
			keep = false
			break
		}
		if !keep {
			continue
		}
		for j := len(beaten) - 1; j >= 0; j-- {
			accepted = append(accepted[:beaten[j]], accepted[beaten[j]+1:]...)
		}
		accepted = append(accepted, cand)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}

func isPositionalDuplicate(cfg ResolverConfig, a, b types.SpanCandidate) bool {
	if a.Type != b.Type || a.Value != b.Value {
		return false
	}
	delta := a.Start - b.Start
	if delta < 0 {
		delta = -delta
	}
	return delta < cfg.PositionalTolerance
}
