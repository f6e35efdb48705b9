// Package fusion reconciles candidates from every extraction source into
// one canonical, provenance-tracked entity set per document.
package fusion

import (
	"github.com/graphweave/graphweave/pkg/types"
)

// sourceRank fixes the provenance ordering on fused entities so output is
// stable regardless of which source contributed first.
var sourceRank = map[types.ExtractorSource]int{
	types.SourcePattern:     0,
	types.SourceStatistical: 1,
	types.SourceGenerative:  2,
	types.SourceCustom:      3,
}

// Fuse merges the resolved candidates of the pattern and statistical stages
// with an optional refinement result into canonical entities. Pure: no IO,
// no randomness, deterministic output order (first appearance).
//
// Precedence:
//  1. a candidate whose refinement verdict is invalid is excluded, whatever
//     its confidence;
//  2. a valid verdict with a normalized value rewrites the canonical value
//     and adds generative provenance;
//  3. refinement-proposed new entities join with generative provenance;
//  4. candidates the refinement did not address pass through unchanged;
//  5. entities colliding on (normalized value, type) merge: provenance and
//     source details union, confidence takes the maximum, and the
//     representative value comes from the richer-provenance contributor
//     (higher confidence breaking ties).
func Fuse(pattern, statistical []types.SpanCandidate, refinement *types.RefinementResult) []types.CanonicalEntity {
	verdicts := indexVerdicts(refinement)

	var order []string
	merged := make(map[string]*types.CanonicalEntity)

	absorb := func(entity types.CanonicalEntity) {
		key := types.CanonicalKey(entity.CanonicalValue, entity.Type)
		existing, ok := merged[key]
		if !ok {
			e := entity
			merged[key] = &e
			order = append(order, key)
			return
		}

		if len(entity.Provenance) > len(existing.Provenance) ||
			(len(entity.Provenance) == len(existing.Provenance) && entity.Confidence > existing.Confidence) {
			existing.CanonicalValue = entity.CanonicalValue
		}
		if entity.Confidence > existing.Confidence {
			existing.Confidence = entity.Confidence
		}
		existing.Provenance = mergeProvenance(existing.Provenance, entity.Provenance)
		existing.SourceDetails = append(existing.SourceDetails, entity.SourceDetails...)
	}

	for _, cand := range append(append([]types.SpanCandidate{}, pattern...), statistical...) {
		entity, ok := applyVerdict(cand, verdicts)
		if !ok {
			continue
		}
		absorb(entity)
	}

	if refinement != nil {
		for _, proposed := range refinement.NewEntities {
			if types.NormalizeValue(proposed.Value) == "" {
				continue
			}
			p := proposed
			absorb(types.CanonicalEntity{
				CanonicalValue: types.NormalizeValue(p.Value),
				Type:           p.Type,
				Confidence:     p.Confidence,
				Provenance:     []types.ExtractorSource{types.SourceGenerative},
				SourceDetails: []types.SourceDetail{{
					Candidate: &types.SpanCandidate{
						Type:       p.Type,
						Value:      p.Value,
						Confidence: p.Confidence,
						Context:    p.Description,
						Source:     types.SourceGenerative,
					},
				}},
			})
		}
	}

	out := make([]types.CanonicalEntity, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out
}

// applyVerdict turns one preliminary candidate into a canonical entity,
// honoring its refinement verdict if one exists. Returns false when the
// verdict excludes the candidate.
func applyVerdict(cand types.SpanCandidate, verdicts map[string]*types.Verdict) (types.CanonicalEntity, bool) {
	c := cand
	entity := types.CanonicalEntity{
		CanonicalValue: types.NormalizeValue(c.Value),
		Type:           c.Type,
		Confidence:     c.Confidence,
		Provenance:     []types.ExtractorSource{c.Source},
		SourceDetails:  []types.SourceDetail{{Candidate: &c}},
	}

	verdict, ok := verdicts[types.CanonicalKey(c.Value, c.Type)]
	if !ok {
		return entity, true
	}
	if !verdict.Valid {
		return types.CanonicalEntity{}, false
	}

	if verdict.NormalizedValue != "" {
		entity.CanonicalValue = types.NormalizeValue(verdict.NormalizedValue)
	}
	entity.Provenance = mergeProvenance(entity.Provenance, []types.ExtractorSource{types.SourceGenerative})
	entity.SourceDetails = append(entity.SourceDetails, types.SourceDetail{Verdict: verdict})
	return entity, true
}

func indexVerdicts(refinement *types.RefinementResult) map[string]*types.Verdict {
	if refinement == nil {
		return nil
	}
	out := make(map[string]*types.Verdict, len(refinement.Verdicts))
	for i := range refinement.Verdicts {
		v := &refinement.Verdicts[i]
		out[types.CanonicalKey(v.Value, v.Type)] = v
	}
	return out
}

func mergeProvenance(a, b []types.ExtractorSource) []types.ExtractorSource {
	seen := make(map[types.ExtractorSource]bool, len(a)+len(b))
	var out []types.ExtractorSource
	for _, s := range append(append([]types.ExtractorSource{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	// Fixed rank order keeps fused output byte-stable across runs.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && sourceRank[out[j]] < sourceRank[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
