package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/types"
)

const (
	// defaultContextWindow is the number of characters scanned on each side
	// of a match when looking for context keywords.
	defaultContextWindow = 100
	// keywordBoost is added per matched context keyword, up to maxKeywordBoost.
	keywordBoost    = 0.05
	maxKeywordBoost = 0.15
	// minConfidence drops candidates below this score after boosting.
	minConfidence = 0.5
	// validationPenalty is subtracted when a custom validation rule panics.
	validationPenalty = 0.1
)

var stopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

// PatternExtractor proposes span candidates using the compiled match rules
// of its entity type definitions. It is safe for concurrent use once built.
//
// A PatternExtractor should be created using NewPatternExtractor.
type PatternExtractor struct {
	defs          []types.EntityTypeDefinition
	contextWindow int
}

// NewPatternExtractor creates a pattern extractor over the given entity type
// definitions. Passing no definitions uses the core type set.
func NewPatternExtractor(defs ...types.EntityTypeDefinition) *PatternExtractor {
	if len(defs) == 0 {
		defs = CoreTypes()
	}
	return &PatternExtractor{
		defs:          defs,
		contextWindow: defaultContextWindow,
	}
}

// Extract applies every match rule of every enabled type to text and returns
// the surviving candidates ordered by start offset. enabledTypes limits
// extraction to the named types; nil enables all. A malformed rule never
// aborts extraction for other types.
func (p *PatternExtractor) Extract(ctx context.Context, text string, enabledTypes []string) []types.SpanCandidate {
	var enabled map[string]bool
	if len(enabledTypes) > 0 {
		enabled = make(map[string]bool, len(enabledTypes))
		for _, t := range enabledTypes {
			enabled[t] = true
		}
	}

	candidates := make([]types.SpanCandidate, 0)
	for _, def := range p.defs {
		if ctx.Err() != nil {
			break
		}
		if enabled != nil && !enabled[def.TypeID] {
			continue
		}
		candidates = append(candidates, p.extractType(text, def)...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

func (p *PatternExtractor) extractType(text string, def types.EntityTypeDefinition) (out []types.SpanCandidate) {
	// A pack-contributed rule with a broken pattern or predicate must not
	// take the whole run down.
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("[Extract] Match rule panicked, skipping type", "type", def.TypeID, "panic", r)
			out = nil
		}
	}()

	for _, rule := range def.MatchRules {
		if rule.Pattern == nil {
			logger.Warn("[Extract] Match rule has no pattern, skipping", "type", def.TypeID)
			continue
		}
		matches := rule.Pattern.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			start, end := m[0], m[1]
			if rule.Group > 0 && 2*rule.Group+1 < len(m) && m[2*rule.Group] >= 0 {
				start, end = m[2*rule.Group], m[2*rule.Group+1]
			}
			value := text[start:end]
			contextText := p.window(text, start, end)

			confidence := rule.BaseConfidence + p.contextBoost(contextText, def.ContextKeywords)
			if confidence > 1.0 {
				confidence = 1.0
			}

			confidence, ok := p.validate(def, value, contextText, confidence)
			if !ok {
				continue
			}
			if !p.keep(value, confidence) {
				continue
			}

			out = append(out, types.SpanCandidate{
				Type:       def.TypeID,
				Value:      value,
				Confidence: confidence,
				Start:      start,
				End:        end,
				Context:    contextText,
				Source:     types.SourcePattern,
			})
		}
	}
	return out
}

func (p *PatternExtractor) window(text string, start, end int) string {
	lo := start - p.contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + p.contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

func (p *PatternExtractor) contextBoost(contextText string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(contextText)
	boost := 0.0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			boost += keywordBoost
			if boost >= maxKeywordBoost {
				return maxKeywordBoost
			}
		}
	}
	return boost
}

// validate runs the type's validation rules. A failed format or predicate
// check drops the candidate; a panicking predicate only penalizes its
// confidence so one broken pack rule cannot suppress a whole type.
func (p *PatternExtractor) validate(def types.EntityTypeDefinition, value, contextText string, confidence float64) (float64, bool) {
	for _, rule := range def.ValidationRules {
		switch {
		case rule.Format != nil:
			if !rule.Format.MatchString(value) {
				return 0, false
			}
		case rule.Predicate != nil:
			ok, panicked := runPredicate(rule.Predicate, value, contextText)
			if panicked {
				logger.Warn("[Extract] Validation rule panicked", "type", def.TypeID, "rule", rule.Name)
				confidence -= validationPenalty
				continue
			}
			if !ok {
				return 0, false
			}
		}
	}
	return confidence, true
}

func runPredicate(pred func(value, context string) bool, value, contextText string) (ok bool, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
		}
	}()
	return pred(value, contextText), false
}

func (p *PatternExtractor) keep(value string, confidence float64) bool {
	if len(value) < 2 {
		return false
	}
	if stopWords[strings.ToLower(value)] {
		return false
	}
	return confidence >= minConfidence
}
