package types

import (
	"regexp"
	"strings"
)

// ExtractorSource identifies which extraction stage produced a candidate.
type ExtractorSource string

const (
	SourcePattern     ExtractorSource = "pattern"
	SourceStatistical ExtractorSource = "statistical"
	SourceGenerative  ExtractorSource = "generative"
	SourceCustom      ExtractorSource = "custom"
)

// KnowledgeCategory is the upper ontology category an entity type maps to
// when its instances are inserted into the ontology store.
type KnowledgeCategory string

const (
	CategoryAgent       KnowledgeCategory = "Agent"
	CategoryObject      KnowledgeCategory = "Object"
	CategoryEvent       KnowledgeCategory = "Event"
	CategoryQuality     KnowledgeCategory = "Quality"
	CategoryAbstract    KnowledgeCategory = "Abstract"
	CategoryInformation KnowledgeCategory = "Information"
)

// SpanCandidate is a single proposed typed entity occurrence in a source
// text. Every extractor produces candidates in this shape; offsets are
// re-derived against the original text before a candidate is trusted
// (see extract.ResolveOffsets), so End-Start always equals len(Value)
// for a resolved candidate.
type SpanCandidate struct {
	Type       string          `json:"type"`
	Value      string          `json:"value"`
	Confidence float64         `json:"confidence"`
	Start      int             `json:"start"`
	End        int             `json:"end"`
	Context    string          `json:"context"`
	Source     ExtractorSource `json:"source"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// Overlaps reports whether the half-open spans [c.Start,c.End) and
// [other.Start,other.End) intersect.
func (c SpanCandidate) Overlaps(other SpanCandidate) bool {
	return c.Start < other.End && other.Start < c.End
}

// MatchRule is a compiled pattern that proposes candidates for one entity
// type. Group selects the submatch used as the candidate value (0 = whole
// match). Rules are data: new entity types are additive configuration.
type MatchRule struct {
	Pattern        *regexp.Regexp
	Group          int
	BaseConfidence float64
}

// ValidationRule checks an extracted value. Exactly one of Format or
// Predicate is set: Format rules require the value to match a pattern,
// Predicate rules run an arbitrary check over (value, context).
type ValidationRule struct {
	Name      string
	Format    *regexp.Regexp
	Predicate func(value, context string) bool
}

// EntityTypeDefinition is the static configuration for one entity type,
// contributed by the core type set or an extension pack.
type EntityTypeDefinition struct {
	TypeID          string
	Category        string
	MatchRules      []MatchRule
	ContextKeywords []string
	ValidationRules []ValidationRule
}

// Verdict is the generative model's judgement on one preliminary candidate.
// An invalid verdict excludes the entity from the fused result regardless of
// its original confidence. A valid verdict may carry a normalized value
// (e.g. a ticker resolved to a full legal name) which becomes the canonical
// value.
type Verdict struct {
	Value           string `json:"value" jsonschema_description:"The candidate value exactly as provided"`
	Type            string `json:"type" jsonschema_description:"The candidate's entity type"`
	Valid           bool   `json:"valid" jsonschema_description:"Whether the candidate is a real entity of this type in the text"`
	NormalizedValue string `json:"normalized_value,omitempty" jsonschema_description:"Canonical form of the value, if different (e.g. full legal name)"`
	Reason          string `json:"reason,omitempty" jsonschema_description:"One short sentence explaining the judgement"`
}

// ProposedEntity is an entity the generative pass discovered that was not in
// the preliminary candidate set.
type ProposedEntity struct {
	Value       string  `json:"value" jsonschema_description:"Entity value as it appears in the text"`
	Type        string  `json:"type" jsonschema_description:"Entity type identifier"`
	Confidence  float64 `json:"confidence" jsonschema_description:"Confidence between 0 and 1"`
	Description string  `json:"description,omitempty" jsonschema_description:"Short description of the entity"`
}

// ProposedRelationship is a directed typed edge proposed by the generative
// pass, keyed by entity values rather than store IDs.
type ProposedRelationship struct {
	SourceValue string  `json:"source_value" jsonschema_description:"Value of the source entity"`
	TargetValue string  `json:"target_value" jsonschema_description:"Value of the target entity"`
	Type        string  `json:"type" jsonschema_description:"Relationship type identifier"`
	Strength    float64 `json:"strength" jsonschema_description:"Relationship strength between 0 and 1"`
	Description string  `json:"description,omitempty" jsonschema_description:"Why the two entities are related"`
}

// RefinementResult is the parsed output of one generative refinement pass.
type RefinementResult struct {
	Verdicts      []Verdict              `json:"verdicts" jsonschema_description:"Validation verdicts over the provided candidates"`
	NewEntities   []ProposedEntity       `json:"new_entities" jsonschema_description:"Entities found in the text that were not in the candidate list"`
	Relationships []ProposedRelationship `json:"relationships" jsonschema_description:"Relationships between entities in the text"`
	Summary       string                 `json:"summary" jsonschema_description:"One sentence summary of the text"`
}

// SourceDetail is one provenance record on a canonical entity: either the
// span candidate that contributed it or the verdict that validated it.
type SourceDetail struct {
	Candidate *SpanCandidate `json:"candidate,omitempty"`
	Verdict   *Verdict       `json:"verdict,omitempty"`
}

// CanonicalEntity is the fused, deduplicated representation of one
// real-world entity across extractor sources. At most one canonical entity
// exists per (normalized value, type) pair per extraction run.
type CanonicalEntity struct {
	CanonicalValue string            `json:"canonical_value"`
	Type           string            `json:"type"`
	Confidence     float64           `json:"confidence"`
	Provenance     []ExtractorSource `json:"provenance"`
	SourceDetails  []SourceDetail    `json:"source_details"`
}

// HasProvenance reports whether source contributed to this entity.
func (e CanonicalEntity) HasProvenance(source ExtractorSource) bool {
	for _, s := range e.Provenance {
		if s == source {
			return true
		}
	}
	return false
}

// DocumentResult is everything the pipeline produced for one document.
// Errors lists recoverable per-document problems (extractor fallbacks,
// skipped relationships); a non-empty list does not mean the document
// failed.
type DocumentResult struct {
	Document      string                 `json:"document"`
	Entities      []CanonicalEntity      `json:"entities"`
	Relationships []ProposedRelationship `json:"relationships"`
	Summary       string                 `json:"summary,omitempty"`
	Errors        []string               `json:"errors,omitempty"`
}

// CanonicalKey builds the dedupe key for a value/type pair: the normalized,
// lower-cased value joined with the lower-cased type.
func CanonicalKey(value, typeID string) string {
	return strings.ToLower(NormalizeValue(value)) + "|" + strings.ToLower(strings.TrimSpace(typeID))
}

// NormalizeValue standardizes a value for key comparisons: trims whitespace
// and collapses internal whitespace runs, including line breaks.
func NormalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return strings.Join(strings.Fields(value), " ")
}
