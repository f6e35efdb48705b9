package ontology

import (
	"fmt"
	"strconv"
	"time"

	"github.com/graphweave/graphweave/pkg/types"
)

// Health is the derived quality assessment of one entity. Both scores are
// recomputed from current state on every read; nothing persists them.
type Health struct {
	Completeness int      `json:"completeness"`
	Consistency  int      `json:"consistency"`
	Issues       []string `json:"issues,omitempty"`
}

const (
	consistencyValidationPenalty = 10
	consistencyStructuralPenalty = 20
	consistencyDanglingPenalty   = 5
)

var seededCategories = map[types.KnowledgeCategory]bool{
	types.CategoryAgent:       true,
	types.CategoryObject:      true,
	types.CategoryEvent:       true,
	types.CategoryQuality:     true,
	types.CategoryAbstract:    true,
	types.CategoryInformation: true,
}

// EntityHealth computes the completeness and consistency scores for one
// entity.
//
// Completeness is a 0-100 checklist: non-empty value, a seeded category,
// positive confidence, at least one attribute, at least one knowledge
// element. Consistency starts at 100 and loses 10 per attribute value that
// fails its declared kind, 20 per failed structural check, and 5 per
// relationship whose counterpart entity is missing, floored at 0.
func (s *Store) EntityHealth(id string) (Health, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return Health{}, &NotFoundError{Kind: "entity", ID: id}
	}

	var issues []string

	checks := []bool{
		entity.Value != "",
		seededCategories[entity.Category],
		entity.Confidence > 0,
		len(entity.Attributes) > 0,
		s.hasKnowledge(id),
	}
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	completeness := passed * 100 / len(checks)

	consistency := 100
	for name, attr := range entity.Attributes {
		if !attributeValid(attr) {
			consistency -= consistencyValidationPenalty
			issues = append(issues, fmt.Sprintf("attribute %q is not a valid %s", name, attr.Kind))
		}
	}
	if entity.Confidence < 0 || entity.Confidence > 1 {
		consistency -= consistencyStructuralPenalty
		issues = append(issues, "confidence outside [0,1]")
	}
	for _, rel := range s.relationships {
		if rel.SourceID != id && rel.TargetID != id {
			continue
		}
		if rel.SourceID == rel.TargetID {
			consistency -= consistencyStructuralPenalty
			issues = append(issues, fmt.Sprintf("relationship %s is a self-loop", rel.ID))
			continue
		}
		counterpart := rel.TargetID
		if rel.TargetID == id {
			counterpart = rel.SourceID
		}
		if _, ok := s.entities[counterpart]; !ok {
			consistency -= consistencyDanglingPenalty
			issues = append(issues, fmt.Sprintf("relationship %s counterpart %s is missing", rel.ID, counterpart))
		}
	}
	if consistency < 0 {
		consistency = 0
	}

	return Health{
		Completeness: completeness,
		Consistency:  consistency,
		Issues:       issues,
	}, nil
}

// caller holds s.mu
func (s *Store) hasKnowledge(entityID string) bool {
	for _, element := range s.knowledge {
		if relatedTo(element, entityID) {
			return true
		}
	}
	return false
}

func attributeValid(attr Attribute) bool {
	switch attr.Kind {
	case KindString, "":
		return true
	case KindNumber:
		_, err := strconv.ParseFloat(attr.Value, 64)
		return err == nil
	case KindBool:
		_, err := strconv.ParseBool(attr.Value)
		return err == nil
	case KindTime:
		_, err := time.Parse(time.RFC3339, attr.Value)
		return err == nil
	default:
		return false
	}
}
