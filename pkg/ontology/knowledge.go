package ontology

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AddKnowledgeParams configures a new knowledge element. An empty
// Confidentiality defaults to internal.
type AddKnowledgeParams struct {
	Type             string
	Title            string
	Content          string
	Reliability      float64
	Confidentiality  Confidentiality
	RelatedEntityIDs []string
	Document         string
}

// AddKnowledge stores a knowledge element linked to one or more entities.
// Every related entity must exist and Reliability must be on [0, 1];
// ingestion creates these after entity upserts.
func (s *Store) AddKnowledge(params AddKnowledgeParams) (*KnowledgeElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(params.RelatedEntityIDs) == 0 {
		return nil, fmt.Errorf("knowledge element needs at least one related entity")
	}
	if params.Reliability < 0 || params.Reliability > 1 {
		return nil, fmt.Errorf("knowledge element reliability %v outside [0, 1]", params.Reliability)
	}
	for _, entityID := range params.RelatedEntityIDs {
		if _, ok := s.entities[entityID]; !ok {
			s.recordActivity(ActivityKnowledgeAdded, "", params.Title, params.RelatedEntityIDs, false)
			return nil, &DanglingReferenceError{MissingID: entityID, Operation: "knowledge element"}
		}
	}

	confidentiality := params.Confidentiality
	if confidentiality == "" {
		confidentiality = ConfidentialityInternal
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	related := make([]string, len(params.RelatedEntityIDs))
	copy(related, params.RelatedEntityIDs)

	element := &KnowledgeElement{
		ID:               id,
		Type:             params.Type,
		Title:            params.Title,
		Content:          params.Content,
		Reliability:      params.Reliability,
		Confidentiality:  confidentiality,
		RelatedEntityIDs: related,
		Document:         params.Document,
		CreatedAt:        s.now(),
	}
	s.knowledge[id] = element
	s.recordActivity(ActivityKnowledgeAdded, id, params.Title, related, true)

	return copyKnowledge(element), nil
}

// RemoveKnowledge deletes a knowledge element. Removal is always explicit;
// nothing else in the store deletes knowledge besides entity removal
// detaching it.
func (s *Store) RemoveKnowledge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, ok := s.knowledge[id]
	if !ok {
		return &NotFoundError{Kind: "knowledge element", ID: id}
	}
	delete(s.knowledge, id)
	s.recordActivity(ActivityKnowledgeRemoved, id, element.Title, element.RelatedEntityIDs, true)
	return nil
}

// Knowledge returns the knowledge elements related to an entity.
func (s *Store) Knowledge(entityID string) []*KnowledgeElement {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*KnowledgeElement
	for _, element := range s.knowledge {
		if relatedTo(element, entityID) {
			out = append(out, copyKnowledge(element))
		}
	}
	return out
}

func relatedTo(element *KnowledgeElement, entityID string) bool {
	for _, id := range element.RelatedEntityIDs {
		if id == entityID {
			return true
		}
	}
	return false
}

func copyKnowledge(element *KnowledgeElement) *KnowledgeElement {
	out := *element
	out.RelatedEntityIDs = make([]string, len(element.RelatedEntityIDs))
	copy(out.RelatedEntityIDs, element.RelatedEntityIDs)
	return &out
}
