package ontology

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AddRelationshipParams configures a new relationship. StartTime
// distinguishes repeated relationships of the same type between the same
// endpoints; the zero value means untimed.
type AddRelationshipParams struct {
	SourceID    string
	TargetID    string
	Type        string
	Strength    float64
	Description string
	StartTime   time.Time
}

// AddRelationship inserts a directed typed edge. Both endpoints are
// validated under the same lock acquisition as the insert, so the edge can
// never be created against an entity that a concurrent remove is deleting.
// The store never deduplicates relationships: repeated inserts of the same
// triple are distinct edges (the upsert layer is where idempotence lives).
func (s *Store) AddRelationship(params AddRelationshipParams) (*Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants := []string{params.SourceID, params.TargetID}
	if _, ok := s.entities[params.SourceID]; !ok {
		s.recordActivity(ActivityRelationshipAdded, "", params.Type, participants, false)
		return nil, &DanglingReferenceError{MissingID: params.SourceID, Operation: "relationship source"}
	}
	if _, ok := s.entities[params.TargetID]; !ok {
		s.recordActivity(ActivityRelationshipAdded, "", params.Type, participants, false)
		return nil, &DanglingReferenceError{MissingID: params.TargetID, Operation: "relationship target"}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	rel := &Relationship{
		ID:          id,
		SourceID:    params.SourceID,
		TargetID:    params.TargetID,
		Type:        params.Type,
		Strength:    params.Strength,
		Description: params.Description,
		StartTime:   params.StartTime,
		CreatedAt:   s.now(),
	}
	s.relationships[id] = rel
	s.recordActivity(ActivityRelationshipAdded, id, params.Type, participants, true)

	out := *rel
	return &out, nil
}

// GetRelationship returns the relationship with the given ID.
func (s *Store) GetRelationship(id string) (*Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relationships[id]
	if !ok {
		return nil, &NotFoundError{Kind: "relationship", ID: id}
	}
	out := *rel
	return &out, nil
}

// RemoveRelationship deletes a relationship by ID.
func (s *Store) RemoveRelationship(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relationships[id]
	if !ok {
		return &NotFoundError{Kind: "relationship", ID: id}
	}
	delete(s.relationships, id)
	s.recordActivity(ActivityRelationshipRemoved, id, rel.Type, []string{rel.SourceID, rel.TargetID}, true)
	return nil
}

// Relationships returns every relationship with the given entity as either
// endpoint.
func (s *Store) Relationships(entityID string) []*Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Relationship
	for _, rel := range s.relationships {
		if rel.SourceID == entityID || rel.TargetID == entityID {
			r := *rel
			out = append(out, &r)
		}
	}
	return out
}
