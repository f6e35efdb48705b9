package ontology

import (
	"github.com/graphweave/graphweave/pkg/types"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AddEntityParams configures a new entity.
type AddEntityParams struct {
	Value      string
	Type       string
	Category   types.KnowledgeCategory
	Confidence float64
	Attributes map[string]Attribute
	Extensions map[string]any
}

// AddEntity inserts a new entity. Re-adding an entity whose canonical value
// and type already exist yields a DuplicateEntityError; callers that want
// merge semantics go through the upsert layer instead.
func (s *Store) AddEntity(params AddEntityParams) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.CanonicalKey(params.Value, params.Type)
	if existingID, ok := s.byKey[key]; ok {
		return nil, &DuplicateEntityError{
			Value:      params.Value,
			Type:       params.Type,
			ExistingID: existingID,
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	now := s.now()
	entity := &Entity{
		ID:         id,
		Value:      types.NormalizeValue(params.Value),
		Type:       params.Type,
		Category:   params.Category,
		Confidence: params.Confidence,
		Attributes: params.Attributes,
		Extensions: params.Extensions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.entities[id] = entity
	s.byKey[key] = id
	s.recordActivity(ActivityEntityAdded, id, entity.Value, []string{id}, true)

	return copyEntity(entity), nil
}

// GetEntity returns the entity with the given ID.
func (s *Store) GetEntity(id string) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, &NotFoundError{Kind: "entity", ID: id}
	}
	return copyEntity(entity), nil
}

// FindEntity returns the entity with the given canonical value and type.
func (s *Store) FindEntity(value, typeID string) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[types.CanonicalKey(value, typeID)]
	if !ok {
		return nil, &NotFoundError{Kind: "entity", ID: value}
	}
	return copyEntity(s.entities[id]), nil
}

// UpdateEntityParams carries the mutable fields of an entity. Nil maps leave
// the stored attributes or extensions untouched.
type UpdateEntityParams struct {
	Confidence *float64
	Attributes map[string]Attribute
	Extensions map[string]any
}

// UpdateEntity applies params to the entity with the given ID. Attribute and
// extension entries merge into the existing maps.
func (s *Store) UpdateEntity(id string, params UpdateEntityParams) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, &NotFoundError{Kind: "entity", ID: id}
	}

	if params.Confidence != nil {
		entity.Confidence = *params.Confidence
	}
	if params.Attributes != nil {
		if entity.Attributes == nil {
			entity.Attributes = make(map[string]Attribute, len(params.Attributes))
		}
		for name, attr := range params.Attributes {
			entity.Attributes[name] = attr
		}
	}
	if params.Extensions != nil {
		if entity.Extensions == nil {
			entity.Extensions = make(map[string]any, len(params.Extensions))
		}
		for name, value := range params.Extensions {
			entity.Extensions[name] = value
		}
	}
	entity.UpdatedAt = s.now()
	s.recordActivity(ActivityEntityUpdated, id, entity.Value, []string{id}, true)

	return copyEntity(entity), nil
}

// RemoveEntity deletes an entity. Relationships touching it and knowledge
// elements attached to it are detached first, so no operation ever observes
// an edge with a missing endpoint.
func (s *Store) RemoveEntity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return &NotFoundError{Kind: "entity", ID: id}
	}

	for relID, rel := range s.relationships {
		if rel.SourceID == id || rel.TargetID == id {
			delete(s.relationships, relID)
		}
	}
	// Knowledge shared with other entities only loses this link; an element
	// whose last related entity disappears goes with it.
	for kID, k := range s.knowledge {
		if !relatedTo(k, id) {
			continue
		}
		remaining := k.RelatedEntityIDs[:0]
		for _, relatedID := range k.RelatedEntityIDs {
			if relatedID != id {
				remaining = append(remaining, relatedID)
			}
		}
		k.RelatedEntityIDs = remaining
		if len(remaining) == 0 {
			delete(s.knowledge, kID)
		}
	}

	delete(s.byKey, types.CanonicalKey(entity.Value, entity.Type))
	delete(s.entities, id)
	s.recordActivity(ActivityEntityRemoved, id, entity.Value, []string{id}, true)
	return nil
}

// ListEntities returns every entity of the given type; empty type means all.
func (s *Store) ListEntities(typeID string) []*Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		if typeID != "" && entity.Type != typeID {
			continue
		}
		out = append(out, copyEntity(entity))
	}
	return out
}

func copyEntity(e *Entity) *Entity {
	out := *e
	if e.Attributes != nil {
		out.Attributes = make(map[string]Attribute, len(e.Attributes))
		for name, attr := range e.Attributes {
			out.Attributes[name] = attr
		}
	}
	if e.Extensions != nil {
		out.Extensions = make(map[string]any, len(e.Extensions))
		for name, value := range e.Extensions {
			out.Extensions[name] = value
		}
	}
	return &out
}
