// Package memory is the in-process GraphStorage implementation, used by
// tests and as the CLI default when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Storage keeps the graph in maps guarded by one mutex. Safe for concurrent
// batch workers.
//
// A Storage should be created using NewStorage.
type Storage struct {
	mu sync.Mutex

	entities map[string]*store.StoredEntity // by ID
	byKey    map[string]string              // canonical key -> ID
	byValue  map[string][]string            // normalized value -> IDs

	relationships map[string]*store.StoredRelationship // by business key

	now func() time.Time
}

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		entities:      make(map[string]*store.StoredEntity),
		byKey:         make(map[string]string),
		byValue:       make(map[string][]string),
		relationships: make(map[string]*store.StoredRelationship),
		now:           time.Now,
	}
}

// UpsertEntities inserts new entities and merges re-ingested ones: the
// stored record keeps the max confidence, the union of provenance and the
// union of source documents.
func (s *Storage) UpsertEntities(ctx context.Context, document string, entities []store.EntityUpsert) (store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats store.Stats
	for _, upsert := range entities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entity := upsert.Entity
		key := types.CanonicalKey(entity.CanonicalValue, entity.Type)
		if id, ok := s.byKey[key]; ok {
			existing := s.entities[id]
			changed := false
			if entity.Confidence > existing.Confidence {
				existing.Confidence = entity.Confidence
				changed = true
			}
			for _, source := range entity.Provenance {
				if !containsSource(existing.Provenance, source) {
					existing.Provenance = append(existing.Provenance, source)
					changed = true
				}
			}
			if document != "" && !containsString(existing.Documents, document) {
				existing.Documents = append(existing.Documents, document)
				changed = true
			}
			if changed {
				existing.UpdatedAt = s.now()
				stats.EntitiesUpdated++
			}
			continue
		}

		id, err := gonanoid.New()
		if err != nil {
			return stats, err
		}
		now := s.now()
		stored := &store.StoredEntity{
			ID:         id,
			Value:      types.NormalizeValue(entity.CanonicalValue),
			Type:       entity.Type,
			Category:   upsert.Category,
			Confidence: entity.Confidence,
			Provenance: append([]types.ExtractorSource{}, entity.Provenance...),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if document != "" {
			stored.Documents = []string{document}
		}
		s.entities[id] = stored
		s.byKey[key] = id
		value := strings.ToLower(stored.Value)
		s.byValue[value] = append(s.byValue[value], id)
		stats.EntitiesCreated++
	}
	return stats, nil
}

// UpsertRelationships inserts edges under their business key. An edge whose
// key already exists is left untouched; unresolvable endpoints are skipped
// and counted.
func (s *Storage) UpsertRelationships(ctx context.Context, relationships []store.RelationshipUpsert) (store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats store.Stats
	for _, upsert := range relationships {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		sourceID, okSource := s.resolveValue(upsert.SourceValue)
		targetID, okTarget := s.resolveValue(upsert.TargetValue)
		if !okSource || !okTarget {
			stats.RelationshipsSkipped++
			continue
		}

		key := relationshipKey(sourceID, targetID, upsert.Type, upsert.StartTime)
		if _, ok := s.relationships[key]; ok {
			continue
		}

		id, err := gonanoid.New()
		if err != nil {
			return stats, err
		}
		s.relationships[key] = &store.StoredRelationship{
			ID:          id,
			SourceID:    sourceID,
			TargetID:    targetID,
			Type:        upsert.Type,
			Strength:    upsert.Strength,
			Description: upsert.Description,
			StartTime:   upsert.StartTime,
			CreatedAt:   s.now(),
		}
		stats.RelationshipsCreated++
	}
	return stats, nil
}

// GetEntity returns the entity with the given ID.
func (s *Storage) GetEntity(ctx context.Context, id string) (*store.StoredEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *entity
	return &out, nil
}

// FindEntity returns the entity with the given value and type.
func (s *Storage) FindEntity(ctx context.Context, value, typeID string) (*store.StoredEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[types.CanonicalKey(value, typeID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *s.entities[id]
	return &out, nil
}

// ListEntities returns entities of the given type sorted by value; empty
// type means all.
func (s *Storage) ListEntities(ctx context.Context, typeID string) ([]store.StoredEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.StoredEntity, 0, len(s.entities))
	for _, entity := range s.entities {
		if typeID != "" && entity.Type != typeID {
			continue
		}
		out = append(out, *entity)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// ListRelationships returns every edge touching the entity.
func (s *Storage) ListRelationships(ctx context.Context, entityID string) ([]store.StoredRelationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.StoredRelationship
	for _, rel := range s.relationships {
		if rel.SourceID == entityID || rel.TargetID == entityID {
			out = append(out, *rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SearchSimilar ranks entities by case-insensitive substring match against
// the query. The Postgres implementation replaces this with embedding
// similarity; in memory a lexical match keeps the CLI usable offline.
func (s *Storage) SearchSimilar(ctx context.Context, query string, limit int) ([]store.StoredEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(types.NormalizeValue(query))
	if query == "" || limit <= 0 {
		return nil, nil
	}

	var out []store.StoredEntity
	for _, entity := range s.entities {
		if strings.Contains(strings.ToLower(entity.Value), query) {
			out = append(out, *entity)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteEntity removes the entity and detaches every edge touching it
// under one lock acquisition.
func (s *Storage) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return store.ErrNotFound
	}

	for key, rel := range s.relationships {
		if rel.SourceID == id || rel.TargetID == id {
			delete(s.relationships, key)
		}
	}

	delete(s.byKey, types.CanonicalKey(entity.Value, entity.Type))
	value := strings.ToLower(entity.Value)
	ids := s.byValue[value]
	for i, candidate := range ids {
		if candidate == id {
			s.byValue[value] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byValue[value]) == 0 {
		delete(s.byValue, value)
	}
	delete(s.entities, id)
	return nil
}

// caller holds s.mu
func (s *Storage) resolveValue(value string) (string, bool) {
	ids := s.byValue[strings.ToLower(types.NormalizeValue(value))]
	if len(ids) == 0 {
		return "", false
	}
	// Ambiguous values (same value under several types) resolve to the
	// earliest stored entity.
	return ids[0], true
}

func relationshipKey(sourceID, targetID, relType string, startTime time.Time) string {
	key := sourceID + "|" + targetID + "|" + strings.ToLower(relType)
	if !startTime.IsZero() {
		key += "|" + startTime.UTC().Format(time.RFC3339)
	}
	return key
}

func containsSource(haystack []types.ExtractorSource, needle types.ExtractorSource) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
