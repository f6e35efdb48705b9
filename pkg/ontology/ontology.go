// Package ontology holds the long-lived typed knowledge graph: entities
// under seeded upper categories, directed typed relationships, knowledge
// elements linking entities to source documents, and an activity trail.
// The store enforces its integrity invariants synchronously.
package ontology

import (
	"sync"
	"time"

	"github.com/graphweave/graphweave/pkg/types"
)

// AttributeKind is the declared type of an entity attribute value.
type AttributeKind string

const (
	KindString AttributeKind = "string"
	KindNumber AttributeKind = "number"
	KindBool   AttributeKind = "bool"
	KindTime   AttributeKind = "time"
)

// Attribute is one typed attribute on an entity. Value is stored as text
// and validated against Kind when consistency is computed.
type Attribute struct {
	Kind  AttributeKind `json:"kind"`
	Value string        `json:"value"`
}

// Entity is one node of the knowledge graph. Extensions carries
// deployment-specific payload that the core schema does not model;
// it is opaque to the store.
type Entity struct {
	ID         string                  `json:"id"`
	Value      string                  `json:"value"`
	Type       string                  `json:"type"`
	Category   types.KnowledgeCategory `json:"category"`
	Confidence float64                 `json:"confidence"`
	Attributes map[string]Attribute    `json:"attributes,omitempty"`
	Extensions map[string]any          `json:"extensions,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// Relationship is one directed typed edge. StartTime distinguishes repeated
// relationships of the same type between the same endpoints.
type Relationship struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	TargetID    string    `json:"target_id"`
	Type        string    `json:"type"`
	Strength    float64   `json:"strength"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Confidentiality classifies who may see a knowledge element.
type Confidentiality string

const (
	ConfidentialityPublic     Confidentiality = "public"
	ConfidentialityInternal   Confidentiality = "internal"
	ConfidentialityRestricted Confidentiality = "restricted"
)

// KnowledgeElement ties one or more entities to a piece of source material.
// Reliability is the trust in the content itself, on [0, 1]; it is
// independent of the confidence of the entities it references.
type KnowledgeElement struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	Title            string          `json:"title"`
	Content          string          `json:"content"`
	Reliability      float64         `json:"reliability"`
	Confidentiality  Confidentiality `json:"confidentiality"`
	RelatedEntityIDs []string        `json:"related_entity_ids"`
	Document         string          `json:"document,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Store is the in-process ontology instance. All operations take the single
// writer lock, so concurrent batch workers cannot race between an existence
// check and the mutation depending on it.
//
// A Store should be created using NewStore; callers inject it where needed
// rather than sharing a package-level instance.
type Store struct {
	mu sync.Mutex

	entities      map[string]*Entity
	byKey         map[string]string // canonical key -> entity ID
	relationships map[string]*Relationship
	knowledge     map[string]*KnowledgeElement
	activities    []Activity

	now func() time.Time
}

// NewStore creates an empty ontology store.
func NewStore() *Store {
	return &Store{
		entities:      make(map[string]*Entity),
		byKey:         make(map[string]string),
		relationships: make(map[string]*Relationship),
		knowledge:     make(map[string]*KnowledgeElement),
		now:           time.Now,
	}
}

// EntityCount returns the number of stored entities.
func (s *Store) EntityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// RelationshipCount returns the number of stored relationships.
func (s *Store) RelationshipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.relationships)
}
