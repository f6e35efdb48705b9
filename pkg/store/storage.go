// Package store defines the persistence boundary for fused extraction
// results. Implementations upsert by business key so re-ingesting a
// document is a no-op: entities key on (normalized value, type),
// relationships on (source, target, type) plus start time when a
// relationship is deliberately repeated.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/graphweave/graphweave/pkg/types"
)

// ErrNotFound is returned by lookups for absent records.
var ErrNotFound = errors.New("record not found")

// StoredEntity is one persisted canonical entity.
type StoredEntity struct {
	ID         string                  `json:"id"`
	Value      string                  `json:"value"`
	Type       string                  `json:"type"`
	Category   types.KnowledgeCategory `json:"category"`
	Confidence float64                 `json:"confidence"`
	Provenance []types.ExtractorSource `json:"provenance"`
	Documents  []string                `json:"documents"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// StoredRelationship is one persisted directed typed edge.
type StoredRelationship struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	TargetID    string    `json:"target_id"`
	Type        string    `json:"type"`
	Strength    float64   `json:"strength"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntityUpsert is one fused entity headed for storage together with its
// resolved upper category.
type EntityUpsert struct {
	Entity   types.CanonicalEntity
	Category types.KnowledgeCategory
}

// RelationshipUpsert references its endpoints by entity value; the storage
// layer resolves values to stored entity IDs. A non-zero StartTime makes
// the edge distinct from untimed edges of the same triple.
type RelationshipUpsert struct {
	SourceValue string
	TargetValue string
	Type        string
	Strength    float64
	Description string
	StartTime   time.Time
}

// Stats counts the net effect of one upsert batch. Re-running ingestion on
// an unchanged document yields zero Created counts.
type Stats struct {
	EntitiesCreated      int `json:"entities_created"`
	EntitiesUpdated      int `json:"entities_updated"`
	RelationshipsCreated int `json:"relationships_created"`
	RelationshipsSkipped int `json:"relationships_skipped"`
}

// GraphStorage is the ingestion persistence boundary.
type GraphStorage interface {
	// UpsertEntities inserts or merges the batch for one document.
	// Merging widens provenance, keeps the higher confidence and appends
	// the document to the entity's source list.
	UpsertEntities(ctx context.Context, document string, entities []EntityUpsert) (Stats, error)

	// UpsertRelationships inserts edges that do not yet exist under their
	// business key. Edges whose endpoints cannot be resolved are skipped
	// and counted, never fatal.
	UpsertRelationships(ctx context.Context, relationships []RelationshipUpsert) (Stats, error)

	GetEntity(ctx context.Context, id string) (*StoredEntity, error)
	FindEntity(ctx context.Context, value, typeID string) (*StoredEntity, error)
	ListEntities(ctx context.Context, typeID string) ([]StoredEntity, error)
	ListRelationships(ctx context.Context, entityID string) ([]StoredRelationship, error)

	// SearchSimilar returns entities ranked by relevance to the query.
	SearchSimilar(ctx context.Context, query string, limit int) ([]StoredEntity, error)

	// DeleteEntity removes the entity and every edge touching it. Deleting
	// an absent entity returns ErrNotFound.
	DeleteEntity(ctx context.Context, id string) error
}
