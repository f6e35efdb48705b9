package pgx

import (
	"context"
	"time"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const entityColumns = `id, value, type, category, confidence, provenance, documents, created_at, updated_at`

// GetEntity returns the entity with the given ID.
func (s *Storage) GetEntity(ctx context.Context, id string) (*store.StoredEntity, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+entityColumns+` FROM graph_entities WHERE id = $1`, id)
	return scanEntity(row)
}

// FindEntity returns the entity with the given value and type.
func (s *Storage) FindEntity(ctx context.Context, value, typeID string) (*store.StoredEntity, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM graph_entities WHERE canonical_key = $1`,
		types.CanonicalKey(value, typeID),
	)
	return scanEntity(row)
}

// ListEntities returns entities of the given type ordered by value; empty
// type means all.
func (s *Storage) ListEntities(ctx context.Context, typeID string) ([]store.StoredEntity, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+entityColumns+`
		FROM graph_entities
		WHERE $1 = '' OR type = $1
		ORDER BY value, type`,
		typeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntities(rows)
}

// ListRelationships returns every edge touching the entity.
func (s *Storage) ListRelationships(ctx context.Context, entityID string) ([]store.StoredRelationship, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, source_id, target_id, type, strength, description, start_time, created_at
		FROM graph_relationships
		WHERE source_id = $1 OR target_id = $1
		ORDER BY created_at, id`,
		entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.StoredRelationship
	for rows.Next() {
		var rel store.StoredRelationship
		if err := rows.Scan(
			&rel.ID, &rel.SourceID, &rel.TargetID, &rel.Type,
			&rel.Strength, &rel.Description, &rel.StartTime, &rel.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// SearchSimilar embeds the query and returns the nearest entities by cosine
// distance.
func (s *Storage) SearchSimilar(ctx context.Context, query string, limit int) ([]store.StoredEntity, error) {
	if types.NormalizeValue(query) == "" || limit <= 0 {
		return nil, nil
	}

	embedding, err := util.RetryWithContext(ctx, embeddingRetries, func(ctx context.Context) ([]float32, error) {
		return s.aiClient.GenerateEmbedding(ctx, []byte(query))
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, `
		SELECT `+entityColumns+`
		FROM graph_entities
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntities(rows)
}

func scanEntity(row pgxv5.Row) (*store.StoredEntity, error) {
	var (
		entity     store.StoredEntity
		category   string
		provenance []string
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(
		&entity.ID, &entity.Value, &entity.Type, &category, &entity.Confidence,
		&provenance, &entity.Documents, &createdAt, &updatedAt,
	)
	if err == pgxv5.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entity.Category = types.KnowledgeCategory(category)
	entity.Provenance = provenanceSources(provenance)
	entity.CreatedAt = createdAt
	entity.UpdatedAt = updatedAt
	return &entity, nil
}

func scanEntities(rows pgxv5.Rows) ([]store.StoredEntity, error) {
	var out []store.StoredEntity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entity)
	}
	return out, rows.Err()
}
