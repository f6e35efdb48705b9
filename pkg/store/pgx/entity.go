package pgx

import (
	"context"
	"strings"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"

	pgxv5 "github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pgvector/pgvector-go"
)

// UpsertEntities inserts or merges the batch for one document inside a
// single transaction. Existing rows are locked, merged in Go and written
// back; new rows get an embedding of "value (type)" for similarity search.
func (s *Storage) UpsertEntities(ctx context.Context, document string, entities []store.EntityUpsert) (store.Stats, error) {
	var stats store.Stats

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	trx, err := s.conn.Begin(ctx)
	if err != nil {
		return stats, err
	}
	defer trx.Rollback(ctx)

	for _, upsert := range entities {
		entity := upsert.Entity
		value := util.SanitizePostgresText(types.NormalizeValue(entity.CanonicalValue))
		if value == "" {
			continue
		}
		key := types.CanonicalKey(value, entity.Type)

		var (
			id         string
			confidence float64
			provenance []string
			documents  []string
		)
		err := trx.QueryRow(ctx, `
			SELECT id, confidence, provenance, documents
			FROM graph_entities
			WHERE canonical_key = $1
			FOR UPDATE`,
			key,
		).Scan(&id, &confidence, &provenance, &documents)

		switch {
		case err == nil:
			updated, err := mergeEntityRow(ctx, trx, id, confidence, provenance, documents, entity, document)
			if err != nil {
				return stats, err
			}
			if updated {
				stats.EntitiesUpdated++
			}

		case err == pgxv5.ErrNoRows:
			if err := s.insertEntityRow(ctx, trx, key, value, upsert, document); err != nil {
				return stats, err
			}
			stats.EntitiesCreated++

		default:
			return stats, err
		}
	}

	if err := trx.Commit(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Storage) insertEntityRow(ctx context.Context, trx pgxv5.Tx, key, value string, upsert store.EntityUpsert, document string) error {
	entity := upsert.Entity

	embedding, err := util.RetryWithContext(ctx, embeddingRetries, func(ctx context.Context) ([]float32, error) {
		return s.aiClient.GenerateEmbedding(ctx, []byte(value+" ("+entity.Type+")"))
	})
	if err != nil {
		return err
	}

	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	documents := []string{}
	if document != "" {
		documents = append(documents, document)
	}

	_, err = trx.Exec(ctx, `
		INSERT INTO graph_entities
			(id, canonical_key, value, type, category, confidence, provenance, documents, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		id, key, value, entity.Type, string(upsert.Category), entity.Confidence,
		provenanceStrings(entity.Provenance), documents, pgvector.NewVector(embedding),
	)
	return err
}

func mergeEntityRow(
	ctx context.Context,
	trx pgxv5.Tx,
	id string,
	confidence float64,
	provenance, documents []string,
	entity types.CanonicalEntity,
	document string,
) (bool, error) {
	changed := false
	if entity.Confidence > confidence {
		confidence = entity.Confidence
		changed = true
	}
	for _, source := range entity.Provenance {
		if !containsString(provenance, string(source)) {
			provenance = append(provenance, string(source))
			changed = true
		}
	}
	if document != "" && !containsString(documents, document) {
		documents = append(documents, document)
		changed = true
	}
	if !changed {
		return false, nil
	}

	_, err := trx.Exec(ctx, `
		UPDATE graph_entities
		SET confidence = $2, provenance = $3, documents = $4, updated_at = now()
		WHERE id = $1`,
		id, confidence, provenance, documents,
	)
	return true, err
}

// DeleteEntity detaches every edge touching the entity, then removes the
// row, all inside one transaction.
func (s *Storage) DeleteEntity(ctx context.Context, id string) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	trx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer trx.Rollback(ctx)

	_, err = trx.Exec(ctx, `
		DELETE FROM graph_relationships
		WHERE source_id = $1 OR target_id = $1`,
		id,
	)
	if err != nil {
		return err
	}

	tag, err := trx.Exec(ctx, `DELETE FROM graph_entities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return trx.Commit(ctx)
}

func provenanceStrings(provenance []types.ExtractorSource) []string {
	out := make([]string, len(provenance))
	for i, s := range provenance {
		out[i] = string(s)
	}
	return out
}

func provenanceSources(provenance []string) []types.ExtractorSource {
	out := make([]types.ExtractorSource, len(provenance))
	for i, s := range provenance {
		out[i] = types.ExtractorSource(strings.ToLower(s))
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
