package pgx

import (
	"context"
	"time"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"

	pgxv5 "github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// UpsertRelationships inserts edges that do not exist under their business
// key (source, target, type, start_time). Unresolvable endpoints are
// skipped and counted.
func (s *Storage) UpsertRelationships(ctx context.Context, relationships []store.RelationshipUpsert) (store.Stats, error) {
	var stats store.Stats

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	trx, err := s.conn.Begin(ctx)
	if err != nil {
		return stats, err
	}
	defer trx.Rollback(ctx)

	for _, upsert := range relationships {
		sourceID, okSource, err := resolveEntityID(ctx, trx, upsert.SourceValue)
		if err != nil {
			return stats, err
		}
		targetID, okTarget, err := resolveEntityID(ctx, trx, upsert.TargetValue)
		if err != nil {
			return stats, err
		}
		if !okSource || !okTarget {
			stats.RelationshipsSkipped++
			continue
		}

		id, err := gonanoid.New()
		if err != nil {
			return stats, err
		}

		// start_time defaults to epoch so the unique index treats untimed
		// edges of one triple as the same edge.
		startTime := upsert.StartTime
		if startTime.IsZero() {
			startTime = time.Unix(0, 0).UTC()
		}

		tag, err := trx.Exec(ctx, `
			INSERT INTO graph_relationships
				(id, source_id, target_id, type, strength, description, start_time, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (source_id, target_id, type, start_time) DO NOTHING`,
			id, sourceID, targetID, upsert.Type, upsert.Strength,
			util.SanitizePostgresText(upsert.Description), startTime,
		)
		if err != nil {
			return stats, err
		}
		stats.RelationshipsCreated += int(tag.RowsAffected())
	}

	if err := trx.Commit(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func resolveEntityID(ctx context.Context, trx pgxv5.Tx, value string) (string, bool, error) {
	var id string
	err := trx.QueryRow(ctx, `
		SELECT id FROM graph_entities
		WHERE lower(value) = lower($1)
		ORDER BY created_at
		LIMIT 1`,
		types.NormalizeValue(value),
	).Scan(&id)
	if err == pgxv5.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
