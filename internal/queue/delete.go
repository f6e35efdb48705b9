package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/store"
	pgxstore "github.com/graphweave/graphweave/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueueDeleteMsg is the delete_queue message body.
type QueueDeleteMsg struct {
	EntityID string `json:"entity_id"`
}

// ProcessDeleteMessage removes one entity and its edges. Deleting an entity
// that is already gone is treated as success so redelivered messages do not
// loop through the retry queue.
func ProcessDeleteMessage(
	ctx context.Context,
	aiClient ai.GenerativeClient,
	conn *pgxpool.Pool,
	msgBody string,
) error {
	var msg QueueDeleteMsg
	if err := json.Unmarshal([]byte(msgBody), &msg); err != nil {
		return fmt.Errorf("invalid delete message: %w", err)
	}
	if msg.EntityID == "" {
		logger.Warn("[Queue] Delete message without entity ID")
		return nil
	}

	storage := pgxstore.NewStorageWithConnection(conn, aiClient)
	err := storage.DeleteEntity(ctx, msg.EntityID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("[Queue] Entity already removed", "entity_id", msg.EntityID)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("[Queue] Entity removed", "entity_id", msg.EntityID)
	return nil
}
