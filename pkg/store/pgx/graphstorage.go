// Package pgx is the PostgreSQL GraphStorage implementation. Entities carry
// pgvector embeddings so similarity search runs in the database.
package pgx

import (
	"context"
	"sync"

	"github.com/graphweave/graphweave/pkg/ai"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// embeddingRetries bounds the attempts per embedding call; a transient
// model failure must not roll back a whole upsert batch.
const embeddingRetries = 3

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// Storage implements store.GraphStorage on PostgreSQL with pgvector. The
// AI client supplies embeddings for inserted entities and for similarity
// queries; writes serialize through one mutex so batch workers cannot
// interleave partial upserts.
//
// A Storage should be created using NewStorageWithConnection.
type Storage struct {
	conn     pgxIConn
	aiClient ai.GenerativeClient
	dbLock   sync.Mutex
}

// NewStorageWithConnection creates a Storage over an existing connection or
// pool. The connection must have pgvector types registered.
func NewStorageWithConnection(conn pgxIConn, aiClient ai.GenerativeClient) *Storage {
	return &Storage{
		conn:     conn,
		aiClient: aiClient,
	}
}
