// Package storage holds the pgx repositories behind the booking engine.
// Methods that must run inside the booking transaction take an explicit
// querier so the caller controls transaction scope; advisory reads go
// straight to the pool.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/solenne-institute/booking/libs/db"
)

// Querier is satisfied by both *db.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CurrentSchemaVersion is the newest schema this build understands.
// Older deployments pin SCHEMA_VERSION explicitly during rolling
// migrations instead of probing the catalog at runtime.
const CurrentSchemaVersion = 2

// MinSchemaVersion is the oldest schema this build still supports
// (v1 lacked the appointment notes column).
const MinSchemaVersion = 1

type Store struct {
	pool *db.Pool

	// notesEnabled is resolved once from the configured schema version.
	notesEnabled bool
}

func New(pool *db.Pool, schemaVersion int) (*Store, error) {
	if schemaVersion < MinSchemaVersion || schemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (supported %d..%d)",
			schemaVersion, MinSchemaVersion, CurrentSchemaVersion)
	}
	return &Store{
		pool:         pool,
		notesEnabled: schemaVersion >= 2,
	}, nil
}

func (s *Store) Pool() *db.Pool {
	return s.pool
}

// BeginBooking opens the serializable transaction every booking attempt
// runs in.
func (s *Store) BeginBooking(ctx context.Context) (pgx.Tx, error) {
	return s.pool.BeginSerializable(ctx)
}
