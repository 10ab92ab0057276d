package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL entry point shared by the whole process.
type Repository struct {
	pool   *pgxpool.Pool
	events *EventRepository
}

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}

	return &Repository{
		pool:   pool,
		events: &EventRepository{pool: pool},
	}, nil
}

// Events returns the events repository
func (r *Repository) Events() *EventRepository {
	return r.events
}

// Ping checks that a connection can be acquired and used.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// SchemaVersion reads the newest row of golang-migrate's schema_migrations
// table over the pool. Unlike MigrationVersion it needs no migrations source.
func (r *Repository) SchemaVersion(ctx context.Context) (version int64, dirty bool, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &dirty)
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// txCommitter implements events.TxCommitter over a pgx transaction.
type txCommitter struct {
	tx pgx.Tx
}

func (tc *txCommitter) Commit(ctx context.Context) error {
	return tc.tx.Commit(ctx)
}

func (tc *txCommitter) Rollback(ctx context.Context) error {
	return tc.tx.Rollback(ctx)
}
