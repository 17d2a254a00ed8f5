package store

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/store/migrations"
)

// Store provides access to all storage repositories.
type Store struct {
	db   *sql.DB
	runs *RunStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:   db,
		runs: NewRunStore(NewQueryInterceptor(db)),
	}
}

// Migrate brings the schema up to date. Safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, s.db)
}

func (s *Store) Runs() *RunStore {
	return s.runs
}

func (s *Store) Close() error {
	return s.db.Close()
}

// QueryInterceptor wraps the database handle with debug logging of every
// statement, so SQL execution is visible without touching the stores.
type QueryInterceptor struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func NewQueryInterceptor(db *sql.DB) *QueryInterceptor {
	return &QueryInterceptor{db: db, log: zap.S().Named("store")}
}

func (q *QueryInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	q.log.Debugw("query", "sql", oneline(query), "args", args)
	return q.db.QueryContext(ctx, query, args...)
}

func (q *QueryInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	q.log.Debugw("query row", "sql", oneline(query), "args", args)
	return q.db.QueryRowContext(ctx, query, args...)
}

func (q *QueryInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q.log.Debugw("exec", "sql", oneline(query), "args", args)
	return q.db.ExecContext(ctx, query, args...)
}

func oneline(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
