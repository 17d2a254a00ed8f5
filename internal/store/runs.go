package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"github.com/qaforge/checkout-agent/internal/models"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
)

type RunStore struct {
	db *QueryInterceptor
}

func NewRunStore(db *QueryInterceptor) *RunStore {
	return &RunStore{db: db}
}

// Save persists a run. A zero CreatedAt is stamped with the current time.
func (s *RunStore) Save(ctx context.Context, run *models.Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var verification any
	if run.Verification != nil {
		data, err := json.Marshal(run.Verification)
		if err != nil {
			return err
		}
		verification = string(data)
	}

	_, err := s.db.ExecContext(ctx, queryInsertRun,
		run.ID,
		string(run.Kind),
		run.Country,
		run.Currency,
		run.Success,
		run.Message,
		verification,
		run.BeforeScreenshot,
		run.AfterScreenshot,
		run.CreatedAt,
	)
	return err
}

func (s *RunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, queryGetRun, id)

	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewRunNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *RunStore) List(ctx context.Context, opts ...ListOption) ([]models.Run, error) {
	builder := sq.Select(
		"id",
		"kind",
		"country",
		"currency",
		"success",
		"message",
		"verification",
		"before_screenshot",
		"after_screenshot",
		"created_at",
	).From("runs").
		OrderBy("created_at DESC", "id")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func (s *RunStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	builder := sq.Select("COUNT(*)").From("runs")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func scanRun(scan func(dest ...any) error) (*models.Run, error) {
	var (
		run          models.Run
		kind         string
		verification sql.NullString
	)
	err := scan(
		&run.ID,
		&kind,
		&run.Country,
		&run.Currency,
		&run.Success,
		&run.Message,
		&verification,
		&run.BeforeScreenshot,
		&run.AfterScreenshot,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Kind = models.RunKind(kind)
	if verification.Valid && verification.String != "" {
		run.Verification = &models.LocationVerification{}
		if err := json.Unmarshal([]byte(verification.String), run.Verification); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByKind(kinds ...models.RunKind) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(kinds) == 0 {
			return b
		}
		vals := make([]string, len(kinds))
		for i, k := range kinds {
			vals[i] = string(k)
		}
		return b.Where(sq.Eq{"kind": vals})
	}
}

func ByCountry(countries ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(countries) == 0 {
			return b
		}
		return b.Where(sq.Eq{"country": countries})
	}
}

func BySuccess(success bool) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"success": success})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}
