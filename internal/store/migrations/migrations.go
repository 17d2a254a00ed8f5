package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type migration struct {
	version int
	name    string
	stmt    string
}

var all = []migration{
	{
		version: 1,
		name:    "create runs table",
		stmt: `
			CREATE TABLE IF NOT EXISTS runs (
				id VARCHAR PRIMARY KEY,
				kind VARCHAR NOT NULL,
				country VARCHAR NOT NULL DEFAULT '',
				currency VARCHAR NOT NULL DEFAULT '',
				success BOOLEAN NOT NULL DEFAULT false,
				message VARCHAR NOT NULL DEFAULT '',
				verification VARCHAR,
				before_screenshot VARCHAR NOT NULL DEFAULT '',
				after_screenshot VARCHAR NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT now()
			)`,
	},
}

// Run applies all pending migrations. Applied versions are tracked in
// schema_migrations, so running it again is a no-op.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	log := zap.S().Named("migrations")
	for _, m := range all {
		var applied int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.version).Scan(&applied)
		if err != nil {
			return err
		}
		if applied > 0 {
			continue
		}

		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return err
		}
		log.Infow("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}
