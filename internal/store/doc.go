// Package store implements the data access layer for the checkout agent.
//
// Storage is a single DuckDB database holding the run history. The Store
// facade owns the database handle and exposes one repository per entity.
//
// Tables created by local migrations (internal/store/migrations):
//
//	┌────────────────────┬─────────────────────────────────────────────┐
//	│  Table             │  Purpose                                    │
//	├────────────────────┼─────────────────────────────────────────────┤
//	│  runs              │  One row per executed automation task       │
//	│  schema_migrations │  Migration version tracking                 │
//	└────────────────────┴─────────────────────────────────────────────┘
//
// # RunStore
//
// Persists and queries run records. The egress verification snapshot is
// stored as a JSON string in the verification column.
//
// RunStore.List uses the functional options pattern. Each ListOption modifies
// the SQL query builder and options combine freely:
//
//	runs, err := store.Runs().List(ctx,
//	    store.ByKind(models.RunKindPayCard),
//	    store.ByCountry("de"),
//	    store.BySuccess(true),
//	    store.WithLimit(50),
//	    store.WithOffset(0),
//	)
//
// # QueryInterceptor
//
// All database operations go through a QueryInterceptor that debug-logs each
// statement, giving visibility into SQL execution without modifying the
// individual stores.
package store
