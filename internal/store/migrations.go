package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all clustersim tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id          TEXT PRIMARY KEY,
		label       TEXT NOT NULL DEFAULT '',
		sim_time    INTEGER NOT NULL,
		next_job_id INTEGER NOT NULL,
		created_at  TEXT NOT NULL
	)`,

	// seq preserves ledger order.
	`CREATE TABLE IF NOT EXISTS snapshot_nodes (
		snapshot_id   TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		seq           INTEGER NOT NULL,
		node_id       INTEGER NOT NULL,
		total_cpu     INTEGER NOT NULL,
		total_ram     INTEGER NOT NULL,
		available_cpu INTEGER NOT NULL,
		available_ram INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, seq)
	)`,

	// store is one of pending, running, completed; seq preserves the order
	// within that store. node_id is set for running jobs only.
	`CREATE TABLE IF NOT EXISTS snapshot_jobs (
		snapshot_id  TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		store        TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		job_id       INTEGER NOT NULL,
		priority     INTEGER NOT NULL,
		cpu          INTEGER NOT NULL,
		ram          INTEGER NOT NULL,
		duration     INTEGER NOT NULL,
		status       TEXT NOT NULL,
		arrival_time INTEGER NOT NULL,
		node_id      INTEGER,
		PRIMARY KEY (snapshot_id, store, seq)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_label ON snapshots(label)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
