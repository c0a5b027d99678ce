package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    source TEXT,
    samples INTEGER NOT NULL,
    nx INTEGER NOT NULL,
    ny INTEGER NOT NULL,
    nz INTEGER NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS models (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    attribute TEXT NOT NULL,
    model TEXT NOT NULL,
    nugget REAL NOT NULL,
    sill REAL NOT NULL,
    model_range REAL NOT NULL,
    PRIMARY KEY (run_id, attribute)
);

CREATE TABLE IF NOT EXISTS bins (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    attribute TEXT NOT NULL,
    idx INTEGER NOT NULL,
    lag REAL NOT NULL,
    mean_distance REAL,
    gamma REAL,
    pairs INTEGER NOT NULL,
    PRIMARY KEY (run_id, attribute, idx)
);
`,
	},
	{
		Version:     2,
		Description: "Add estimates table",
		SQL: `
CREATE TABLE IF NOT EXISTS estimates (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    attribute TEXT NOT NULL,
    method TEXT NOT NULL,
    node INTEGER NOT NULL,
    x REAL NOT NULL,
    y REAL NOT NULL,
    z REAL NOT NULL,
    value REAL,
    variance REAL,
    PRIMARY KEY (run_id, attribute, method, node)
);

CREATE INDEX IF NOT EXISTS idx_estimates_run ON estimates(run_id, attribute);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		s.logger.Info("Applying migration", zap.Int("version", m.Version), zap.String("description", m.Description))

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
