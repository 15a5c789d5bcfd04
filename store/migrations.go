package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration is one schema change, applied at most once inside its own transaction.
type Migration struct {
	ID  string
	SQL string
}

var migrations = []Migration{
	{
		ID: "0001_projects_prompts",
		SQL: `
CREATE TABLE projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL CHECK (length(trim(name)) > 0),
	created_at TEXT NOT NULL
);
CREATE INDEX idx_projects_user ON projects(user_id);

CREATE TABLE prompts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL CHECK (length(trim(content)) > 0),
	is_default INTEGER NOT NULL DEFAULT 0 CHECK (is_default IN (0, 1)),
	created_at TEXT NOT NULL
);
CREATE INDEX idx_prompts_user ON prompts(user_id);`,
	},
	{
		ID: "0002_specifications",
		SQL: `
CREATE TABLE specifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX idx_specifications_user ON specifications(user_id);

CREATE TABLE sections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	specification_id INTEGER NOT NULL REFERENCES specifications(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	position INTEGER NOT NULL CHECK (position >= 0),
	UNIQUE (specification_id, position)
);

CREATE TABLE items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
	content TEXT NOT NULL CHECK (length(trim(content)) > 0),
	time_estimate INTEGER CHECK (time_estimate IS NULL OR time_estimate >= 0),
	position INTEGER NOT NULL CHECK (position >= 0),
	UNIQUE (section_id, position)
);`,
	},
	{
		ID: "0003_attachments",
		SQL: `
CREATE TABLE attachments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	file_name TEXT NOT NULL,
	locator TEXT NOT NULL UNIQUE,
	media_type TEXT NOT NULL,
	size_bytes INTEGER NOT NULL CHECK (size_bytes >= 0),
	created_at TEXT NOT NULL
);
CREATE INDEX idx_attachments_item ON attachments(item_id);`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		if err := s.runMigration(ctx, m); err != nil {
			return err
		}
		s.logger.Info("applied migration", zap.String("migration", m.ID))
	}
	return nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}
	return applied, nil
}

func (s *Store) runMigration(ctx context.Context, m Migration) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.ID, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (id) VALUES (?)`, m.ID); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
