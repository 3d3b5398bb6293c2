package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// migration is one linear, numbered schema step. Migrations never change
// once released; a fix ships as a new migration.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "001_create_api_keys",
		sql: `
CREATE TABLE IF NOT EXISTS api_keys (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    key_hash      TEXT NOT NULL UNIQUE,
    key_prefix    TEXT NOT NULL,
    name          TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_used_at  TIMESTAMP,
    is_active     BOOLEAN NOT NULL DEFAULT 1,
    usage_count   INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		name: "002_create_provider_settings",
		sql: `
CREATE TABLE IF NOT EXISTS provider_settings (
    provider_key TEXT PRIMARY KEY,
    is_enabled   BOOLEAN NOT NULL DEFAULT 1,
    priority     INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		// Adds the id/created_at/updated_at columns 002 omitted. id records
		// insertion order, which is what registry.Registry breaks priority
		// ties on; a plain ALTER TABLE ADD COLUMN can't retrofit an
		// AUTOINCREMENT primary key, so the table is rebuilt, preserving
		// existing rows' relative order via the implicit rowid.
		name: "003_add_provider_settings_id_and_timestamps",
		sql: `
CREATE TABLE provider_settings_new (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    provider_key TEXT NOT NULL UNIQUE,
    is_enabled   BOOLEAN NOT NULL DEFAULT 1,
    priority     INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
INSERT INTO provider_settings_new (provider_key, is_enabled, priority)
    SELECT provider_key, is_enabled, priority FROM provider_settings ORDER BY rowid;
DROP TABLE provider_settings;
ALTER TABLE provider_settings_new RENAME TO provider_settings;
`,
	},
}

// migrate applies every migration not already recorded in _migrations, in
// order, each inside its own transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS _migrations (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		return fmt.Errorf("sqlite: creating _migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := isApplied(db, m.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("sqlite: beginning migration %s: %w", m.name, err)
		}

		for _, stmt := range splitStatements(m.sql) {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("sqlite: applying migration %s: %w", m.name, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO _migrations (name) VALUES (?)`, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: recording migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlite: committing migration %s: %w", m.name, err)
		}
	}

	return nil
}

// splitStatements breaks a migration's SQL into individual statements, since
// the sqlite driver executes one statement per Exec call.
func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func isApplied(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM _migrations WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking migration %s: %w", name, err)
	}
	return count > 0, nil
}
