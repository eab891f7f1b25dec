package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/artpar/requst/internal/storage"
)

// SchemaVersion is the schema version written by this build.
const SchemaVersion = 5

var tables = map[storage.Name]string{
	storage.History:       "history",
	storage.Collections:   "collections",
	storage.GlobalHeaders: "global_headers",
	storage.UISettings:    "ui_settings",
	storage.Cookies:       "cookies",
}

func tableDDL(name storage.Name) string {
	table := tables[name]
	if name.AutoIncrement() {
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				seq INTEGER NOT NULL,
				data TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_%s_seq ON %s(seq);
		`, table, table, table)
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			data TEXT NOT NULL
		);
	`, table)
}

// migrate creates every missing store. Existing stores and their rows are
// never altered, so upgrades are additive only.
func (s *Store) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	var created []string
	for _, name := range storage.Stores {
		exists, err := tableExists(ctx, tx, tables[name])
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := tx.ExecContext(ctx, tableDDL(name)); err != nil {
			return fmt.Errorf("failed to create store %s: %w", name, err)
		}
		created = append(created, string(name))
	}

	version := current
	if version < SchemaVersion {
		version = SchemaVersion
		// PRAGMA does not take bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return fmt.Errorf("failed to write schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	s.version = version
	if len(created) > 0 || current != version {
		s.logger.Info("storage schema upgraded", "from", current, "to", version, "created", created)
	}
	if current > SchemaVersion {
		s.logger.Warn("database written by a newer schema", "version", current, "supported", SchemaVersion)
	}
	return nil
}

func tableExists(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return n > 0, nil
}
