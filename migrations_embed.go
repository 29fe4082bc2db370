package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"stoplist-telegram/db"
	"stoplist-telegram/logging"
)

// The state_documents schema ships inside the binary, so `migrate` works from
// any directory. Only the postgres backend uses it.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationNames lists the embedded files in apply order.
func migrationNames() ([]string, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// applyMigrations runs every embedded file against db.Pool, each in its own
// transaction. The files are idempotent, so reapplying them is safe.
func applyMigrations(ctx context.Context, log logging.Logger) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
		log.Info(ctx, "migration applied", "file", name)
	}
	return nil
}
