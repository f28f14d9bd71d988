package db

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/rotisserie/eris"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// EnsureBootstrapped creates the schema on first run. Subsequent runs
// are no-ops keyed off the meta table's version row.
func EnsureBootstrapped(ctx context.Context, db *sql.DB) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'docchat_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return eris.Wrap(err, "meta table check failed")
	}

	if !exists {
		return runBootstrap(ctxBoot, db)
	}

	var hasVersion bool
	if err := db.QueryRowContext(ctxBoot, `SELECT EXISTS (SELECT 1 FROM docchat_meta WHERE version = 1)`).Scan(&hasVersion); err != nil {
		return eris.Wrap(err, "meta version check failed")
	}
	if !hasVersion {
		return runBootstrap(ctxBoot, db)
	}

	return nil
}

func runBootstrap(ctx context.Context, db *sql.DB) error {
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return eris.Wrap(err, "read initdb.sql")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin tx")
	}
	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		_ = tx.Rollback()
		return eris.Wrap(err, "exec bootstrap")
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "commit bootstrap")
	}
	return nil
}
