package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agriai/agrisync/internal/client/migrations"
	"github.com/agriai/agrisync/internal/filex"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver registered as "sqlite"
)

func prepareGoose() error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// RunMigrations applies all embedded migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// ResetDatabase rolls every migration back and re-applies them, leaving an
// empty schema. It is the only path that discards the local store wholesale.
func ResetDatabase(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.DownToContext(ctx, db, ".", 0); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the process-wide SQLite handle at dsn and migrates it.
// The handle is limited to one connection: the store is single-writer and
// every statement is serialized through it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn != ":memory:" {
		if err := filex.EnsureParentDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
