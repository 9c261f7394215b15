package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harrylevesque/listqr/internal/utils"

	_ "modernc.org/sqlite"
)

// Open opens sqlite at path with foreign keys, WAL and a busy timeout, and
// applies pending migrations first.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	if err := RunMigrations(path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := openRaw(path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openRaw(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	return db, nil
}

// withTx runs fn in a transaction.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// now returns UTC time truncated to what the schema stores.
func now() time.Time {
	return time.UnixMilli(time.Now().UnixMilli()).UTC()
}

func fromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
