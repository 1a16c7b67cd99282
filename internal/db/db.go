package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// IQueryExecer is the query surface shared by the database and an open
// transaction, so DAO code can run inside or outside a transaction.
type IQueryExecer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// IDatabase is the handle DAOs are built on.
type IDatabase interface {
	IQueryExecer
	OnTransaction(ctx context.Context, fn func(ctx context.Context, tx IQueryExecer) error) error
	Close() error
}

type database struct {
	*sql.DB
}

// Open opens (creating if needed) the sqlite catalog at path.
func Open(path string) (IDatabase, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The sqlite driver serializes writers; a single connection avoids
	// table-lock errors and keeps :memory: databases coherent.
	raw.SetMaxOpenConns(1)
	if err := raw.Ping(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &database{DB: raw}, nil
}

func (d *database) OnTransaction(ctx context.Context, fn func(ctx context.Context, tx IQueryExecer) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

var defaultDB IDatabase

// SetDefault assigns the global database instance.
func SetDefault(db IDatabase) {
	defaultDB = db
}

// Default returns the configured global database instance.
func Default() IDatabase {
	return defaultDB
}

// DatabaseGetter returns a database handle. Used to defer retrieval until first use.
type DatabaseGetter func() IDatabase

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
