package db

import (
	"context"
	"database/sql"
)

// Database is the connection handed to every load step
type Database interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	Close() error
	Path() string
}

var _ Database = (*DuckDB)(nil)
