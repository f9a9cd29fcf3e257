package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"go.uber.org/zap"
)

// ErrOpen marks failures to open or lock the database file
var ErrOpen = errors.New("DuckDB 열기 실패")

// DuckDB wraps sql.DB for DuckDB
type DuckDB struct {
	*sql.DB
	path   string
	logger *zap.Logger
}

// OpenDuckDB opens or creates a DuckDB database file.
// The pool is capped at one connection for the lifetime of the process.
func OpenDuckDB(path string) (*DuckDB, error) {
	// 디렉토리 생성
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: 디렉토리 생성 실패: %w", ErrOpen, err)
	}
	return open(path, path)
}

// OpenInMemory opens an empty in-memory database.
// label is reported by Path so output still names the intended file.
func OpenInMemory(label string) (*DuckDB, error) {
	return open("", label)
}

func open(dsn, path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	db.SetMaxOpenConns(1)

	// 연결 테스트 (다른 프로세스가 잠근 경우 여기서 실패)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}

	return &DuckDB{DB: db, path: path, logger: zap.NewNop()}, nil
}

// SetLogger sets the diagnostic logger used for statement tracing
func (d *DuckDB) SetLogger(logger *zap.Logger) *DuckDB {
	if logger == nil {
		logger = zap.NewNop()
	}
	d.logger = logger
	return d
}

// ExecContext executes a statement and traces it at debug level
func (d *DuckDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := d.DB.ExecContext(ctx, query, args...)
	d.logger.Debug("exec",
		zap.String("sql", query),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return result, err
}

// QueryContext runs a query and traces it at debug level
func (d *DuckDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	d.logger.Debug("query", zap.String("sql", query))
	return d.DB.QueryContext(ctx, query, args...)
}

// Path returns the database file path
func (d *DuckDB) Path() string {
	return d.path
}

// IsDuckDB checks if path is a DuckDB file
func IsDuckDB(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// 헤더: 8바이트 체크섬 뒤에 매직 "DUCK"
	header := make([]byte, 12)
	if _, err := f.Read(header); err != nil {
		return false
	}
	return string(header[8:12]) == "DUCK"
}
