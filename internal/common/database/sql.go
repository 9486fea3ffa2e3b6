package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"botforge/internal/common/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var numberedPlaceholder = regexp.MustCompile(`\$\d+`)

// SQLClient wraps a database/sql handle and hides placeholder differences between drivers.
// Queries are written with postgres-style $n placeholders, each used once and in order.
type SQLClient struct {
	DB     *sql.DB
	Driver string
}

// Open returns a client for the configured driver.
func Open(cfg config.DatabaseConfig) (*SQLClient, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgres(cfg.Postgres)
	case DriverSQLite:
		return NewSQLite(cfg.SQLite)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*SQLClient, error) {
	db, err := sql.Open(DriverPostgres, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLClient{DB: db, Driver: DriverPostgres}, nil
}

// NewSQLite opens a file-backed database, or a private in-memory one for ":memory:".
func NewSQLite(cfg config.SQLiteConfig) (*SQLClient, error) {
	dsn := cfg.Path
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own empty database.
	db.SetMaxOpenConns(1)

	return &SQLClient{DB: db, Driver: DriverSQLite}, nil
}

// NewSQLClient wraps an existing handle, typically a sqlmock.
func NewSQLClient(db *sql.DB, driver string) *SQLClient {
	return &SQLClient{DB: db, Driver: driver}
}

// Rebind rewrites $n placeholders into the driver's native form.
func (c *SQLClient) Rebind(query string) string {
	if c.Driver != DriverSQLite {
		return query
	}
	return numberedPlaceholder.ReplaceAllString(query, "?")
}

func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *SQLClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *SQLClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, c.Rebind(query), args...)
}

func (c *SQLClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, c.Rebind(query), args...)
}

func (c *SQLClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DB.ExecContext(ctx, c.Rebind(query), args...)
}

// WithTx runs fn inside a transaction and rolls back on error.
func (c *SQLClient) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
