package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite keeps entries in a cache_entries table so they survive restarts.
// Rows past expires_at are invisible to reads and deleted on the next write.
type SQLite[V any] struct {
	conn *sql.DB
	now  func() time.Time
}

func NewSQLite[V any](ctx context.Context, dbPath string) (*SQLite[V], error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite cache: database path is required")
	}

	slog.Info("Initializing SQLite cache", "path", dbPath)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &SQLite[V]{conn: conn, now: time.Now}, nil
}

func runMigrations(conn *sql.DB) error {
	slog.Debug("Running cache migrations")

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (c *SQLite[V]) Has(ctx context.Context, key string) (bool, error) {
	query := `SELECT COUNT(*) FROM cache_entries WHERE key = ? AND expires_at > ?`

	var count int
	if err := c.conn.QueryRowContext(ctx, query, key, c.now().UnixNano()).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check cache entry: %w", err)
	}
	return count > 0, nil
}

func (c *SQLite[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	query := `SELECT value FROM cache_entries WHERE key = ? AND expires_at > ?`

	var data []byte
	err := c.conn.QueryRowContext(ctx, query, key, c.now().UnixNano()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to query cache entry: %w", err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return value, true, nil
}

func (c *SQLite[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	now := c.now()
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`
	if _, err := c.conn.ExecContext(ctx, query, key, data, now.Add(ttl).UnixNano()); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	result, err := c.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to prune expired entries: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		slog.Debug("SQLite cache pruned expired entries", "count", rows)
	}

	return nil
}

func (c *SQLite[V]) Clear(ctx context.Context) error {
	if _, err := c.conn.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (c *SQLite[V]) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
