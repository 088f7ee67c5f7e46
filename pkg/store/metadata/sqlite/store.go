// Package sqlite provides a SQLite-backed metadata store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// SQLiteMetadataStoreConfig contains configuration for the SQLite store.
type SQLiteMetadataStoreConfig struct {
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path string `mapstructure:"path"`

	// BusyTimeoutMS is how long a writer waits on a locked database (default: 5000)
	BusyTimeoutMS int `mapstructure:"busy_timeout_ms"`
}

// SQLiteMetadataStore persists records in a single SQLite table.
//
// Identifiers are stored as BLOBs, so non-UTF-8 identifiers round-trip
// unchanged.
type SQLiteMetadataStore struct {
	db *sql.DB
}

// Open opens (or creates) the database and applies the schema.
func Open(ctx context.Context, cfg SQLiteMetadataStoreConfig) (*SQLiteMetadataStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	busy := cfg.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}

	var dsn string
	if path == ":memory:" {
		dsn = fmt.Sprintf(":memory:?_pragma=busy_timeout(%d)", busy)
	} else {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
			filepath.Clean(path), busy)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// Writes are serialized by SQLite anyway; a single connection also keeps
	// ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteMetadataStore{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteMetadataStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id     BLOB PRIMARY KEY,
			author TEXT NOT NULL,
			access INTEGER NOT NULL CHECK (access BETWEEN 0 AND 2)
		)`)
	return err
}

func (s *SQLiteMetadataStore) Exists(ctx context.Context, id metadata.Identifier) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?`, id.Bytes()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("exists", err)
	}
	return true, nil
}

func (s *SQLiteMetadataStore) Get(ctx context.Context, id metadata.Identifier) (access.Record, error) {
	if err := ctx.Err(); err != nil {
		return access.Record{}, err
	}

	var (
		author string
		level  int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT author, access FROM records WHERE id = ?`, id.Bytes()).Scan(&author, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return access.DefaultRecord(), nil
	}
	if err != nil {
		return access.Record{}, wrapErr("get", err)
	}

	lvl := access.Level(level)
	if level < 0 || !lvl.Valid() {
		return access.Record{}, fmt.Errorf("%w: access level %d", metadata.ErrCorruptRecord, level)
	}

	return access.Record{Author: access.Identity(author), Access: lvl}, nil
}

func (s *SQLiteMetadataStore) Insert(ctx context.Context, id metadata.Identifier, rec access.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, author, access) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET author = excluded.author, access = excluded.access`,
		id.Bytes(), string(rec.Author), int64(rec.Access))
	return wrapErr("insert", err)
}

func (s *SQLiteMetadataStore) Remove(ctx context.Context, id metadata.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id.Bytes())
	if err != nil {
		return wrapErr("remove", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("remove", err)
	}
	if n == 0 {
		return metadata.ErrRecordNotFound
	}
	return nil
}

// Healthcheck pings the database.
func (s *SQLiteMetadataStore) Healthcheck(ctx context.Context) error {
	return wrapErr("healthcheck", s.db.PingContext(ctx))
}

// Close closes the SQLite handle.
func (s *SQLiteMetadataStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("sqlite %s: %w", op, metadata.ErrStoreClosed)
	}
	return fmt.Errorf("sqlite %s: %w", op, err)
}
