// Package store provides the SQLite-backed durable stores: the tenant
// directory, the per-tenant user ledger, and the canned-text store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relayforge/topicrelay/pkg/texts"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
    id         INTEGER PRIMARY KEY,
    owner_id   INTEGER NOT NULL,
    group_id   INTEGER NOT NULL DEFAULT 0,
    token      TEXT    NOT NULL,
    username   TEXT    NOT NULL DEFAULT '',
    is_active  INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    tenant_id      INTEGER NOT NULL,
    id             INTEGER NOT NULL,
    username       TEXT    NOT NULL DEFAULT '',
    full_name      TEXT    NOT NULL DEFAULT '',
    language_code  TEXT    NOT NULL DEFAULT '',
    state          TEXT    NOT NULL DEFAULT 'member',
    is_banned      INTEGER NOT NULL DEFAULT 0,
    is_silenced    INTEGER NOT NULL DEFAULT 0,
    silence_msg_id INTEGER NOT NULL DEFAULT 0,
    thread_id      INTEGER NOT NULL DEFAULT 0,
    created_at     INTEGER NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS users_thread_idx ON users (tenant_id, thread_id);

CREATE TABLE IF NOT EXISTS texts (
    code        TEXT PRIMARY KEY,
    en          TEXT NOT NULL,
    ru          TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);
`

// Store owns the SQLite handle shared by the individual stores.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the SQLite database at path, creates the schema and seeds
// the canned-text table with the builtin defaults.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{sqlDB: sqlDB}
	if err := s.seedTexts(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("seed texts: %w", err)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Tenants returns the tenant directory.
func (s *Store) Tenants() *TenantDirectory {
	return &TenantDirectory{sqlDB: s.sqlDB}
}

// Users returns the user ledger.
func (s *Store) Users() *UserLedger {
	return &UserLedger{sqlDB: s.sqlDB}
}

// Texts returns the canned-text store.
func (s *Store) Texts() *TextStore {
	return &TextStore{sqlDB: s.sqlDB}
}

func (s *Store) seedTexts(ctx context.Context) error {
	now := toMillis(time.Now())
	for _, code := range texts.Codes() {
		entry, _ := texts.Builtin(code)
		_, err := s.sqlDB.ExecContext(
			ctx,
			`INSERT INTO texts (code, en, ru, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (code) DO NOTHING`,
			string(code), entry.EN, entry.RU, now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
