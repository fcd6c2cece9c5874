// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLiteBackend persists records in a single key-value table.
// A non-zero quota caps the summed size of keys and values.
type SQLiteBackend struct {
	db       *sql.DB
	maxBytes int64
}

var _ Backend = (*SQLiteBackend)(nil)

func NewSQLite(dbPath string, maxBytes int64) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer keeps the quota check and the write in the same view of the table.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteBackend{
		db:       db,
		maxBytes: maxBytes,
	}, nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s.maxBytes > 0 {
		var used int64
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(length(key) + length(value)), 0) FROM kv WHERE key <> ?", key,
		).Scan(&used)
		if err != nil {
			return err
		}
		if used+int64(len(key)+len(value)) > s.maxBytes {
			return ErrQuotaExceeded
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		if isSQLiteFull(err) {
			return ErrQuotaExceeded
		}
		return err
	}

	return tx.Commit()
}

func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

func (s *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key", len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// isSQLiteFull detects SQLITE_FULL ("database or disk is full").
func isSQLiteFull(err error) bool {
	return strings.Contains(err.Error(), "database or disk is full")
}
