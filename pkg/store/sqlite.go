package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/willbeason/crosssell/pkg/errs"
)

const createBlobs = `CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	blob       BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps blobs in a single SQLite database. The connection is
// opened on first successful use and kept until Close.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// conn opens the database if it is not open yet. A failed open is not
// remembered, so the next call tries again.
func (s *SQLiteStore) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", errs.ErrPersistence, s.path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, createBlobs)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: creating blobs table in %q: %w", errs.ErrPersistence, s.path, err)
	}
	s.db = db
	return db, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO blobs (key, blob, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		key, seal(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: saving %q: %w", errs.ErrPersistence, key, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var blob []byte
	err = db.QueryRowContext(ctx, `SELECT blob FROM blobs WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	} else if err != nil {
		return nil, fmt.Errorf("%w: loading %q: %w", errs.ErrPersistence, key, err)
	}

	data, err := unseal(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errs.ErrPersistence, key, err)
	}
	return data, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: checking %q: %w", errs.ErrPersistence, key, err)
	}
	return n > 0, nil
}

// Close releases the connection if one was opened.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
