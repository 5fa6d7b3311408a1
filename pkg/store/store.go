// Package store persists named blobs for the feature pipeline and the model
// registry. Keys are slash-separated names such as
// "data_transformation/preprocessing.cbor".
//
// Every blob is written zstd-compressed together with the BLAKE3 digest of its
// uncompressed bytes, and the digest is checked on every load.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/willbeason/crosssell/pkg/errs"
)

// ErrNotFound marks a load of a key that was never saved. It is always
// reported together with errs.ErrPersistence.
var ErrNotFound = errors.New("key not found")

// Store is a key to blob mapping. Implementations are safe for concurrent
// use.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// Open returns the Store described by location:
//
//	sqlite://PATH   a single SQLite database file
//	file://DIR      a directory tree
//	DIR             same as file://DIR
func Open(location string) (Store, error) {
	if p, ok := strings.CutPrefix(location, "sqlite://"); ok {
		if p == "" {
			return nil, fmt.Errorf("%w: empty sqlite path", errs.ErrPersistence)
		}
		return NewSQLiteStore(p), nil
	}

	dir := strings.TrimPrefix(location, "file://")
	if dir == "" {
		return nil, fmt.Errorf("%w: empty store location", errs.ErrPersistence)
	}
	return NewFileStore(dir), nil
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("%w: invalid key %q", errs.ErrPersistence, key)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %w: %q", errs.ErrPersistence, ErrNotFound, key)
}
