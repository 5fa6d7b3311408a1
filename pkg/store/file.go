package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/willbeason/crosssell/pkg/errs"
)

// FileStore keeps each blob in its own file below a root directory.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Save writes the blob to a temporary file and renames it into place, so a
// concurrent Load sees either the old or the new blob.
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(p), 0o755)
	if err != nil {
		return fmt.Errorf("%w: creating directory for %q: %w", errs.ErrPersistence, key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temporary file for %q: %w", errs.ErrPersistence, key, err)
	}
	defer func() {
		// No-op once the rename has succeeded.
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(seal(data))
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: writing %q: %w", errs.ErrPersistence, key, err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("%w: closing %q: %w", errs.ErrPersistence, key, err)
	}

	err = os.Rename(tmp.Name(), p)
	if err != nil {
		return fmt.Errorf("%w: renaming into %q: %w", errs.ErrPersistence, key, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(key)
	} else if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %w", errs.ErrPersistence, key, err)
	}

	data, err := unseal(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errs.ErrPersistence, key, err)
	}
	return data, nil
}

func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("%w: stat %q: %w", errs.ErrPersistence, key, err)
	}
	return true, nil
}

func (s *FileStore) Close() error {
	return nil
}
