package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/willbeason/crosssell/pkg/errs"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	result := map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "files")),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "blobs.db")),
	}
	t.Cleanup(func() {
		for _, s := range result {
			_ = s.Close()
		}
	})
	return result
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			payloads := map[string][]byte{
				"data_transformation/preprocessing.cbor": bytes.Repeat([]byte("scaler"), 500),
				"empty":                                  {},
				"models/model.bin":                       {0, 1, 2, 3, 255},
			}

			for key, want := range payloads {
				if err := s.Save(ctx, key, want); err != nil {
					t.Fatalf("Save(%q) error = %v", key, err)
				}
			}

			for key, want := range payloads {
				got, err := s.Load(ctx, key)
				if err != nil {
					t.Fatalf("Load(%q) error = %v", key, err)
				}
				if !bytes.Equal(got, want) {
					t.Errorf("Load(%q) = %d bytes, want %d", key, len(got), len(want))
				}

				ok, err := s.Exists(ctx, key)
				if err != nil || !ok {
					t.Errorf("Exists(%q) = %v, %v, want true", key, ok, err)
				}
			}
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save(ctx, "k", []byte("first")); err != nil {
				t.Fatal(err)
			}
			if err := s.Save(ctx, "k", []byte("second")); err != nil {
				t.Fatal(err)
			}

			got, err := s.Load(ctx, "k")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "second" {
				t.Errorf("Load() = %q, want %q", got, "second")
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "missing/key")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Load() error = %v, want %v", err, ErrNotFound)
			}
			if !errors.Is(err, errs.ErrPersistence) {
				t.Errorf("Load() error = %v, want %v", err, errs.ErrPersistence)
			}

			ok, err := s.Exists(ctx, "missing/key")
			if err != nil || ok {
				t.Errorf("Exists() = %v, %v, want false, nil", ok, err)
			}
		})
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	keys := []string{"", "/abs", "../escape", "a/../b", "a//b", "trailing/"}

	for name, s := range stores(t) {
		for _, key := range keys {
			t.Run(name+"/"+key, func(t *testing.T) {
				err := s.Save(ctx, key, []byte("x"))
				if !errors.Is(err, errs.ErrPersistence) {
					t.Errorf("Save(%q) error = %v, want %v", key, err, errs.ErrPersistence)
				}
			})
		}
	}
}

func TestFileStore_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(dir)

	if err := s.Save(ctx, "blob", []byte("some content worth keeping")); err != nil {
		t.Fatal(err)
	}

	p := filepath.Join(dir, "blob")
	raw, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a bit inside the stored digest.
	raw[len(blobMagic)] ^= 0x01
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = s.Load(ctx, "blob")
	if !errors.Is(err, errs.ErrPersistence) {
		t.Errorf("Load() error = %v, want %v", err, errs.ErrPersistence)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, corruption reported as not found", err)
	}
}

func TestUnseal_BadHeader(t *testing.T) {
	for _, blob := range [][]byte{nil, []byte("xsb"), []byte("nope-this-is-not-a-blob-at-all-and-long-enough")} {
		if _, err := unseal(blob); !errors.Is(err, errCorrupt) {
			t.Errorf("unseal(%q) error = %v, want %v", blob, err, errCorrupt)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		location string
		want     string
		wantErr  bool
	}{
		{location: "sqlite://" + filepath.Join(dir, "x.db"), want: "sqlite"},
		{location: "file://" + dir, want: "file"},
		{location: dir, want: "file"},
		{location: "sqlite://", wantErr: true},
		{location: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			s, err := Open(tt.location)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrPersistence) {
					t.Errorf("Open() error = %v, want %v", err, errs.ErrPersistence)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			var got string
			switch s.(type) {
			case *SQLiteStore:
				got = "sqlite"
			case *FileStore:
				got = "file"
			}
			if got != tt.want {
				t.Errorf("Open(%q) = %T, want %s store", tt.location, s, tt.want)
			}
		})
	}
}

func TestSQLiteStore_RetriesAfterCanceledOpen(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "blobs.db"))
	defer s.Close()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(canceled, "k", []byte("v")); !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("Save(canceled) error = %v, want %v", err, errs.ErrPersistence)
	}

	ctx := context.Background()
	if err := s.Save(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Save() after canceled open error = %v", err)
	}
	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("Load() = %q, want %q", got, "v")
	}
}
