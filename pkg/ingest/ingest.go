// Package ingest reads raw cross-sell tables from the feature store and writes
// them back out. CSV, Parquet, and JSONL exports are supported; the format is
// chosen by file extension.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/tables"
)

const batchSize = 1 << 16

// Reader reads tables from local files.
type Reader struct {
	Allocator memory.Allocator
	Logger    *slog.Logger
}

// NewReader returns a Reader using the Go allocator. A nil logger uses
// slog.Default().
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{Allocator: memory.NewGoAllocator(), Logger: logger}
}

// ReadTable reads path with a default Reader.
func ReadTable(ctx context.Context, path string) (frame.Table, error) {
	return NewReader(nil).ReadTable(ctx, path)
}

// ReadTable reads the table stored at path. Directories are read as a set of
// JSONL shards. A missing or unreadable file is a data error.
func (r *Reader) ReadTable(ctx context.Context, path string) (frame.Table, error) {
	stat, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return frame.Table{}, fmt.Errorf("%w: table %q does not exist", errs.ErrData, path)
	} else if err != nil {
		return frame.Table{}, fmt.Errorf("%w: stat %q: %w", errs.ErrData, path, err)
	}

	var t frame.Table
	switch {
	case stat.IsDir() || isJSONL(path):
		t, err = r.readJSONL(ctx, path, stat.IsDir())
	case strings.HasSuffix(path, tables.CSVExt):
		t, err = r.readCSV(path)
	case strings.HasSuffix(path, tables.ParquetExt):
		t, err = r.readParquet(ctx, path)
	default:
		return frame.Table{}, fmt.Errorf("%w: unsupported table format %q", errs.ErrConfig, filepath.Ext(path))
	}
	if err != nil {
		return frame.Table{}, fmt.Errorf("%w: reading %q: %w", errs.ErrData, path, err)
	}

	r.logger().Debug("read table", "path", path, "rows", t.Rows(), "columns", t.Width())
	return t, nil
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Reader) allocator() memory.Allocator {
	if r.Allocator == nil {
		return memory.DefaultAllocator
	}
	return r.Allocator
}

func isJSONL(path string) bool {
	return strings.HasSuffix(path, tables.JSONLExt) || strings.HasSuffix(path, tables.JSONLExt+tables.GzipExt)
}

// WriteTable writes t to path as CSV or Parquet depending on its extension.
func WriteTable(path string, t frame.Table) error {
	var err error
	switch {
	case strings.HasSuffix(path, tables.CSVExt):
		err = WriteCSV(path, t)
	case strings.HasSuffix(path, tables.ParquetExt):
		err = WriteParquet(path, t)
	default:
		return fmt.Errorf("%w: unsupported table format %q", errs.ErrConfig, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%w: writing %q: %w", errs.ErrPersistence, path, err)
	}
	return nil
}
