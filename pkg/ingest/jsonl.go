package ingest

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/willbeason/bondsmith"
	"github.com/willbeason/bondsmith/fileio"
	"github.com/willbeason/bondsmith/jsonio"

	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/jsonl"
	"github.com/willbeason/crosssell/pkg/tables"
)

// MongoIdField is the document key added by the document store export. It is
// never part of the table.
const MongoIdField = "_id"

// checkEvery is how many documents are read between context checks.
const checkEvery = 1 << 12

// Shards lists the JSONL files making up path: path itself, or the
// .jsonl/.jsonl.gz files directly inside it sorted by name. Shards must be
// either all compressed or all uncompressed.
func Shards(path string, isDir bool) ([]string, bool, error) {
	if !isDir {
		return []string{path}, strings.HasSuffix(path, tables.GzipExt), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, false, err
	}

	var paths []string
	gzipped := 0
	for _, entry := range entries {
		if entry.IsDir() || !isJSONL(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(path, entry.Name()))
		if strings.HasSuffix(entry.Name(), tables.GzipExt) {
			gzipped++
		}
	}
	slices.Sort(paths)

	if len(paths) == 0 {
		return nil, false, fmt.Errorf("no %s files in %q", tables.JSONLExt, path)
	}
	if gzipped != 0 && gzipped != len(paths) {
		return nil, false, fmt.Errorf("%q mixes compressed and uncompressed shards", path)
	}
	return paths, gzipped != 0, nil
}

func (r *Reader) readJSONL(ctx context.Context, path string, isDir bool) (frame.Table, error) {
	paths, gzipped, err := Shards(path, isDir)
	if err != nil {
		return frame.Table{}, err
	}

	multiReader := fileio.NewMultiFileReader(paths)
	if closer, ok := any(multiReader).(io.Closer); ok {
		defer func() {
			_ = closer.Close()
		}()
	}

	countReader := bondsmith.NewCountReader(multiReader)
	var reader io.Reader = countReader
	if gzipped {
		// gzip correctly handles concatenated files.
		reader, err = gzip.NewReader(countReader)
		if err != nil {
			return frame.Table{}, fmt.Errorf("creating gzip reader: %w", err)
		}
	}

	documents := jsonio.NewReader(reader, func() *map[string]any {
		v := make(map[string]any)
		return &v
	})

	builder := jsonl.NewBuilder(tables.FieldNames(tables.Insurance), MongoIdField)
	for document, err := range documents.Read() {
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return frame.Table{}, fmt.Errorf("decoding document %d: %w", builder.Rows(), err)
		}

		err = builder.Add(*document)
		if err != nil {
			return frame.Table{}, err
		}

		if builder.Rows()%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return frame.Table{}, err
			}
		}
	}

	r.logger().Debug("read jsonl shards", "shards", len(paths), "bytes", int(countReader.Count()))
	return builder.Table()
}
