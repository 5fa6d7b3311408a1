package ingest

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/willbeason/crosssell/pkg/frame"
)

func (r *Reader) readParquet(ctx context.Context, path string) (frame.Table, error) {
	fileReader, err := file.OpenParquetFile(path, true)
	if err != nil {
		return frame.Table{}, fmt.Errorf("opening parquet file: %w", err)
	}
	defer func() {
		_ = fileReader.Close()
	}()

	return ReadParquet(ctx, fileReader, r.allocator())
}

// ReadParquet reads every row group of an open parquet file into a table.
func ReadParquet(ctx context.Context, fileReader *file.Reader, allocator memory.Allocator) (frame.Table, error) {
	reader, err := pqarrow.NewFileReader(fileReader,
		pqarrow.ArrowReadProperties{Parallel: true, BatchSize: batchSize},
		allocator,
	)
	if err != nil {
		return frame.Table{}, fmt.Errorf("creating pqarrow FileReader: %w", err)
	}

	schema, err := reader.Schema()
	if err != nil {
		return frame.Table{}, fmt.Errorf("getting schema: %w", err)
	}

	recordReader, err := reader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return frame.Table{}, fmt.Errorf("getting record reader: %w", err)
	}
	defer recordReader.Release()

	var records []arrow.Record
	defer func() {
		for _, record := range records {
			record.Release()
		}
	}()

	var record arrow.Record
	for record, err = recordReader.Read(); err == nil; record, err = recordReader.Read() {
		record.Retain()
		records = append(records, record)
	}
	if !errors.Is(err, io.EOF) {
		return frame.Table{}, fmt.Errorf("reading records: %w", err)
	}

	return frame.FromRecords(schema, records)
}

// WriterProperties is the compression used for every parquet file written.
func WriterProperties() *parquet.WriterProperties {
	return parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Gzip),
		parquet.WithCompressionLevel(gzip.BestCompression),
	)
}

// WriteParquet writes t as a single row group.
func WriteParquet(path string, t frame.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}

	// The writer closes f.
	return writeParquet(f, t)
}

func writeParquet(w io.Writer, t frame.Table) error {
	record := frame.ToRecord(memory.NewGoAllocator(), t)
	defer record.Release()

	writer, err := pqarrow.NewFileWriter(record.Schema(), w, WriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}

	err = writer.Write(record)
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	return writer.Close()
}
