package ingest

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/jsonl"
	"github.com/willbeason/crosssell/pkg/tables"
)

func (r *Reader) readCSV(path string) (frame.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return frame.Table{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewInferringReader(f,
		csv.WithHeader(true),
		csv.WithNullReader(true, jsonl.NullString, ""),
		csv.WithColumnTypes(tables.ColumnTypes(tables.Insurance)),
		csv.WithChunk(batchSize),
		csv.WithAllocator(r.allocator()),
	)
	defer reader.Release()

	var records []arrow.Record
	defer func() {
		for _, record := range records {
			record.Release()
		}
	}()

	var schema *arrow.Schema
	for reader.Next() {
		record := reader.Record()
		record.Retain()
		records = append(records, record)
		schema = record.Schema()
	}
	if err := reader.Err(); err != nil {
		return frame.Table{}, fmt.Errorf("parsing csv: %w", err)
	}

	if schema == nil {
		// Header only.
		return frame.NewTable()
	}
	return frame.FromRecords(schema, records)
}

// WriteCSV writes t with a header row. Nulls are written as empty fields.
func WriteCSV(path string, t frame.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}

	record := frame.ToRecord(memory.NewGoAllocator(), t)
	defer record.Release()

	writer := csv.NewWriter(f, record.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	err = writer.Write(record)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("writing csv: %w", err)
	}
	if err := writer.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flushing csv: %w", err)
	}

	return f.Close()
}
