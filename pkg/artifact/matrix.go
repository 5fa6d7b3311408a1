package artifact

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"gonum.org/v1/gonum/mat"

	"github.com/willbeason/crosssell/pkg/ingest"
)

// encodeMatrix writes m as a parquet file with one float64 column per field
// of schema.
func encodeMatrix(schema *arrow.Schema, m *mat.Dense) ([]byte, error) {
	rows, cols := m.Dims()
	if cols != schema.NumFields() {
		return nil, fmt.Errorf("matrix has %d columns, schema has %d", cols, schema.NumFields())
	}

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()

	for j := range cols {
		field := builder.Field(j).(*array.Float64Builder)
		field.Reserve(rows)
		for i := range rows {
			field.Append(m.At(i, j))
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer, err := pqarrow.NewFileWriter(schema, &buf, ingest.WriterProperties(), pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return nil, fmt.Errorf("creating writer: %w", err)
	}
	err = writer.Write(record)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("writing record: %w", err)
	}
	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("closing writer: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeMatrix reads a parquet file written by encodeMatrix.
func decodeMatrix(ctx context.Context, data []byte) (*mat.Dense, []string, error) {
	fileReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("opening parquet: %w", err)
	}
	defer func() {
		_ = fileReader.Close()
	}()

	t, err := ingest.ReadParquet(ctx, fileReader, memory.NewGoAllocator())
	if err != nil {
		return nil, nil, err
	}
	if t.Rows() == 0 || t.Width() == 0 {
		return nil, nil, fmt.Errorf("matrix is empty")
	}

	m := mat.NewDense(t.Rows(), t.Width(), nil)
	for j, c := range t.Columns() {
		if !c.Kind.Numeric() {
			return nil, nil, fmt.Errorf("column %q is %v", c.Name, c.Kind)
		}
		m.SetCol(j, c.Floats)
	}
	return m, t.Names(), nil
}
