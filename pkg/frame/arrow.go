package frame

import (
	"fmt"
	"math"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

type numericArray[T numeric] interface {
	Len() int
	IsNull(i int) bool
	Value(i int) T
}

func appendNumeric[T numeric](dst []float64, a numericArray[T]) []float64 {
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) {
			dst = append(dst, math.NaN())
			continue
		}
		dst = append(dst, float64(a.Value(i)))
	}
	return dst
}

// KindOf maps an Arrow type onto the Kind used to hold it.
func KindOf(t arrow.DataType) (Kind, error) {
	switch t.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64, arrow.BOOL:
		return Int, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return Float, nil
	case arrow.STRING, arrow.LARGE_STRING, arrow.DICTIONARY:
		return String, nil
	default:
		return 0, fmt.Errorf("unsupported arrow type %s", t)
	}
}

// FromRecords concatenates records sharing schema into a Table.
func FromRecords(schema *arrow.Schema, records []arrow.Record) (Table, error) {
	columns := make([]Column, schema.NumFields())
	for j, field := range schema.Fields() {
		kind, err := KindOf(field.Type)
		if err != nil {
			return Table{}, fmt.Errorf("column %q: %w", field.Name, err)
		}
		columns[j] = Column{Name: field.Name, Kind: kind}
	}

	for _, record := range records {
		for j := range columns {
			err := appendArray(&columns[j], record.Column(j))
			if err != nil {
				return Table{}, fmt.Errorf("column %q: %w", columns[j].Name, err)
			}
		}
	}

	// A table with no records still needs non-nil storage for Len.
	for j := range columns {
		if columns[j].Kind == String && columns[j].Strings == nil {
			columns[j].Strings = []string{}
		} else if columns[j].Kind != String && columns[j].Floats == nil {
			columns[j].Floats = []float64{}
		}
	}

	return NewTable(columns...)
}

func appendArray(c *Column, arr arrow.Array) error {
	switch a := arr.(type) {
	case *array.Int8:
		c.Floats = appendNumeric[int8](c.Floats, a)
	case *array.Int16:
		c.Floats = appendNumeric[int16](c.Floats, a)
	case *array.Int32:
		c.Floats = appendNumeric[int32](c.Floats, a)
	case *array.Int64:
		c.Floats = appendNumeric[int64](c.Floats, a)
	case *array.Uint8:
		c.Floats = appendNumeric[uint8](c.Floats, a)
	case *array.Uint16:
		c.Floats = appendNumeric[uint16](c.Floats, a)
	case *array.Uint32:
		c.Floats = appendNumeric[uint32](c.Floats, a)
	case *array.Uint64:
		c.Floats = appendNumeric[uint64](c.Floats, a)
	case *array.Float32:
		c.Floats = appendNumeric[float32](c.Floats, a)
	case *array.Float64:
		c.Floats = appendNumeric[float64](c.Floats, a)
	case *array.Boolean:
		for i := 0; i < a.Len(); i++ {
			switch {
			case a.IsNull(i):
				c.Floats = append(c.Floats, math.NaN())
			case a.Value(i):
				c.Floats = append(c.Floats, 1)
			default:
				c.Floats = append(c.Floats, 0)
			}
		}
	case *array.String:
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				c.Strings = append(c.Strings, "")
				continue
			}
			c.Strings = append(c.Strings, a.Value(i))
		}
	case *array.LargeString:
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				c.Strings = append(c.Strings, "")
				continue
			}
			c.Strings = append(c.Strings, a.Value(i))
		}
	case *array.Dictionary:
		dict, ok := a.Dictionary().(*array.String)
		if !ok {
			return fmt.Errorf("expected string dictionary, got %T", a.Dictionary())
		}
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				c.Strings = append(c.Strings, "")
				continue
			}
			c.Strings = append(c.Strings, dict.Value(a.GetValueIndex(i)))
		}
	default:
		return fmt.Errorf("unsupported array type %T", arr)
	}
	return nil
}

// ArrowSchema returns the Arrow schema ToRecord writes t with.
func ArrowSchema(t Table) *arrow.Schema {
	fields := make([]arrow.Field, t.Width())
	for j, c := range t.columns {
		var dt arrow.DataType
		switch c.Kind {
		case Int:
			dt = arrow.PrimitiveTypes.Int64
		case String:
			dt = arrow.BinaryTypes.String
		default:
			dt = arrow.PrimitiveTypes.Float64
		}
		fields[j] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// ToRecord converts t into a single Arrow record. The caller owns the record
// and must Release it.
func ToRecord(allocator memory.Allocator, t Table) arrow.Record {
	builder := array.NewRecordBuilder(allocator, ArrowSchema(t))
	defer builder.Release()

	for j, c := range t.columns {
		switch c.Kind {
		case Int:
			field := builder.Field(j).(*array.Int64Builder)
			for _, v := range c.Floats {
				if math.IsNaN(v) {
					field.AppendNull()
				} else {
					field.Append(int64(v))
				}
			}
		case String:
			field := builder.Field(j).(*array.StringBuilder)
			for _, v := range c.Strings {
				if v == "" {
					field.AppendNull()
				} else {
					field.Append(v)
				}
			}
		default:
			field := builder.Field(j).(*array.Float64Builder)
			for _, v := range c.Floats {
				if math.IsNaN(v) {
					field.AppendNull()
				} else {
					field.Append(v)
				}
			}
		}
	}

	return builder.NewRecord()
}
