package jsonl

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/willbeason/crosssell/pkg/frame"
)

// MaxEnum is the largest number of unique values to track before not trying to
// interpret the field as an enum.
const MaxEnum = 20

// Field accumulates the JSON values seen under one key: number, boolean,
// string, or null. A field may be null in some documents but may not mix
// non-null types.
type Field interface {
	Add(obj any) (Field, error)
	// Kind is the column kind able to hold every value seen so far.
	Kind() frame.Kind
	String() string
}

// EmptyField has only seen nulls. Adding a non-null value returns the
// matching typed field.
type EmptyField struct {
	Nulls int
}

func (nf *EmptyField) Add(obj any) (Field, error) {
	var f Field
	switch o := obj.(type) {
	case nil:
		nf.Nulls++
		return nf, nil
	case bool:
		f = &BoolField{Nulls: nf.Nulls}
	case float64:
		f = &NumberField{Nulls: nf.Nulls, Seen: make(map[float64]int)}
	case string:
		f = &StringField{Nulls: nf.Nulls, Seen: make(map[string]int)}
	default:
		return nil, fmt.Errorf("unsupported type %T", o)
	}
	return f.Add(obj)
}

// Kind is Float so that an all-null column becomes a column of NaN.
func (nf *EmptyField) Kind() frame.Kind {
	return frame.Float
}

func (nf *EmptyField) String() string {
	return fmt.Sprintf("empty;null:%d", nf.Nulls)
}

// BoolField has only seen JSON booleans. Booleans become 0/1 integers.
type BoolField struct {
	True  int
	False int
	Nulls int
}

func (f *BoolField) Add(obj any) (Field, error) {
	switch o := obj.(type) {
	case nil:
		f.Nulls++
	case bool:
		if o {
			f.True++
		} else {
			f.False++
		}
	default:
		return nil, fmt.Errorf("%T added to boolean field", o)
	}
	return f, nil
}

func (f *BoolField) Kind() frame.Kind {
	return frame.Int
}

func (f *BoolField) String() string {
	return fmt.Sprintf("bool;true:%d;false:%d;null:%d", f.True, f.False, f.Nulls)
}

// A NumberField has only seen JSON numbers.
type NumberField struct {
	// Integral tracks if all instances of this field are integers.
	Integral bool

	Min, Max float64
	Nulls    int

	// Seen tracks the unique numbers passed to this field, to spot enumerated
	// codes such as Region_Code. Stops collecting after MaxEnum entries.
	Seen map[float64]int
}

func (f *NumberField) Add(obj any) (Field, error) {
	switch o := obj.(type) {
	case nil:
		f.Nulls++
		return f, nil
	case float64:
		if len(f.Seen) > 0 {
			f.Integral = f.Integral && isIntegral(o)
			f.Min = min(f.Min, o)
			f.Max = max(f.Max, o)
		} else {
			f.Integral = isIntegral(o)
			f.Min = o
			f.Max = o
		}

		if len(f.Seen) <= MaxEnum {
			f.Seen[o]++
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%T added to number field", o)
	}
}

func isIntegral(f float64) bool {
	return math.Round(f) == f
}

func (f *NumberField) Kind() frame.Kind {
	if f.Integral {
		return frame.Int
	}
	return frame.Float
}

func (f *NumberField) String() string {
	result := strings.Builder{}
	result.WriteString(f.Kind().String())
	if f.Integral {
		result.WriteString(fmt.Sprintf(";%d;%d", int64(f.Min), int64(f.Max)))
	} else {
		result.WriteString(fmt.Sprintf(";%g;%g", f.Min, f.Max))
	}
	result.WriteString(fmt.Sprintf(";null:%d", f.Nulls))

	if len(f.Seen) <= MaxEnum {
		result.WriteString(";enum")
		for _, k := range slices.Sorted(maps.Keys(f.Seen)) {
			result.WriteString(fmt.Sprintf(";%g:%d", k, f.Seen[k]))
		}
	}

	return result.String()
}

// A StringField has only seen JSON strings.
type StringField struct {
	Nulls int

	// Seen attempts to determine if the field is actually an enum with a small
	// number of unique values.
	Seen map[string]int
}

func (f *StringField) Add(obj any) (Field, error) {
	switch o := obj.(type) {
	case nil:
		f.Nulls++
	case string:
		if len(f.Seen) <= MaxEnum {
			f.Seen[o]++
		}
	default:
		return nil, fmt.Errorf("%T added to string field", o)
	}
	return f, nil
}

func (f *StringField) Kind() frame.Kind {
	return frame.String
}

func (f *StringField) String() string {
	result := strings.Builder{}
	if len(f.Seen) <= MaxEnum {
		result.WriteString(fmt.Sprintf("enum;%d;null:%d", len(f.Seen), f.Nulls))
		for _, k := range slices.Sorted(maps.Keys(f.Seen)) {
			result.WriteString(fmt.Sprintf(";%s:%d", k, f.Seen[k]))
		}
	} else {
		result.WriteString(fmt.Sprintf("string;null:%d", f.Nulls))
	}

	return result.String()
}
