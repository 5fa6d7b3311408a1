// Package frame holds tabular data as an ordered list of named columns.
//
// A Table never changes after it is built. Operations that add, remove, or
// rewrite columns return a new Table; unchanged columns share their backing
// slices with the original.
package frame

import (
	"fmt"
	"math"
	"slices"
)

// Kind is the storage type of a column.
type Kind uint8

const (
	// Float columns hold real values. Nulls are NaN.
	Float Kind = iota
	// Int columns hold integral values, stored as float64 so that numeric
	// stages can treat Int and Float alike.
	Int
	// String columns hold categorical or free-text values. Nulls are "".
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case String:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Numeric reports whether values of this kind live in Column.Floats.
func (k Kind) Numeric() bool {
	return k == Float || k == Int
}

// Column is a single named column. Exactly one of Floats or Strings is used,
// depending on Kind.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// Len is the number of values in the column.
func (c Column) Len() int {
	if c.Kind == String {
		return len(c.Strings)
	}
	return len(c.Floats)
}

// NewFloat returns a Float column.
func NewFloat(name string, values ...float64) Column {
	return Column{Name: name, Kind: Float, Floats: values}
}

// NewInt returns an Int column.
func NewInt(name string, values ...float64) Column {
	return Column{Name: name, Kind: Int, Floats: values}
}

// NewString returns a String column.
func NewString(name string, values ...string) Column {
	return Column{Name: name, Kind: String, Strings: values}
}

// Table is an ordered set of equal-length columns with unique names.
type Table struct {
	columns []Column
	rows    int
}

// NewTable builds a Table from columns, rejecting duplicate names and
// columns of differing length.
func NewTable(columns ...Column) (Table, error) {
	t := Table{columns: columns}
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if _, dup := seen[c.Name]; dup {
			return Table{}, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}

		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return Table{}, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
	}
	return t, nil
}

// MustTable is NewTable for callers that construct known-good tables.
func MustTable(columns ...Column) Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Rows is the number of rows.
func (t Table) Rows() int {
	return t.rows
}

// Width is the number of columns.
func (t Table) Width() int {
	return len(t.columns)
}

// Names returns the column names in order.
func (t Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns a copy of the column list.
func (t Table) Columns() []Column {
	return slices.Clone(t.columns)
}

// Index returns the position of the named column.
func (t Table) Index(name string) (int, bool) {
	for i, c := range t.columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Has reports whether the named column is present.
func (t Table) Has(name string) bool {
	_, ok := t.Index(name)
	return ok
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	i, ok := t.Index(name)
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// At returns the i-th column.
func (t Table) At(i int) Column {
	return t.columns[i]
}

// Drop returns t without the named column. Absent names are ignored.
func (t Table) Drop(name string) Table {
	i, ok := t.Index(name)
	if !ok {
		return t
	}
	columns := make([]Column, 0, len(t.columns)-1)
	columns = append(columns, t.columns[:i]...)
	columns = append(columns, t.columns[i+1:]...)
	return Table{columns: columns, rows: t.rows}
}

// Splice returns t with the i-th column replaced by replacement, which may
// hold zero or more columns.
func (t Table) Splice(i int, replacement ...Column) (Table, error) {
	columns := make([]Column, 0, len(t.columns)-1+len(replacement))
	columns = append(columns, t.columns[:i]...)
	columns = append(columns, replacement...)
	columns = append(columns, t.columns[i+1:]...)
	return NewTable(columns...)
}

// Append returns t with c added as the last column.
func (t Table) Append(c Column) (Table, error) {
	columns := make([]Column, 0, len(t.columns)+1)
	columns = append(columns, t.columns...)
	columns = append(columns, c)
	return NewTable(columns...)
}

// Take returns the rows of t at the given indices, in that order.
func (t Table) Take(indices []int) Table {
	columns := make([]Column, len(t.columns))
	for j, c := range t.columns {
		out := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == String {
			out.Strings = make([]string, len(indices))
			for k, i := range indices {
				out.Strings[k] = c.Strings[i]
			}
		} else {
			out.Floats = make([]float64, len(indices))
			for k, i := range indices {
				out.Floats[k] = c.Floats[i]
			}
		}
		columns[j] = out
	}
	return Table{columns: columns, rows: len(indices)}
}

// Row returns row i as a name to value map, mainly for tests and debugging.
// Numeric nulls are reported as nil.
func (t Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.columns))
	for _, c := range t.columns {
		switch c.Kind {
		case String:
			row[c.Name] = c.Strings[i]
		default:
			v := c.Floats[i]
			if math.IsNaN(v) {
				row[c.Name] = nil
			} else {
				row[c.Name] = v
			}
		}
	}
	return row
}
