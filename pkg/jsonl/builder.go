// Package jsonl turns flat JSON documents, one per line, into a frame.Table.
// Column kinds are inferred from the values seen across all documents.
package jsonl

import (
	"math"

	"github.com/willbeason/crosssell/pkg/frame"
)

// NullString is read as null wherever it appears, matching the "na"
// placeholder in feature store exports.
const NullString = "na"

// Builder collects documents column by column.
type Builder struct {
	profile *Profile
	order   []string
	values  map[string][]any
}

// NewBuilder returns a Builder that places the columns in order first, then
// any other keys sorted by name. Keys in skip are ignored.
func NewBuilder(order []string, skip ...string) *Builder {
	return &Builder{
		profile: NewProfile(skip...),
		order:   order,
		values:  make(map[string][]any),
	}
}

// Add appends one document. Nested objects and arrays are rejected.
func (b *Builder) Add(doc map[string]any) error {
	rows := b.profile.Rows()
	return b.profile.add(doc, func(key string, value any) {
		values, ok := b.values[key]
		if !ok {
			values = make([]any, rows, rows+1)
		}
		b.values[key] = append(values, value)
	})
}

// Rows is the number of documents added.
func (b *Builder) Rows() int {
	return b.profile.Rows()
}

// Names returns the column names in output order.
func (b *Builder) Names() []string {
	var result []string
	placed := make(map[string]bool)
	for _, name := range b.order {
		if _, ok := b.profile.Field(name); ok {
			result = append(result, name)
			placed[name] = true
		}
	}

	for _, name := range b.profile.Keys() {
		if !placed[name] {
			result = append(result, name)
		}
	}
	return result
}

// Field returns the accumulated analysis for a key.
func (b *Builder) Field(name string) (Field, bool) {
	return b.profile.Field(name)
}

// Table builds the collected documents into a table.
func (b *Builder) Table() (frame.Table, error) {
	names := b.Names()
	columns := make([]frame.Column, len(names))
	for i, name := range names {
		field, _ := b.profile.Field(name)
		columns[i] = column(name, field.Kind(), b.values[name])
	}
	return frame.NewTable(columns...)
}

func column(name string, kind frame.Kind, values []any) frame.Column {
	if kind == frame.String {
		strs := make([]string, len(values))
		for i, v := range values {
			if s, ok := v.(string); ok {
				strs[i] = s
			}
		}
		return frame.Column{Name: name, Kind: kind, Strings: strs}
	}

	nums := make([]float64, len(values))
	for i, v := range values {
		switch o := v.(type) {
		case float64:
			nums[i] = o
		case bool:
			if o {
				nums[i] = 1
			}
		default:
			nums[i] = math.NaN()
		}
	}
	return frame.Column{Name: name, Kind: kind, Floats: nums}
}
