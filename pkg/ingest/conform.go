package ingest

import (
	"fmt"
	"math"

	"github.com/apache/arrow/go/v18/arrow"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
)

// Conform returns the columns of t named by schema, in schema order, with the
// kinds schema declares. Whole-valued floats may become ints and ints may
// become floats. Columns of t not in schema are returned in dropped.
func Conform(t frame.Table, schema *arrow.Schema) (conformed frame.Table, dropped []string, err error) {
	columns := make([]frame.Column, schema.NumFields())
	for j, field := range schema.Fields() {
		want, err := frame.KindOf(field.Type)
		if err != nil {
			return frame.Table{}, nil, fmt.Errorf("%w: field %q: %w", errs.ErrConfig, field.Name, err)
		}

		c, ok := t.Column(field.Name)
		if !ok {
			return frame.Table{}, nil, fmt.Errorf("%w: missing column %q", errs.ErrSchema, field.Name)
		}
		columns[j], err = convert(c, want)
		if err != nil {
			return frame.Table{}, nil, err
		}
	}

	for _, name := range t.Names() {
		if schema.HasField(name) {
			continue
		}
		dropped = append(dropped, name)
	}

	conformed, err = frame.NewTable(columns...)
	if err != nil {
		return frame.Table{}, nil, fmt.Errorf("%w: %w", errs.ErrData, err)
	}
	return conformed, dropped, nil
}

func convert(c frame.Column, want frame.Kind) (frame.Column, error) {
	switch {
	case c.Kind == want:
		return c, nil
	case want == frame.Float && c.Kind == frame.Int:
		return frame.NewFloat(c.Name, c.Floats...), nil
	case want == frame.Int && c.Kind == frame.Float:
		for i, v := range c.Floats {
			if !math.IsNaN(v) && math.Trunc(v) != v {
				return frame.Column{}, fmt.Errorf("%w: column %q row %d: %v is not an integer", errs.ErrSchema, c.Name, i, v)
			}
		}
		return frame.NewInt(c.Name, c.Floats...), nil
	default:
		return frame.Column{}, fmt.Errorf("%w: column %q is %v, want %v", errs.ErrSchema, c.Name, c.Kind, want)
	}
}
