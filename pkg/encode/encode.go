// Package encode turns the categorical columns of a raw table into numbers.
//
// The four steps must run in the order Encoder.Encode applies them: the
// binary map and identifier drop come before indicator expansion, otherwise
// expansion would create indicator columns for those columns too. Every
// function leaves its input untouched and returns a new table.
package encode

import (
	"fmt"
	"sort"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/schema"
)

// GenderMapping is the binary map applied to the Gender column.
var GenderMapping = map[string]float64{
	"Female": 0,
	"Male":   1,
}

// VehicleAgeRenames replaces the comparison characters in the generated
// Vehicle_Age indicator names with ASCII-safe tokens.
var VehicleAgeRenames = map[string]string{
	"Vehicle_Age_< 1 Year":  "Vehicle_Age_It_1_Year",
	"Vehicle_Age_> 2 Years": "Vehicle_Age_gt_2_Years",
}

// IndicatorColumns are coerced to integers after renaming, when present.
var IndicatorColumns = []string{
	"Vehicle_Age_It_1_Year",
	"Vehicle_Age_gt_2_Years",
	"Vehicle_Damage_Yes",
}

// MapBinary replaces the values of a two-valued categorical column with the
// numbers given by mapping. Every value must be in the mapping's domain.
func MapBinary(t frame.Table, column string, mapping map[string]float64) (frame.Table, error) {
	i, ok := t.Index(column)
	if !ok {
		return frame.Table{}, fmt.Errorf("%w: binary column %q not found", errs.ErrSchema, column)
	}

	in := t.At(i)
	if in.Kind != frame.String {
		return frame.Table{}, fmt.Errorf("%w: binary column %q is %v, want categorical", errs.ErrSchema, column, in.Kind)
	}

	values := make([]float64, len(in.Strings))
	for row, v := range in.Strings {
		mapped, known := mapping[v]
		if !known {
			return frame.Table{}, fmt.Errorf("%w: column %q row %d: value %q not in mapping", errs.ErrSchema, column, row, v)
		}
		values[row] = mapped
	}

	return t.Splice(i, frame.NewInt(column, values...))
}

// DropIdentifier removes the named column. It is not an error for the column
// to be absent, since training and evaluation exports do not always carry the
// same identifier.
func DropIdentifier(t frame.Table, column string) frame.Table {
	return t.Drop(column)
}

// ExpandCategoricals replaces every categorical column with 0/1 indicator
// columns named "{column}_{value}", one per observed distinct value except the
// lexicographically first, which is the reference category. Indicator columns
// take the place of the column they expand. Empty (null) values get zero in
// every indicator.
func ExpandCategoricals(t frame.Table) (frame.Table, error) {
	var columns []frame.Column
	for _, c := range t.Columns() {
		if c.Kind != frame.String {
			columns = append(columns, c)
			continue
		}
		columns = append(columns, indicators(c)...)
	}

	out, err := frame.NewTable(columns...)
	if err != nil {
		return frame.Table{}, fmt.Errorf("%w: expanding categoricals: %w", errs.ErrSchema, err)
	}
	return out, nil
}

func indicators(c frame.Column) []frame.Column {
	seen := make(map[string]struct{})
	for _, v := range c.Strings {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for v := range seen {
		categories = append(categories, v)
	}
	sort.Strings(categories)

	if len(categories) < 2 {
		return nil
	}

	// Drop the reference category.
	categories = categories[1:]
	position := make(map[string]int, len(categories))
	out := make([]frame.Column, len(categories))
	for k, v := range categories {
		position[v] = k
		out[k] = frame.NewInt(fmt.Sprintf("%s_%s", c.Name, v), make([]float64, len(c.Strings))...)
	}
	for row, v := range c.Strings {
		if k, ok := position[v]; ok {
			out[k].Floats[row] = 1
		}
	}
	return out
}

// NormalizeIndicatorNames renames columns according to renames and marks the
// columns in intColumns as integers. Names that are not present are ignored,
// so a vocabulary that lacks some category still encodes.
func NormalizeIndicatorNames(t frame.Table, renames map[string]string, intColumns []string) (frame.Table, error) {
	asInt := make(map[string]struct{}, len(intColumns))
	for _, c := range intColumns {
		asInt[c] = struct{}{}
	}

	columns := t.Columns()
	for j, c := range columns {
		if to, ok := renames[c.Name]; ok {
			c.Name = to
		}
		if _, ok := asInt[c.Name]; ok && c.Kind == frame.Float {
			c.Kind = frame.Int
		}
		columns[j] = c
	}

	out, err := frame.NewTable(columns...)
	if err != nil {
		return frame.Table{}, fmt.Errorf("%w: renaming indicators: %w", errs.ErrSchema, err)
	}
	return out, nil
}

// Encoder runs the four encoding steps in their required order. The same
// Encoder must be used for training tables and for any table later fed to the
// fitted scaler.
type Encoder struct {
	// BinaryColumn is mapped with BinaryMapping. Empty skips the step.
	BinaryColumn  string
	BinaryMapping map[string]float64

	// IdentifierColumn is dropped if present. Empty skips the step.
	IdentifierColumn string

	Renames    map[string]string
	IntColumns []string
}

// NewEncoder returns the encoder for the insurance cross-sell data, dropping
// the identifier column named by s.
func NewEncoder(s *schema.Schema) *Encoder {
	return &Encoder{
		BinaryColumn:     "Gender",
		BinaryMapping:    GenderMapping,
		IdentifierColumn: s.DropColumn,
		Renames:          VehicleAgeRenames,
		IntColumns:       IndicatorColumns,
	}
}

// Encode returns the encoded form of t, in which every column is numeric.
func (e *Encoder) Encode(t frame.Table) (frame.Table, error) {
	var err error
	if e.BinaryColumn != "" {
		t, err = MapBinary(t, e.BinaryColumn, e.BinaryMapping)
		if err != nil {
			return frame.Table{}, err
		}
	}

	if e.IdentifierColumn != "" {
		t = DropIdentifier(t, e.IdentifierColumn)
	}

	t, err = ExpandCategoricals(t)
	if err != nil {
		return frame.Table{}, err
	}

	return NormalizeIndicatorNames(t, e.Renames, e.IntColumns)
}
