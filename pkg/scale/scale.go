// Package scale fits and applies the numeric scaling stage of the feature
// pipeline. Columns named under num_features are standardised, columns named
// under mm_columns are min-max normalised, and every other column passes
// through unchanged in its original position.
package scale

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/schema"
)

// Step holds the frozen statistics for one output column. Transform maps a
// value x to (x - Center) / Scale.
type Step struct {
	Name    string         `cbor:"name"`
	Scaling schema.Scaling `cbor:"scaling"`
	Center  float64        `cbor:"center"`
	Scale   float64        `cbor:"scale"`
}

// Pipeline is a fitted scaler. Its statistics never change after Fit, so the
// same Pipeline gives identical output for identical input no matter how many
// tables it has transformed.
type Pipeline struct {
	Steps []Step `cbor:"steps"`
}

// Fit computes per-column statistics from t. Standardised columns use the
// population standard deviation; a column with zero spread gets a scale of 1
// so its values map to 0.
func Fit(t frame.Table, s *schema.Schema) (*Pipeline, error) {
	for _, name := range append(append([]string{}, s.NumericColumns...), s.ScaledColumns...) {
		if !t.Has(name) {
			return nil, fmt.Errorf("%w: column %q required by schema not found", errs.ErrSchema, name)
		}
	}
	if t.Rows() == 0 {
		return nil, fmt.Errorf("%w: cannot fit scaler on empty table", errs.ErrData)
	}

	p := &Pipeline{Steps: make([]Step, t.Width())}
	for j, c := range t.Columns() {
		if !c.Kind.Numeric() {
			return nil, fmt.Errorf("%w: column %q is %v, encode it before scaling", errs.ErrSchema, c.Name, c.Kind)
		}

		step := Step{Name: c.Name, Scaling: s.Scaling(c.Name), Scale: 1}
		switch step.Scaling {
		case schema.Standard:
			if floats.HasNaN(c.Floats) {
				return nil, fmt.Errorf("%w: column %q has null values", errs.ErrData, c.Name)
			}
			mean, std := stat.PopMeanStdDev(c.Floats, nil)
			step.Center = mean
			if std != 0 {
				step.Scale = std
			}
		case schema.MinMax:
			if floats.HasNaN(c.Floats) {
				return nil, fmt.Errorf("%w: column %q has null values", errs.ErrData, c.Name)
			}
			lo, hi := floats.Min(c.Floats), floats.Max(c.Floats)
			step.Center = lo
			if hi != lo {
				step.Scale = hi - lo
			}
		}
		p.Steps[j] = step
	}

	return p, nil
}

// Names returns the output column names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.Steps))
	for j, step := range p.Steps {
		names[j] = step.Name
	}
	return names
}

// Transform applies the frozen statistics to t. The table must have exactly
// the columns seen at fit time; they may appear in any order, and the output
// always follows fit-time order.
func (p *Pipeline) Transform(t frame.Table) (*mat.Dense, error) {
	if t.Width() != len(p.Steps) {
		return nil, fmt.Errorf("%w: table has %d columns, scaler was fit on %d", errs.ErrSchema, t.Width(), len(p.Steps))
	}
	if t.Rows() == 0 {
		return nil, fmt.Errorf("%w: cannot scale empty table", errs.ErrData)
	}

	out := mat.NewDense(t.Rows(), len(p.Steps), nil)
	for j, step := range p.Steps {
		c, ok := t.Column(step.Name)
		if !ok {
			return nil, fmt.Errorf("%w: column %q seen at fit time not found", errs.ErrSchema, step.Name)
		}
		if !c.Kind.Numeric() {
			return nil, fmt.Errorf("%w: column %q is %v, encode it before scaling", errs.ErrSchema, c.Name, c.Kind)
		}
		for i, v := range c.Floats {
			out.Set(i, j, step.apply(v))
		}
	}
	return out, nil
}

func (s Step) apply(v float64) float64 {
	if s.Scaling == schema.Passthrough || math.IsNaN(v) {
		return v
	}
	return (v - s.Center) / s.Scale
}
