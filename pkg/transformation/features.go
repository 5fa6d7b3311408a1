package transformation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/willbeason/crosssell/pkg/encode"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/scale"
	"github.com/willbeason/crosssell/pkg/schema"
)

// Features prepares a raw table for a model trained on a persisted bundle. The
// table is encoded the way Run encodes it and scaled with the fitted pipeline.
// No rebalancing happens. If raw carries the target column it is appended
// unscaled as the last column.
func Features(s *schema.Schema, p *scale.Pipeline, raw frame.Table) (frame.Table, error) {
	if raw.Rows() == 0 {
		return frame.Table{}, fmt.Errorf("%w: table is empty", errs.ErrData)
	}

	target, hasTarget := raw.Column(s.TargetColumn)
	if hasTarget {
		if !target.Kind.Numeric() {
			return frame.Table{}, fmt.Errorf("%w: target column %q is %v", errs.ErrSchema, s.TargetColumn, target.Kind)
		}
		raw = raw.Drop(s.TargetColumn)
	}

	encoded, err := encode.NewEncoder(s).Encode(raw)
	if err != nil {
		return frame.Table{}, err
	}
	m, err := p.Transform(encoded)
	if err != nil {
		return frame.Table{}, err
	}

	names := p.Names()
	columns := make([]frame.Column, 0, len(names)+1)
	for j, name := range names {
		columns = append(columns, frame.NewFloat(name, mat.Col(nil, j, m)...))
	}
	if hasTarget {
		labels := make([]float64, len(target.Floats))
		for i, y := range target.Floats {
			if math.IsNaN(y) {
				return frame.Table{}, fmt.Errorf("%w: row %d has no %s", errs.ErrData, i, s.TargetColumn)
			}
			labels[i] = y
		}
		columns = append(columns, frame.NewInt(s.TargetColumn, labels...))
	}

	return frame.NewTable(columns...)
}
