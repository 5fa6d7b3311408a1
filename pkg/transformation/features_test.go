package transformation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"

	"github.com/willbeason/crosssell/pkg/artifact"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/schema"
)

func TestFeatures_MatchesUnbalancedRun(t *testing.T) {
	ctx := context.Background()
	runner, st := newRunner(t, tableReader{
		"train.csv": raw(80, 12),
		"test.csv":  raw(40, 8),
	})
	runner.Options.BalanceTest = false

	bundle, err := runner.Run(ctx, "train.csv", "test.csv")
	if err != nil {
		t.Fatal(err)
	}

	s, err := schema.Load(runner.SchemaPath)
	if err != nil {
		t.Fatal(err)
	}
	p, err := artifact.LoadPipeline(ctx, st, artifact.DefaultPrefix)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Features(s, p, raw(40, 8))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(bundle.Columns(), got.Names()); diff != "" {
		t.Fatalf("Names() mismatch (-want +got):\n%s", diff)
	}
	for j, c := range got.Columns() {
		want := mat.Col(nil, j, bundle.Test)
		if diff := cmp.Diff(want, c.Floats); diff != "" {
			t.Errorf("column %q mismatch (-want +got):\n%s", c.Name, diff)
		}
	}
}

func TestFeatures_WithoutTarget(t *testing.T) {
	ctx := context.Background()
	runner, st := newRunner(t, tableReader{
		"train.csv": raw(80, 12),
		"test.csv":  raw(40, 8),
	})
	if _, err := runner.Run(ctx, "train.csv", "test.csv"); err != nil {
		t.Fatal(err)
	}

	s, err := schema.Load(runner.SchemaPath)
	if err != nil {
		t.Fatal(err)
	}
	p, err := artifact.LoadPipeline(ctx, st, artifact.DefaultPrefix)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Features(s, p, raw(5, 5).Drop("Response"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p.Names(), got.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if got.Rows() != 10 {
		t.Errorf("Rows() = %d, want 10", got.Rows())
	}

	_, err = Features(s, p, frame.MustTable())
	if !errors.Is(err, errs.ErrData) {
		t.Errorf("Features(empty) error = %v, want %v", err, errs.ErrData)
	}

	_, err = Features(s, p, raw(5, 5).Drop("Vintage"))
	if !errors.Is(err, errs.ErrSchema) {
		t.Errorf("Features(missing column) error = %v, want %v", err, errs.ErrSchema)
	}
}
