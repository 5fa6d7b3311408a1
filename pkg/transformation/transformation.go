// Package transformation runs the feature pipeline end to end: it encodes the
// raw train and test tables, fits the scaler on train, scales both, rebalances
// their classes, and persists the resulting bundle.
//
// A run is all-or-nothing. The first failing stage aborts it and nothing is
// persisted.
package transformation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/willbeason/crosssell/pkg/artifact"
	"github.com/willbeason/crosssell/pkg/balance"
	"github.com/willbeason/crosssell/pkg/encode"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/scale"
	"github.com/willbeason/crosssell/pkg/schema"
	"github.com/willbeason/crosssell/pkg/store"
)

// TableReader loads a raw table. ingest.Reader is the production
// implementation.
type TableReader interface {
	ReadTable(ctx context.Context, path string) (frame.Table, error)
}

// Options selects which splits are rebalanced.
type Options struct {
	BalanceTrain bool
	BalanceTest  bool
}

// DefaultOptions rebalances both splits.
func DefaultOptions() Options {
	return Options{BalanceTrain: true, BalanceTest: true}
}

// Runner holds the collaborators of a transformation run. A Runner may be
// reused for several runs but not concurrently.
type Runner struct {
	SchemaPath string
	Reader     TableReader
	Store      store.Store
	Prefix     string
	Balancer   *balance.Balancer
	Options    Options
	Logger     *slog.Logger

	// OnStage, if set, is called as each stage begins.
	OnStage func(Stage)
}

// NewRunner returns a Runner with default options persisting under
// artifact.DefaultPrefix. A nil logger uses slog.Default().
func NewRunner(schemaPath string, reader TableReader, st store.Store, seed int64, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		SchemaPath: schemaPath,
		Reader:     reader,
		Store:      st,
		Prefix:     artifact.DefaultPrefix,
		Balancer:   balance.New(seed),
		Options:    DefaultOptions(),
		Logger:     logger,
	}
}

// run carries the intermediate values of one Run.
type run struct {
	schema *schema.Schema

	train, test             frame.Table
	trainLabels, testLabels []float64

	pipeline                *scale.Pipeline
	trainMatrix, testMatrix *mat.Dense

	bundle *artifact.Bundle
}

// Run transforms the raw tables at trainPath and testPath and persists the
// bundle. The returned error wraps a StageError naming the failed stage.
func (r *Runner) Run(ctx context.Context, trainPath, testPath string) (*artifact.Bundle, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	state := &run{}
	start := time.Now()

	steps := []struct {
		stage Stage
		do    func() error
	}{
		{LoadSchema, func() error {
			s, err := schema.Load(r.SchemaPath)
			state.schema = s
			return err
		}},
		{SplitFeaturesTarget, func() error {
			return r.split(ctx, state, trainPath, testPath)
		}},
		{EncodeTrain, func() error {
			var err error
			state.train, err = encode.NewEncoder(state.schema).Encode(state.train)
			return err
		}},
		{EncodeTest, func() error {
			var err error
			state.test, err = encode.NewEncoder(state.schema).Encode(state.test)
			return err
		}},
		{FitScaler, func() error {
			var err error
			state.pipeline, err = scale.Fit(state.train, state.schema)
			return err
		}},
		{ScaleTrain, func() error {
			var err error
			state.trainMatrix, err = state.pipeline.Transform(state.train)
			return err
		}},
		{ScaleTest, func() error {
			var err error
			state.testMatrix, err = state.pipeline.Transform(state.test)
			return err
		}},
		{BalanceTrain, func() error {
			if !r.Options.BalanceTrain {
				logger.Debug("skipping balance", "split", "train")
				return nil
			}
			var err error
			state.trainMatrix, state.trainLabels, err = r.rebalance(logger, "train", state.trainMatrix, state.trainLabels)
			return err
		}},
		{BalanceTest, func() error {
			if !r.Options.BalanceTest {
				logger.Debug("skipping balance", "split", "test")
				return nil
			}
			var err error
			state.testMatrix, state.testLabels, err = r.rebalance(logger, "test", state.testMatrix, state.testLabels)
			return err
		}},
		{Concatenate, func() error {
			state.bundle = &artifact.Bundle{
				RunID:    uuid.New(),
				Created:  time.Now(),
				Pipeline: state.pipeline,
				Label:    state.schema.TargetColumn,
				Train:    withLabels(state.trainMatrix, state.trainLabels),
				Test:     withLabels(state.testMatrix, state.testLabels),
			}
			return nil
		}},
		{Persist, func() error {
			return artifact.Save(ctx, r.Store, r.Prefix, state.bundle)
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: step.stage, Err: err}
		}
		r.enter(step.stage)
		logger.Debug("stage", "stage", step.stage.String())

		err := step.do()
		if err != nil {
			logger.Error("transformation failed", "stage", step.stage.String(), "error", err)
			return nil, &StageError{Stage: step.stage, Err: err}
		}
	}
	r.enter(Done)

	trainRows, cols := state.bundle.Train.Dims()
	testRows, _ := state.bundle.Test.Dims()
	logger.Info("transformation complete",
		"run_id", state.bundle.RunID.String(),
		"prefix", r.Prefix,
		"columns", cols,
		"train_rows", trainRows,
		"test_rows", testRows,
		"elapsed", time.Since(start))
	return state.bundle, nil
}

func (r *Runner) enter(s Stage) {
	if r.OnStage != nil {
		r.OnStage(s)
	}
}

// split reads both tables and separates the target column from the
// features.
func (r *Runner) split(ctx context.Context, state *run, trainPath, testPath string) error {
	var err error
	state.train, state.trainLabels, err = r.readSplit(ctx, state.schema, trainPath)
	if err != nil {
		return err
	}
	state.test, state.testLabels, err = r.readSplit(ctx, state.schema, testPath)
	return err
}

func (r *Runner) readSplit(ctx context.Context, s *schema.Schema, path string) (frame.Table, []float64, error) {
	t, err := r.Reader.ReadTable(ctx, path)
	if err != nil {
		return frame.Table{}, nil, err
	}
	if t.Rows() == 0 {
		return frame.Table{}, nil, fmt.Errorf("%w: table %q is empty", errs.ErrData, path)
	}

	err = s.Validate(t)
	if err != nil {
		return frame.Table{}, nil, fmt.Errorf("table %q: %w", path, err)
	}

	target, ok := t.Column(s.TargetColumn)
	if !ok {
		return frame.Table{}, nil, fmt.Errorf("%w: table %q has no target column %q", errs.ErrSchema, path, s.TargetColumn)
	}
	if !target.Kind.Numeric() {
		return frame.Table{}, nil, fmt.Errorf("%w: target column %q is %v", errs.ErrSchema, s.TargetColumn, target.Kind)
	}
	for i, y := range target.Floats {
		if math.IsNaN(y) {
			return frame.Table{}, nil, fmt.Errorf("%w: table %q row %d has no %s", errs.ErrData, path, i, s.TargetColumn)
		}
	}

	return t.Drop(s.TargetColumn), target.Floats, nil
}

func (r *Runner) rebalance(logger *slog.Logger, split string, features *mat.Dense, labels []float64) (*mat.Dense, []float64, error) {
	b := r.Balancer
	if b == nil {
		b = balance.New(0)
	}
	out, outLabels, stats, err := b.RebalanceStats(features, labels)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("rebalanced",
		"split", split,
		"minority_in", stats.InMinority,
		"majority_in", stats.InMajority,
		"synthesized", stats.Synthesized,
		"removed", stats.Removed,
		"minority_out", stats.OutMinority,
		"majority_out", stats.OutMajority)
	return out, outLabels, nil
}

// withLabels returns [features | labels].
func withLabels(features *mat.Dense, labels []float64) *mat.Dense {
	rows, cols := features.Dims()
	out := mat.NewDense(rows, cols+1, nil)
	out.Slice(0, rows, 0, cols).(*mat.Dense).Copy(features)
	out.SetCol(cols, labels)
	return out
}
