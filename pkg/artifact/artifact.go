// Package artifact persists the output of a transformation run: the fitted
// scaler and the final train and test arrays. A bundle is written once and
// only ever read afterwards.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/scale"
	"github.com/willbeason/crosssell/pkg/store"
	"github.com/willbeason/crosssell/pkg/tables"
)

// DefaultPrefix is the key prefix bundles are stored under.
const DefaultPrefix = "data_transformation"

// LabelRole marks the label column in a bundle's arrays.
const LabelRole = "label"

// Bundle is the hand-off between the transformation run and model training.
// Train and Test hold the scaled features followed by the label column.
type Bundle struct {
	RunID    uuid.UUID
	Created  time.Time
	Pipeline *scale.Pipeline
	Label    string
	Train    *mat.Dense
	Test     *mat.Dense
}

// Columns names the columns of Train and Test.
func (b *Bundle) Columns() []string {
	return append(b.Pipeline.Names(), b.Label)
}

// Roles gives each column's scaling, or LabelRole for the last.
func (b *Bundle) Roles() []string {
	roles := make([]string, 0, len(b.Pipeline.Steps)+1)
	for _, step := range b.Pipeline.Steps {
		roles = append(roles, step.Scaling.String())
	}
	return append(roles, LabelRole)
}

// Manifest describes a stored bundle. It is written last, so a bundle whose
// manifest exists is complete.
type Manifest struct {
	RunID     uuid.UUID `json:"run_id"`
	Created   time.Time `json:"created"`
	Columns   []string  `json:"columns"`
	Roles     []string  `json:"roles"`
	TrainRows int       `json:"train_rows"`
	TestRows  int       `json:"test_rows"`
	Keys      []string  `json:"keys"`
}

// Keys returns the store keys of the pipeline, train array, test array, and
// manifest under prefix.
func Keys(prefix string) (pipeline, train, test, manifest string) {
	return path.Join(prefix, tables.PreprocessingName),
		path.Join(prefix, tables.TrainName+tables.ParquetExt),
		path.Join(prefix, tables.TestName+tables.ParquetExt),
		path.Join(prefix, tables.ManifestName)
}

// Save writes b under prefix.
func Save(ctx context.Context, st store.Store, prefix string, b *Bundle) error {
	if b.Pipeline == nil || b.Train == nil || b.Test == nil {
		return fmt.Errorf("%w: incomplete bundle", errs.ErrPersistence)
	}

	pipelineKey, trainKey, testKey, manifestKey := Keys(prefix)
	columns := b.Columns()
	schema := tables.Matrix(columns, b.Roles())

	pipelineData, err := EncodePipeline(b.RunID, b.Pipeline)
	if err != nil {
		return err
	}

	trainData, err := encodeMatrix(schema, b.Train)
	if err != nil {
		return fmt.Errorf("%w: encoding train array: %w", errs.ErrPersistence, err)
	}
	testData, err := encodeMatrix(schema, b.Test)
	if err != nil {
		return fmt.Errorf("%w: encoding test array: %w", errs.ErrPersistence, err)
	}

	trainRows, _ := b.Train.Dims()
	testRows, _ := b.Test.Dims()
	manifestData, err := json.MarshalIndent(Manifest{
		RunID:     b.RunID,
		Created:   b.Created.UTC(),
		Columns:   columns,
		Roles:     b.Roles(),
		TrainRows: trainRows,
		TestRows:  testRows,
		Keys:      []string{pipelineKey, trainKey, testKey},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding manifest: %w", errs.ErrPersistence, err)
	}

	for _, blob := range []struct {
		key  string
		data []byte
	}{
		{pipelineKey, pipelineData},
		{trainKey, trainData},
		{testKey, testData},
		{manifestKey, manifestData},
	} {
		err = st.Save(ctx, blob.key, blob.data)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadManifest reads the manifest of the bundle under prefix.
func LoadManifest(ctx context.Context, st store.Store, prefix string) (*Manifest, error) {
	_, _, _, manifestKey := Keys(prefix)
	data, err := st.Load(ctx, manifestKey)
	if err != nil {
		return nil, err
	}

	var m Manifest
	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %w", errs.ErrPersistence, err)
	}
	return &m, nil
}

// LoadPipeline reads only the fitted pipeline of the bundle under prefix, for
// transforming new data at evaluation or inference time. The pipeline must
// belong to the run named by the manifest.
func LoadPipeline(ctx context.Context, st store.Store, prefix string) (*scale.Pipeline, error) {
	m, err := LoadManifest(ctx, st, prefix)
	if err != nil {
		return nil, err
	}
	return loadPipeline(ctx, st, prefix, m)
}

func loadPipeline(ctx context.Context, st store.Store, prefix string, m *Manifest) (*scale.Pipeline, error) {
	pipelineKey, _, _, _ := Keys(prefix)
	data, err := st.Load(ctx, pipelineKey)
	if err != nil {
		return nil, err
	}

	runID, p, err := DecodePipeline(data)
	if err != nil {
		return nil, err
	}
	if runID != m.RunID {
		return nil, fmt.Errorf("%w: pipeline run %s does not match manifest run %s", errs.ErrPersistence, runID, m.RunID)
	}
	return p, nil
}

// Load reads the complete bundle under prefix and checks its parts agree
// with the manifest.
func Load(ctx context.Context, st store.Store, prefix string) (*Bundle, error) {
	m, err := LoadManifest(ctx, st, prefix)
	if err != nil {
		return nil, err
	}
	if len(m.Columns) < 2 {
		return nil, fmt.Errorf("%w: manifest lists %d columns", errs.ErrPersistence, len(m.Columns))
	}

	p, err := loadPipeline(ctx, st, prefix, m)
	if err != nil {
		return nil, err
	}
	_, trainKey, testKey, _ := Keys(prefix)

	b := &Bundle{
		RunID:    m.RunID,
		Created:  m.Created,
		Pipeline: p,
		Label:    m.Columns[len(m.Columns)-1],
	}
	if !slices.Equal(b.Columns(), m.Columns) {
		return nil, fmt.Errorf("%w: pipeline columns do not match manifest", errs.ErrPersistence)
	}

	b.Train, err = loadMatrix(ctx, st, trainKey, m.Columns, m.TrainRows)
	if err != nil {
		return nil, err
	}
	b.Test, err = loadMatrix(ctx, st, testKey, m.Columns, m.TestRows)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func loadMatrix(ctx context.Context, st store.Store, key string, columns []string, rows int) (*mat.Dense, error) {
	data, err := st.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	m, names, err := decodeMatrix(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %q: %w", errs.ErrPersistence, key, err)
	}
	if !slices.Equal(names, columns) {
		return nil, fmt.Errorf("%w: %q columns do not match manifest", errs.ErrPersistence, key)
	}
	if r, _ := m.Dims(); r != rows {
		return nil, fmt.Errorf("%w: %q has %d rows, manifest says %d", errs.ErrPersistence, key, r, rows)
	}
	return m, nil
}
