// Package schema loads the declarative column description that drives the
// feature pipeline: which columns are standardised, which are min-max scaled,
// which identifier is dropped, and which column holds the label.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
)

// DefaultTarget is the label column used when the schema file names none.
const DefaultTarget = "Response"

// DefaultPath is where the schema file lives relative to the working
// directory.
var DefaultPath = filepath.Join("config", "schema.yaml")

//go:embed schema.json
var fileSchema []byte

// Schema is the in-memory form of the schema file. It is read-only once
// loaded and may be shared between goroutines.
type Schema struct {
	// NumericColumns are standardised to zero mean and unit variance.
	NumericColumns []string
	// ScaledColumns are min-max normalised into [0, 1].
	ScaledColumns []string
	// DropColumn is the identifier column removed before encoding. Empty when
	// the schema names none.
	DropColumn string
	// TargetColumn holds the binary label.
	TargetColumn string
	// Columns optionally lists the raw columns and their declared types, in
	// file order.
	Columns []ColumnSpec
}

// ColumnSpec is one entry of the optional "columns" list.
type ColumnSpec struct {
	Name string
	Type string
}

type file struct {
	NumFeatures  []string            `yaml:"num_features"`
	MMColumns    []string            `yaml:"mm_columns"`
	DropColumns  string              `yaml:"drop_columns"`
	TargetColumn string              `yaml:"target_column"`
	Columns      []map[string]string `yaml:"columns"`
}

// Load reads and validates the schema file at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading schema %q: %w", errs.ErrConfig, path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates and decodes schema file contents.
func Parse(data []byte) (*Schema, error) {
	var raw any
	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing yaml: %w", errs.ErrConfig, err)
	}

	err = validate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfig, err)
	}

	var f file
	err = yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding schema: %w", errs.ErrConfig, err)
	}

	s := &Schema{
		NumericColumns: f.NumFeatures,
		ScaledColumns:  f.MMColumns,
		DropColumn:     f.DropColumns,
		TargetColumn:   f.TargetColumn,
	}
	if s.TargetColumn == "" {
		s.TargetColumn = DefaultTarget
	}
	for _, entry := range f.Columns {
		for name, typ := range entry {
			s.Columns = append(s.Columns, ColumnSpec{Name: name, Type: typ})
		}
	}

	numeric := make(map[string]struct{}, len(s.NumericColumns))
	for _, c := range s.NumericColumns {
		numeric[c] = struct{}{}
	}
	for _, c := range s.ScaledColumns {
		if _, both := numeric[c]; both {
			return nil, fmt.Errorf("%w: column %q is in both num_features and mm_columns", errs.ErrConfig, c)
		}
	}

	return s, nil
}

// validate checks the decoded YAML document against the embedded JSON Schema.
// The document goes through encoding/json first so the validator only sees
// JSON-compatible values.
func validate(doc any) error {
	compiler := jsonschema.NewCompiler()
	err := compiler.AddResource("schema.json", bytes.NewReader(fileSchema))
	if err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	var v any
	err = json.Unmarshal(b, &v)
	if err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}

	err = compiled.Validate(v)
	if err != nil {
		return fmt.Errorf("schema file does not match expected structure: %w", err)
	}
	return nil
}

// Validate checks that t has every column listed under "columns". A schema
// without a column list accepts any table.
func (s *Schema) Validate(t frame.Table) error {
	for _, c := range s.Columns {
		if !t.Has(c.Name) {
			return fmt.Errorf("%w: missing declared column %q", errs.ErrSchema, c.Name)
		}
	}
	return nil
}

// Scaling reports how the named column is scaled.
func (s *Schema) Scaling(column string) Scaling {
	for _, c := range s.NumericColumns {
		if c == column {
			return Standard
		}
	}
	for _, c := range s.ScaledColumns {
		if c == column {
			return MinMax
		}
	}
	return Passthrough
}

// Scaling is the per-column treatment applied by the numeric scaler.
type Scaling uint8

const (
	Passthrough Scaling = iota
	Standard
	MinMax
)

func (s Scaling) String() string {
	switch s {
	case Passthrough:
		return "passthrough"
	case Standard:
		return "standard"
	case MinMax:
		return "minmax"
	default:
		return fmt.Sprintf("scaling(%d)", s)
	}
}
