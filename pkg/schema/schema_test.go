package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
)

const insuranceSchema = `
columns:
  - id: int
  - Gender: category
  - Age: int
  - Vehicle_Age: category
  - Response: int
num_features:
  - Age
  - Vintage
mm_columns:
  - Annual_Premium
drop_columns: _id
`

func writeSchema(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	err := os.WriteFile(path, []byte(contents), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	got, err := Load(writeSchema(t, insuranceSchema))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Schema{
		NumericColumns: []string{"Age", "Vintage"},
		ScaledColumns:  []string{"Annual_Premium"},
		DropColumn:     "_id",
		TargetColumn:   DefaultTarget,
		Columns: []ColumnSpec{
			{Name: "id", Type: "int"},
			{Name: "Gender", Type: "category"},
			{Name: "Age", Type: "int"},
			{Name: "Vehicle_Age", Type: "category"},
			{Name: "Response", Type: "int"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() (-want +got):\n%s", diff)
	}
}

func TestLoad_ConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "empty file", contents: ""},
		{name: "not yaml", contents: "num_features: [Age"},
		{name: "missing num_features", contents: "mm_columns: [Annual_Premium]\n"},
		{name: "missing mm_columns", contents: "num_features: [Age]\n"},
		{name: "wrong type", contents: "num_features: Age\nmm_columns: []\n"},
		{name: "overlapping sets", contents: "num_features: [Age]\nmm_columns: [Age]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSchema(t, tt.contents))
			if !errors.Is(err, errs.ErrConfig) {
				t.Errorf("Load() error = %v, want %v", err, errs.ErrConfig)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if !errors.Is(err, errs.ErrConfig) {
			t.Errorf("Load() error = %v, want %v", err, errs.ErrConfig)
		}
	})
}

func TestParse_OptionalKeys(t *testing.T) {
	got, err := Parse([]byte("num_features: [Age]\nmm_columns: []\ntarget_column: Label\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got.DropColumn != "" {
		t.Errorf("DropColumn = %q, want empty", got.DropColumn)
	}
	if got.TargetColumn != "Label" {
		t.Errorf("TargetColumn = %q, want %q", got.TargetColumn, "Label")
	}
}

func TestSchema_Scaling(t *testing.T) {
	s := &Schema{NumericColumns: []string{"Age"}, ScaledColumns: []string{"Annual_Premium"}}

	for column, want := range map[string]Scaling{
		"Age":            Standard,
		"Annual_Premium": MinMax,
		"Gender":         Passthrough,
	} {
		if got := s.Scaling(column); got != want {
			t.Errorf("Scaling(%q) = %v, want %v", column, got, want)
		}
	}
}

func TestSchema_Validate(t *testing.T) {
	s := &Schema{Columns: []ColumnSpec{{Name: "Age", Type: "int"}, {Name: "Gender", Type: "category"}}}

	ok := frame.MustTable(frame.NewInt("Age", 30), frame.NewString("Gender", "Male"))
	if err := s.Validate(ok); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	missing := frame.MustTable(frame.NewInt("Age", 30))
	if err := s.Validate(missing); !errors.Is(err, errs.ErrSchema) {
		t.Errorf("Validate() error = %v, want %v", err, errs.ErrSchema)
	}
}

func TestLoad_ShippedSchema(t *testing.T) {
	s, err := Load(filepath.Join("..", "..", DefaultPath))
	if err != nil {
		t.Fatal(err)
	}
	if s.DropColumn != "id" || s.TargetColumn != DefaultTarget {
		t.Errorf("DropColumn, TargetColumn = %q, %q", s.DropColumn, s.TargetColumn)
	}
	if len(s.Columns) != 12 {
		t.Errorf("len(Columns) = %d, want 12", len(s.Columns))
	}
	if got := s.Scaling("Annual_Premium"); got != MinMax {
		t.Errorf("Scaling(Annual_Premium) = %v, want %v", got, MinMax)
	}
}
