package encode

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
	"github.com/willbeason/crosssell/pkg/schema"
)

func rawTable() frame.Table {
	return frame.MustTable(
		frame.NewString("Gender", "Male", "Female", "Male"),
		frame.NewInt("Age", 35, 52, 23),
		frame.NewInt("id", 7, 8, 9),
		frame.NewString("Vehicle_Age", "< 1 Year", "1-2 Year", "1-2 Year"),
		frame.NewInt("Response", 0, 1, 0),
	)
}

func TestEncoder_Encode(t *testing.T) {
	e := NewEncoder(&schema.Schema{DropColumn: "id", TargetColumn: "Response"})

	got, err := e.Encode(rawTable())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	wantNames := []string{"Gender", "Age", "Vehicle_Age_It_1_Year", "Response"}
	if diff := cmp.Diff(wantNames, got.Names()); diff != "" {
		t.Errorf("Encode() names (-want +got):\n%s", diff)
	}

	wantRow := map[string]any{
		"Gender":                1.0,
		"Age":                   35.0,
		"Vehicle_Age_It_1_Year": 1.0,
		"Response":              0.0,
	}
	if diff := cmp.Diff(wantRow, got.Row(0)); diff != "" {
		t.Errorf("Encode() row 0 (-want +got):\n%s", diff)
	}

	for _, c := range got.Columns() {
		if !c.Kind.Numeric() {
			t.Errorf("column %q is %v after encoding", c.Name, c.Kind)
		}
	}
	if c, _ := got.Column("Vehicle_Age_It_1_Year"); c.Kind != frame.Int {
		t.Errorf("indicator kind = %v, want %v", c.Kind, frame.Int)
	}
}

func TestEncoder_InputUnchanged(t *testing.T) {
	in := rawTable()
	e := NewEncoder(&schema.Schema{DropColumn: "id"})

	_, err := e.Encode(in)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(rawTable().Names(), in.Names()); diff != "" {
		t.Errorf("input names changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rawTable().Row(0), in.Row(0)); diff != "" {
		t.Errorf("input row changed (-want +got):\n%s", diff)
	}
}

func TestDropIdentifier_Idempotent(t *testing.T) {
	tables := []frame.Table{
		rawTable(),
		frame.MustTable(frame.NewInt("Age", 1, 2)),
	}

	for _, in := range tables {
		once := DropIdentifier(in, "id")
		twice := DropIdentifier(once, "id")
		if diff := cmp.Diff(once.Names(), twice.Names()); diff != "" {
			t.Errorf("DropIdentifier twice (-once +twice):\n%s", diff)
		}
		if once.Rows() != twice.Rows() {
			t.Errorf("rows: once %d, twice %d", once.Rows(), twice.Rows())
		}
	}
}

func TestMapBinary_NoIndicatorsForMappedColumn(t *testing.T) {
	mapped, err := MapBinary(rawTable(), "Gender", GenderMapping)
	if err != nil {
		t.Fatal(err)
	}

	expanded, err := ExpandCategoricals(mapped)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range expanded.Names() {
		if strings.HasPrefix(name, "Gender_") {
			t.Errorf("indicator %q created for mapped column", name)
		}
	}
	if !expanded.Has("Gender") {
		t.Error("mapped column Gender missing after expansion")
	}
}

func TestMapBinary_Errors(t *testing.T) {
	tests := []struct {
		name   string
		table  frame.Table
		column string
	}{
		{
			name:   "unknown value",
			table:  frame.MustTable(frame.NewString("Gender", "Male", "Other")),
			column: "Gender",
		},
		{
			name:   "missing column",
			table:  frame.MustTable(frame.NewInt("Age", 1)),
			column: "Gender",
		},
		{
			name:   "numeric column",
			table:  frame.MustTable(frame.NewInt("Gender", 1)),
			column: "Gender",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapBinary(tt.table, tt.column, GenderMapping)
			if !errors.Is(err, errs.ErrSchema) {
				t.Errorf("MapBinary() error = %v, want %v", err, errs.ErrSchema)
			}
		})
	}
}

func TestExpandCategoricals(t *testing.T) {
	in := frame.MustTable(
		frame.NewInt("Age", 20, 30, 40, 50),
		frame.NewString("Vehicle_Age", "> 2 Years", "1-2 Year", "< 1 Year", ""),
		frame.NewString("Vehicle_Damage", "Yes", "No", "Yes", "No"),
		frame.NewString("Constant", "a", "a", "a", "a"),
	)

	got, err := ExpandCategoricals(in)
	if err != nil {
		t.Fatal(err)
	}

	wantNames := []string{
		"Age",
		"Vehicle_Age_< 1 Year",
		"Vehicle_Age_> 2 Years",
		"Vehicle_Damage_Yes",
	}
	if diff := cmp.Diff(wantNames, got.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}

	want := map[string][]float64{
		"Vehicle_Age_< 1 Year":  {0, 0, 1, 0},
		"Vehicle_Age_> 2 Years": {1, 0, 0, 0},
		"Vehicle_Damage_Yes":    {1, 0, 1, 0},
	}
	for name, values := range want {
		c, _ := got.Column(name)
		if diff := cmp.Diff(values, c.Floats); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}
}

func TestNormalizeIndicatorNames(t *testing.T) {
	in := frame.MustTable(
		frame.NewInt("Vehicle_Age_< 1 Year", 1, 0),
		frame.NewFloat("Vehicle_Damage_Yes", 0, 1),
	)

	got, err := NormalizeIndicatorNames(in, VehicleAgeRenames, IndicatorColumns)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"Vehicle_Age_It_1_Year", "Vehicle_Damage_Yes"}, got.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if c, _ := got.Column("Vehicle_Damage_Yes"); c.Kind != frame.Int {
		t.Errorf("Vehicle_Damage_Yes kind = %v, want %v", c.Kind, frame.Int)
	}
}

func TestNormalizeIndicatorNames_Collision(t *testing.T) {
	in := frame.MustTable(
		frame.NewInt("Vehicle_Age_< 1 Year", 1),
		frame.NewInt("Vehicle_Age_It_1_Year", 0),
	)

	_, err := NormalizeIndicatorNames(in, VehicleAgeRenames, nil)
	if !errors.Is(err, errs.ErrSchema) {
		t.Errorf("NormalizeIndicatorNames() error = %v, want %v", err, errs.ErrSchema)
	}
}
