package tables

import "github.com/apache/arrow/go/v18/arrow"

const (
	CSVExt     = ".csv"
	ParquetExt = ".parquet"
	JSONLExt   = ".jsonl"
	GzipExt    = ".gz"

	// TrainName and TestName are the base names of the split feature store
	// files and of the transformed arrays.
	TrainName = "train"
	TestName  = "test"

	PreprocessingName = "preprocessing.cbor"
	ManifestName      = "manifest.json"
)

const (
	IdFieldName       = "id"
	GenderFieldName   = "Gender"
	ResponseFieldName = "Response"
)

// Insurance is the raw cross-sell record as exported from the feature store.
// ReadTable pins these types when the columns appear so type inference on the
// first rows cannot, for example, read Region_Code as an integer in one file
// and a float in another.
var Insurance = arrow.NewSchema([]arrow.Field{
	{Name: IdFieldName,
		Type: arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(
			"Customer identifier, dropped before training",
		).Build(),
	},
	{Name: GenderFieldName,
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"Female or Male",
		).Build(),
		Nullable: true,
	},
	{Name: "Age",
		Type: arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(
			"Age of the customer in years",
		).Build(),
		Nullable: true,
	},
	{Name: "Driving_License",
		Type: arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(
			"1 if the customer holds a driving license",
		).Build(),
		Nullable: true,
	},
	{Name: "Region_Code",
		Type: arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(
			"Code of the customer's region",
		).Build(),
		Nullable: true,
	},
	{Name: "Previously_Insured",
		Type: arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(
			"1 if the customer already has vehicle insurance",
		).Build(),
		Nullable: true,
	},
	{Name: "Vehicle_Age",
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"One of < 1 Year, 1-2 Year, > 2 Years",
		).Build(),
		Nullable: true,
	},
	{Name: "Vehicle_Damage",
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"Yes if the vehicle was damaged in the past",
		).Build(),
		Nullable: true,
	},
	{Name: "Annual_Premium",
		Type: arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(
			"Amount the customer pays per year",
		).Build(),
		Nullable: true,
	},
	{Name: "Policy_Sales_Channel",
		Type: arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(
			"Anonymised code of the outreach channel",
		).Build(),
		Nullable: true,
	},
	{Name: "Vintage",
		Type: arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(
			"Days the customer has been associated with the company",
		).Build(),
		Nullable: true,
	},
	{Name: ResponseFieldName,
		Type: arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(
			"1 if the customer is interested in vehicle insurance",
		).Build(),
		Nullable: true,
	},
}, NewMetadataBuilder().Comment(
	"Raw cross-sell records from the feature store",
).BuildReference())

// ColumnTypes returns the name to type mapping of the fields of s.
func ColumnTypes(s *arrow.Schema) map[string]arrow.DataType {
	result := make(map[string]arrow.DataType, s.NumFields())
	for _, field := range s.Fields() {
		result[field.Name] = field.Type
	}
	return result
}

// FieldNames returns the field names of s in order.
func FieldNames(s *arrow.Schema) []string {
	result := make([]string, s.NumFields())
	for i, field := range s.Fields() {
		result[i] = field.Name
	}
	return result
}

// Matrix describes a transformed feature array: one float64 field per
// feature, in pipeline order, with the label last. roles parallels columns
// and is recorded as each field's "role" metadata.
func Matrix(columns, roles []string) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		b := NewMetadataBuilder()
		if i < len(roles) {
			b.Add(role, roles[i])
		}
		fields[i] = arrow.Field{
			Name:     name,
			Type:     arrow.PrimitiveTypes.Float64,
			Metadata: b.Build(),
		}
	}

	return arrow.NewSchema(fields, NewMetadataBuilder().Comment(
		"Scaled and balanced features with the label in the last column",
	).BuildReference())
}

// Roles reads back the roles recorded by Matrix.
func Roles(s *arrow.Schema) []string {
	result := make([]string, s.NumFields())
	for i, field := range s.Fields() {
		result[i] = Lookup(field.Metadata, role)
	}
	return result
}
