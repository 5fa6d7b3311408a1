package tables

import "github.com/apache/arrow/go/v18/arrow"

const (
	comment = "comment"
	role    = "role"
)

// MetadataBuilder accumulates key/value pairs for Arrow field and schema
// metadata.
type MetadataBuilder struct {
	keys   []string
	values []string
}

func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{}
}

func (b *MetadataBuilder) Add(key, value string) *MetadataBuilder {
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	return b
}

// Comment adds a human readable description.
func (b *MetadataBuilder) Comment(value string) *MetadataBuilder {
	return b.Add(comment, value)
}

func (b *MetadataBuilder) Build() arrow.Metadata {
	return arrow.NewMetadata(b.keys, b.values)
}

func (b *MetadataBuilder) BuildReference() *arrow.Metadata {
	result := b.Build()
	return &result
}

// Lookup returns the value stored under key, or "" if there is none.
func Lookup(md arrow.Metadata, key string) string {
	i := md.FindKey(key)
	if i < 0 {
		return ""
	}
	return md.Values()[i]
}

// CommentOf returns the description attached to a field.
func CommentOf(field arrow.Field) string {
	return Lookup(field.Metadata, comment)
}
