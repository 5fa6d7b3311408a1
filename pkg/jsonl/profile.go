package jsonl

import (
	"fmt"
	"slices"
)

// Profile accumulates a Field for every key of a stream of flat documents
// without keeping the values. A key missing from a document counts as null.
type Profile struct {
	skip   map[string]bool
	names  []string
	fields map[string]Field
	rows   int
}

// NewProfile returns an empty Profile ignoring the keys in skip.
func NewProfile(skip ...string) *Profile {
	p := &Profile{
		skip:   make(map[string]bool, len(skip)),
		fields: make(map[string]Field),
	}
	for _, s := range skip {
		p.skip[s] = true
	}
	return p
}

// Add records one document.
func (p *Profile) Add(doc map[string]any) error {
	return p.add(doc, nil)
}

// add records doc, calling onValue with each kept key and its normalized
// value, and onValue(key, nil) for every known key doc lacks.
func (p *Profile) add(doc map[string]any, onValue func(key string, value any)) error {
	for key, value := range doc {
		if p.skip[key] {
			continue
		}
		if s, ok := value.(string); ok && s == NullString {
			value = nil
		}

		field, ok := p.fields[key]
		if !ok {
			field = &EmptyField{Nulls: p.rows}
			p.names = append(p.names, key)
		}

		field, err := field.Add(value)
		if err != nil {
			return fmt.Errorf("row %d key %q: %w", p.rows, key, err)
		}
		p.fields[key] = field
		if onValue != nil {
			onValue(key, value)
		}
	}

	for _, name := range p.names {
		if _, ok := doc[name]; ok {
			continue
		}
		field, err := p.fields[name].Add(nil)
		if err != nil {
			return err
		}
		p.fields[name] = field
		if onValue != nil {
			onValue(name, nil)
		}
	}

	p.rows++
	return nil
}

// Rows is the number of documents added.
func (p *Profile) Rows() int {
	return p.rows
}

// Field returns the accumulated analysis for a key.
func (p *Profile) Field(name string) (Field, bool) {
	f, ok := p.fields[name]
	return f, ok
}

// Keys returns every key seen, sorted.
func (p *Profile) Keys() []string {
	keys := slices.Clone(p.names)
	slices.Sort(keys)
	return keys
}

// Lines describes each key as "key;field", sorted by key.
func (p *Profile) Lines() []string {
	keys := p.Keys()
	lines := make([]string, len(keys))
	for i, key := range keys {
		lines[i] = fmt.Sprintf("%s;%s", key, p.fields[key])
	}
	return lines
}
