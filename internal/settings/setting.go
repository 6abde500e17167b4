package settings

import (
	"fmt"
	"sort"

	"parcel/internal/pipeline"
)

// Setting pairs a schema with a concrete value. Composite settings (lists
// and dicts) expose their elements as child Settings that are rebuilt
// whenever the parent's value is reassigned, so child accessors always
// reflect the current value.
type Setting struct {
	name   string
	schema *Schema
	value  any

	listChildren []*Setting
	dictChildren map[string]*Setting
}

// New builds a setting from its schema and a configured value. A nil value
// falls back to the schema default. The value is deep-copied on the way in.
func New(name string, value any, schema *Schema) (*Setting, error) {
	if schema == nil {
		schema = &Schema{Type: KindString}
	}
	s := &Setting{name: name, schema: schema}
	if value == nil {
		value = schema.DefaultValue
	}
	if err := s.SetValue(value); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Setting) Name() string        { return s.name }
func (s *Setting) Type() string        { return s.schema.Type }
func (s *Setting) Description() string { return s.schema.Description }
func (s *Setting) Default() any        { return deepCopyValue(s.schema.DefaultValue) }
func (s *Setting) Schema() *Schema     { return s.schema }

// Value returns the raw value. Mutating a returned composite does not
// update the child settings; use SetValue to reassign.
func (s *Setting) Value() any { return s.value }

// SetValue validates the value against the schema, stores a deep copy, and
// rebuilds the child settings for composite types.
func (s *Setting) SetValue(value any) error {
	if err := s.schema.checkValue(s.name, value); err != nil {
		return err
	}
	s.value = deepCopyValue(value)
	s.listChildren = nil
	s.dictChildren = nil
	switch s.schema.Type {
	case KindList:
		return s.buildListChildren()
	case KindDict:
		return s.buildDictChildren()
	}
	return nil
}

func (s *Setting) buildListChildren() error {
	elems := asList(s.value)
	childSchema := s.schema.Values
	if childSchema == nil {
		childSchema = &Schema{Type: KindString}
	}
	s.listChildren = make([]*Setting, 0, len(elems))
	for i, elem := range elems {
		child, err := New(fmt.Sprintf("%s[%d]", s.name, i), elem, childSchema)
		if err != nil {
			return err
		}
		s.listChildren = append(s.listChildren, child)
	}
	return nil
}

func (s *Setting) buildDictChildren() error {
	raw, _ := s.value.(map[string]any)
	s.dictChildren = make(map[string]*Setting, len(raw))
	if len(s.schema.Items) > 0 {
		// Strict shape: every declared key exists as a child, and keys
		// outside the declaration are rejected.
		for key := range raw {
			if _, ok := s.schema.Items[key]; !ok {
				return pipeline.Wrap(pipeline.ErrConfiguration, "", "",
					fmt.Sprintf("setting %q has no declared sub-setting %q", s.name, key), nil)
			}
		}
		for key, childSchema := range s.schema.Items {
			child, err := New(key, raw[key], childSchema)
			if err != nil {
				return err
			}
			s.dictChildren[key] = child
		}
		return nil
	}
	childSchema := s.schema.Values
	if childSchema == nil {
		childSchema = &Schema{Type: KindString}
	}
	for key, value := range raw {
		child, err := New(key, value, childSchema)
		if err != nil {
			return err
		}
		s.dictChildren[key] = child
	}
	return nil
}

// Child returns the named sub-setting of a dict setting.
func (s *Setting) Child(key string) (*Setting, bool) {
	child, ok := s.dictChildren[key]
	return child, ok
}

// Index returns the i'th element of a list setting, or nil when out of range.
func (s *Setting) Index(i int) *Setting {
	if i < 0 || i >= len(s.listChildren) {
		return nil
	}
	return s.listChildren[i]
}

// Len reports the number of children of a composite setting.
func (s *Setting) Len() int {
	if s.dictChildren != nil {
		return len(s.dictChildren)
	}
	return len(s.listChildren)
}

// Keys lists a dict setting's child keys in sorted order.
func (s *Setting) Keys() []string {
	keys := make([]string, 0, len(s.dictChildren))
	for key := range s.dictChildren {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies the setting. The schema is shared; schemas are
// treated as immutable once declared.
func (s *Setting) Clone() *Setting {
	clone, err := New(s.name, deepCopyValue(s.value), s.schema)
	if err != nil {
		// The value already passed validation once.
		panic(fmt.Sprintf("settings: clone of %q failed: %v", s.name, err))
	}
	return clone
}

// String renders the current value for logs and reports.
func (s *Setting) String() string {
	return fmt.Sprintf("%v", s.value)
}

// StringValue returns the value as a string, or "" when unset or not a string.
func (s *Setting) StringValue() string {
	v, _ := s.value.(string)
	return v
}

// BoolValue returns the value as a bool, or false when unset.
func (s *Setting) BoolValue() bool {
	v, _ := s.value.(bool)
	return v
}

// IntValue returns the value as an int, tolerating int64 decodings.
func (s *Setting) IntValue() int {
	switch v := s.value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// StringList returns the value as a string slice. Elements of an []any
// value that are not strings are skipped.
func (s *Setting) StringList() []string {
	switch v := s.value.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if str, ok := elem.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// StringMap returns an open dict setting's children as a string map.
func (s *Setting) StringMap() map[string]string {
	out := make(map[string]string, len(s.dictChildren))
	for key, child := range s.dictChildren {
		out[key] = child.StringValue()
	}
	return out
}

func asList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = elem
		}
		return out
	}
	return nil
}
