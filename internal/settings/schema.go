package settings

import (
	"fmt"

	"parcel/internal/pipeline"
)

// Kind names the declared type of a setting value.
const (
	KindString   = "string"
	KindInt      = "int"
	KindFloat    = "float"
	KindBool     = "bool"
	KindList     = "list"
	KindDict     = "dict"
	KindPath     = "path"
	KindTemplate = "template"
)

// Schema declares a single setting: its type, default, and, for composite
// settings, the shape of its children.
//
// Dict settings support two shapes. When Items is populated the dict is
// strict: the set of valid sub-keys is fixed and each is independently
// typed. When Values is populated instead, the dict is open: arbitrary keys,
// all sharing the one declared sub-schema. List settings always use Values
// for their element schema.
type Schema struct {
	Type         string             `yaml:"type"`
	DefaultValue any                `yaml:"default_value,omitempty"`
	Description  string             `yaml:"description,omitempty"`
	Items        map[string]*Schema `yaml:"items,omitempty"`
	Values       *Schema            `yaml:"values,omitempty"`
}

// checkValue validates a raw value against the schema's declared type.
// Composite children are validated when their Setting wrappers are built.
func (s *Schema) checkValue(name string, value any) error {
	if value == nil {
		return nil
	}
	switch s.Type {
	case KindString, KindPath, KindTemplate, "":
		if _, ok := value.(string); !ok {
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "", fmt.Sprintf("setting %q expects a string, got %T", name, value), nil)
		}
	case KindInt:
		switch value.(type) {
		case int, int64:
		default:
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "", fmt.Sprintf("setting %q expects an int, got %T", name, value), nil)
		}
	case KindFloat:
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "", fmt.Sprintf("setting %q expects a float, got %T", name, value), nil)
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "", fmt.Sprintf("setting %q expects a bool, got %T", name, value), nil)
		}
	case KindList:
		if _, ok := value.([]any); !ok {
			if _, okStrings := value.([]string); !okStrings {
				return pipeline.Wrap(pipeline.ErrConfiguration, "", "", fmt.Sprintf("setting %q expects a list, got %T", name, value), nil)
			}
		}
	case KindDict:
		if _, ok := value.(map[string]any); !ok {
			return pipeline.Wrap(pipeline.ErrConfiguration, "", "", fmt.Sprintf("setting %q expects a dict, got %T", name, value), nil)
		}
	default:
		return pipeline.Wrap(pipeline.ErrConfiguration, "", "", fmt.Sprintf("setting %q declares unknown type %q", name, s.Type), nil)
	}
	return nil
}

// deepCopyValue copies the nested maps and slices that settings values are
// built from so cached baselines cannot be mutated through a handed-out copy.
func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, sub := range v {
			out[key] = deepCopyValue(sub)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, sub := range v {
			out[i] = deepCopyValue(sub)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return v
	}
}
