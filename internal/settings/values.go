package settings

import (
	"fmt"

	"parcel/internal/pipeline"
)

// Values is a plugin's resolved settings, keyed by setting name.
type Values map[string]*Setting

// Resolve merges a plugin's declared schema with configured values,
// validating types and applying defaults for anything not configured.
// Configured keys with no matching declaration are rejected.
func Resolve(schema map[string]*Schema, configured map[string]any) (Values, error) {
	for key := range configured {
		if _, ok := schema[key]; !ok {
			return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "",
				fmt.Sprintf("setting %q is not declared by the plugin", key), nil)
		}
	}
	values := make(Values, len(schema))
	for name, decl := range schema {
		setting, err := New(name, configured[name], decl)
		if err != nil {
			return nil, err
		}
		values[name] = setting
	}
	return values, nil
}

// Get returns the named setting.
func (v Values) Get(name string) (*Setting, bool) {
	setting, ok := v[name]
	return setting, ok
}

// Clone deep-copies every setting so the copy can be mutated freely.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for name, setting := range v {
		out[name] = setting.Clone()
	}
	return out
}

// String returns the named setting's string value, or "" when absent.
func (v Values) String(name string) string {
	if setting, ok := v[name]; ok {
		return setting.StringValue()
	}
	return ""
}

// Bool returns the named setting's bool value, or false when absent.
func (v Values) Bool(name string) bool {
	if setting, ok := v[name]; ok {
		return setting.BoolValue()
	}
	return false
}

// Int returns the named setting's int value, or 0 when absent.
func (v Values) Int(name string) int {
	if setting, ok := v[name]; ok {
		return setting.IntValue()
	}
	return 0
}

// StringList returns the named setting's list value.
func (v Values) StringList(name string) []string {
	if setting, ok := v[name]; ok {
		return setting.StringList()
	}
	return nil
}

// StringMap returns the named open-dict setting as a string map.
func (v Values) StringMap(name string) map[string]string {
	if setting, ok := v[name]; ok {
		return setting.StringMap()
	}
	return nil
}
