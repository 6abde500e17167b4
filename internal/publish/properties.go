package publish

// Property keys the framework itself reads or writes. Collectors are free
// to stash anything else alongside these.
const (
	PropPath              = "path"
	PropCollectedFilePath = "collected_file_path"
	PropIsSequence        = "is_sequence"
	PropSequencePaths     = "sequence_paths"
	PropPublishPath       = "publish_path"
	PropPublishName       = "publish_name"
	PropPublishVersion    = "publish_version"
	PropPublishType       = "publish_type"
	PropFields            = "fields"
	PropSourceStale       = "source_stale"
)

// Properties is the open key-value bag collectors populate on items.
type Properties map[string]any

// Get returns the raw value for key.
func (p Properties) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// Has reports whether key is set.
func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Set stores a value, replacing any previous value for the key.
func (p Properties) Set(key string, value any) {
	p[key] = value
}

// SetDefault stores a value only when the key is not already set, so a
// later collection pass cannot silently clobber what an earlier one wrote.
func (p Properties) SetDefault(key string, value any) {
	if _, ok := p[key]; !ok {
		p[key] = value
	}
}

// Merge folds other into p key by key. Existing keys are kept; merging
// adds, it does not replace.
func (p Properties) Merge(other Properties) {
	for key, value := range other {
		p.SetDefault(key, value)
	}
}

// Delete removes a key.
func (p Properties) Delete(key string) {
	delete(p, key)
}

// String returns the value for key as a string, or "" when absent or
// not a string.
func (p Properties) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// Bool returns the value for key as a bool.
func (p Properties) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Int returns the value for key as an int, tolerating the int64 and
// float64 shapes produced by deserialization.
func (p Properties) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Strings returns the value for key as a string slice.
func (p Properties) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Map returns the value for key as a nested map.
func (p Properties) Map(key string) map[string]any {
	v, _ := p[key].(map[string]any)
	return v
}

// Clone deep-copies the bag, including nested maps and slices.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for key, value := range p {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, sub := range v {
			out[key] = cloneValue(sub)
		}
		return out
	case Properties:
		return map[string]any(v.Clone())
	case []any:
		out := make([]any, len(v))
		for i, sub := range v {
			out[i] = cloneValue(sub)
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
