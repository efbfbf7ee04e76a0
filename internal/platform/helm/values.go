package helm

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge combines multiple Values maps with later maps taking precedence.
// Nested maps are merged key by key; any other value is replaced.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		result = mergeMaps(result, m)
	}
	return result
}

func mergeMaps(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if next, ok := asMap(v); ok {
			if current, ok := asMap(out[k]); ok {
				out[k] = mergeMaps(current, next)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Values:
		return m, true
	default:
		return nil, false
	}
}

// normalize converts nested Values and Go scalar types into the plain JSON
// shapes helm's value coalescing expects.
func (v Values) normalize() (map[string]any, error) {
	if len(v) == 0 {
		return map[string]any{}, nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode values: %w", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode values: %w", err)
	}
	return out, nil
}
