package resolver

import (
	"encoding/json"
	"fmt"
)

// DeepMerge copies src into dst, merging nested objects key by key. Any other
// value in src replaces the one in dst. dst is modified and returned.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		sv, sok := v.(map[string]any)
		dv, dok := dst[k].(map[string]any)
		if sok && dok {
			DeepMerge(dv, sv)
			continue
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

// DeepEqual compares decoded JSON values structurally.
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !DeepEqual(x, y) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	switch b.(type) {
	case map[string]any, []any:
		return false
	}
	return a == b
}

// RemoveDefaults drops every key of obj whose value equals the one in
// defaults. Nested objects are pruned recursively and vanish when emptied.
func RemoveDefaults(obj, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		dv, ok := defaults[k]
		if !ok {
			out[k] = v
			continue
		}
		vm, vok := v.(map[string]any)
		dm, dok := dv.(map[string]any)
		if vok && dok {
			if pruned := RemoveDefaults(vm, dm); len(pruned) > 0 {
				out[k] = pruned
			}
			continue
		}
		if !DeepEqual(v, dv) {
			out[k] = v
		}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	}
	return v
}

// parseJSON decodes raw text; text that is not JSON is kept as a string.
func parseJSON(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func parseObject(field, raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	obj, ok := parseJSON(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s is not a JSON object", field)
	}
	return obj, nil
}

// normalize gives v the shape encoding/json would decode it to, so values
// built from Go types compare equal to values parsed from stored JSON.
func normalize(v map[string]any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
