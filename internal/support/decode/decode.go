package decode

import "strings"

func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func StringOrEmpty(v any) string {
	s, _ := String(v)
	return s
}

func NonEmptyTrimmedString(v any) (string, bool) {
	s, ok := String(v)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func StringFromMap(values map[string]any, key string) (string, bool) {
	v, ok := values[key]
	if !ok {
		return "", false
	}
	return String(v)
}

func StringOrEmptyFromMap(values map[string]any, key string) string {
	v, ok := values[key]
	if !ok {
		return ""
	}
	return StringOrEmpty(v)
}

func NonEmptyTrimmedStringFromMap(values map[string]any, key string) (string, bool) {
	v, ok := values[key]
	if !ok {
		return "", false
	}
	return NonEmptyTrimmedString(v)
}

func Int(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		return int(x), true
	case float32:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func IntOrZero(v any) int {
	n, ok := Int(v)
	if !ok {
		return 0
	}
	return n
}

func IntFromMap(values map[string]any, key string) (int, bool) {
	v, ok := values[key]
	if !ok {
		return 0, false
	}
	return Int(v)
}

func Bool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func BoolOrFalse(v any) bool {
	b, _ := Bool(v)
	return b
}

func BoolOrFalseFromMap(values map[string]any, key string) bool {
	v, ok := values[key]
	if !ok {
		return false
	}
	return BoolOrFalse(v)
}

func Map(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func MapFromMap(values map[string]any, key string) (map[string]any, bool) {
	v, ok := values[key]
	if !ok {
		return nil, false
	}
	return Map(v)
}

func Slice(v any) []any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	return items
}

func SliceFromMap(values map[string]any, key string) []any {
	v, ok := values[key]
	if !ok {
		return nil
	}
	return Slice(v)
}

// MapSlice returns the object elements of a JSON array value, skipping
// anything that is not an object.
func MapSlice(v any) []map[string]any {
	items := Slice(v)
	result := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := Map(item); ok {
			result = append(result, m)
		}
	}
	return result
}

func MapSliceFromMap(values map[string]any, key string) []map[string]any {
	v, ok := values[key]
	if !ok {
		return nil
	}
	return MapSlice(v)
}
