package template

import (
	"strconv"
	"strings"
)

// Lookup walks a dot-separated path through nested documents.
// Maps are indexed by key and slices by position. The boolean is false when
// any segment of the path does not exist.
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	current := data

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = value
		case map[string]string:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

// Value is Lookup without the presence flag; missing paths yield nil.
func Value(data any, path string) any {
	value, _ := Lookup(data, path)

	return value
}
