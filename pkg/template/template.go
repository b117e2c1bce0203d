// Package template resolves {{path}} placeholders in workflow configuration.
package template

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Interpolate resolves placeholders when tmpl is a string and returns any other value unchanged.
func Interpolate(tmpl any, data map[string]any) any {
	text, ok := tmpl.(string)
	if !ok {
		return tmpl
	}

	return InterpolateString(text, data)
}

// InterpolateString replaces every {{path}} token with the value found at path in data.
// Tokens whose path is missing or resolves to a falsy value (nil, "", false, 0)
// are left as written.
func InterpolateString(text string, data map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return placeholder.ReplaceAllStringFunc(text, func(token string) string {
		path := strings.TrimSpace(token[2 : len(token)-2])

		value, found := Lookup(data, path)
		if !found || isEmpty(value) {
			return token
		}

		return Stringify(value)
	})
}

// Stringify renders a resolved value as text. Maps and slices are rendered as JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any, map[string]string, []string:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(encoded)
	}

	text, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	return text
}

// isEmpty reports the falsy values that leave a token unresolved: nil, "",
// false, numeric zero and NaN.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case map[string]any, []any, map[string]string, []string:
		return false
	}

	number, err := cast.ToFloat64E(value)
	if err != nil {
		return false
	}

	return number == 0 || math.IsNaN(number)
}
