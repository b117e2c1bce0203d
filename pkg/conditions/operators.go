package conditions

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/dukex/crmflow/pkg/template"
)

// looseEqual treats numbers and numeric strings as the same value, so 1, 1.0
// and "1" are equal. nil only equals nil.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if (isNumber(a) || isNumber(b)) && isNumberOrString(a) && isNumberOrString(b) {
		fa, errA := cast.ToFloat64E(a)
		fb, errB := cast.ToFloat64E(b)

		if errA == nil && errB == nil {
			return fa == fb
		}

		return false
	}

	return reflect.DeepEqual(normalize(a), normalize(b))
}

func contains(fieldValue, expected any) bool {
	return strings.Contains(template.Stringify(fieldValue), template.Stringify(expected))
}

func compare(fieldValue, expected any, cmp func(a, b float64) bool) bool {
	if fieldValue == nil || expected == nil {
		return false
	}

	a, err := cast.ToFloat64E(fieldValue)
	if err != nil {
		return false
	}

	b, err := cast.ToFloat64E(expected)
	if err != nil {
		return false
	}

	return cmp(a, b)
}

func sequence(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return v, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

// member uses strict equality, except that numbers of different Go types compare by value.
func member(value any, items []any) bool {
	needle := normalize(value)

	for _, item := range items {
		if reflect.DeepEqual(needle, normalize(item)) {
			return true
		}
	}

	return false
}

func normalize(value any) any {
	if !isNumber(value) {
		return value
	}

	f, err := cast.ToFloat64E(value)
	if err != nil {
		return value
	}

	return f
}

func isNumber(value any) bool {
	if _, ok := value.(json.Number); ok {
		return true
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isNumberOrString(value any) bool {
	if isNumber(value) {
		return true
	}

	_, ok := value.(string)

	return ok
}
