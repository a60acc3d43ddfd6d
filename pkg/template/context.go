package template

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// IsEmpty reports whether v is nil, the empty string, a zero number, false,
// or an empty map/slice -- the "empty" predicate used by default/empty.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() == 0
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Stringify converts a template leaf to its string form: integers/floats/
// bools use their canonical representation, maps and lists render as JSON
// (with callable leaves stripped), and nil is the empty string.
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		b, err := json.Marshal(stripCallables(v))
		if err != nil {
			return ""
		}
		return string(b)
	case reflect.Func:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// stripCallables walks a value produced by EnhancedEvent.TemplateContext
// (or user layout data) and removes any zero-argument function leaves so
// the result can be passed to encoding/json, which cannot marshal funcs.
func stripCallables(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			if isCallable(e) {
				continue
			}
			out[k] = stripCallables(e)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, e := range val {
			if isCallable(e) {
				continue
			}
			out = append(out, stripCallables(e))
		}
		return out
	default:
		return v
	}
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func
}

// invokeIfCallable calls v if it is a zero-argument function and returns
// its first result; otherwise v is returned unchanged. Field traversal
// invokes leaves this way ("a leaf that is a zero-argument function is
// invoked on read").
func invokeIfCallable(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.Type().NumIn() != 0 {
		return v
	}
	out := rv.Call(nil)
	if len(out) == 0 {
		return nil
	}
	return out[0].Interface()
}
