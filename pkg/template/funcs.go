package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Func is a template function implementation. args is the fully-evaluated
// argument list after any pipeline prepend has already been applied.
type Func func(args []any) (any, error)

// funcs is the fixed function vocabulary; unknown names are an error a
// caller may choose to surface (layout rendering) or suppress (header
// rendering, which falls back to the raw template string instead).
var funcs = map[string]Func{
	"toJson":       func(args []any) (any, error) { return callToJSON(args, false) },
	"toPrettyJson": func(args []any) (any, error) { return callToJSON(args, true) },
	"quote":        callQuote,
	"squote":       callSquote,
	"upper":        func(args []any) (any, error) { return callString(args, strings.ToUpper) },
	"lower":        func(args []any) (any, error) { return callString(args, strings.ToLower) },
	"trim":         func(args []any) (any, error) { return callString(args, strings.TrimSpace) },
	"replace":      callReplace,
	"contains":     callContains,
	"hasPrefix":    callHasPrefix,
	"hasSuffix":    callHasSuffix,
	"default":      callDefault,
	"empty":        callEmpty,
	"coalesce":     callCoalesce,
	"now":          callNow,
	"index":        callIndex,
}

func isFuncName(name string) bool {
	_, ok := funcs[name]
	return ok
}

func callFunc(name string, args []any) (any, error) {
	fn, ok := funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown template function %q", name)
	}
	return fn(args)
}

func arg(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

func callToJSON(args []any, pretty bool) (any, error) {
	v := stripCallables(arg(args, 0))
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func callQuote(args []any) (any, error) {
	return `"` + strings.ReplaceAll(Stringify(arg(args, 0)), `"`, `\"`) + `"`, nil
}

func callSquote(args []any) (any, error) {
	return `'` + strings.ReplaceAll(Stringify(arg(args, 0)), `'`, `\'`) + `'`, nil
}

func callString(args []any, f func(string) string) (any, error) {
	return f(Stringify(arg(args, 0))), nil
}

// callReplace implements "replace old new s" with the subject s always in
// args[0]: a pipeline continuation (s | replace old new) prepends s, and a
// direct call (replace old new s) has its tokens normalized to the same
// order at parse time (see normalizeDirectCallArgs).
func callReplace(args []any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("replace: want 3 args, got %d", len(args))
	}
	s, old, new_ := Stringify(args[0]), Stringify(args[1]), Stringify(args[2])
	return strings.ReplaceAll(s, old, new_), nil
}

func callContains(args []any) (any, error) {
	return strings.Contains(Stringify(arg(args, 0)), Stringify(arg(args, 1))), nil
}

func callHasPrefix(args []any) (any, error) {
	return strings.HasPrefix(Stringify(arg(args, 0)), Stringify(arg(args, 1))), nil
}

func callHasSuffix(args []any) (any, error) {
	return strings.HasSuffix(Stringify(arg(args, 0)), Stringify(arg(args, 1))), nil
}

// callDefault implements "default d v": returns d iff v is empty. Args are
// expected in (v, d) order -- see eval.go's evalPipeline, which always
// places the subject value first.
func callDefault(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("default: want 2 args, got %d", len(args))
	}
	v, d := args[0], args[1]
	if IsEmpty(v) {
		return d, nil
	}
	return v, nil
}

func callEmpty(args []any) (any, error) {
	return IsEmpty(arg(args, 0)), nil
}

func callCoalesce(args []any) (any, error) {
	for _, a := range args {
		if !IsEmpty(a) {
			return a, nil
		}
	}
	return nil, nil
}

func callNow(args []any) (any, error) {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), nil
}

func callIndex(args []any) (any, error) {
	container, key := arg(args, 0), arg(args, 1)
	if container == nil {
		return nil, nil
	}
	switch c := container.(type) {
	case map[string]any:
		return c[Stringify(key)], nil
	case []any:
		idx, ok := toInt(key)
		if !ok || idx < 0 || idx >= len(c) {
			return nil, nil
		}
		return c[idx], nil
	default:
		return nil, nil
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err == nil {
			return i, true
		}
	}
	return 0, false
}
