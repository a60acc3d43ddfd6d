package template

import (
	"fmt"
	"strings"
)

// Render parses (or reuses a cached parse of) text and evaluates it against
// ctx, returning the rendered string.
func Render(text string, ctx map[string]any) (string, error) {
	tmpl, err := Parse(text)
	if err != nil {
		return "", err
	}
	return tmpl.Eval(ctx)
}

// Eval evaluates an already-parsed template against ctx.
func (t *Template) Eval(ctx map[string]any) (string, error) {
	var sb strings.Builder
	for _, seg := range t.segments {
		if !seg.isExpr {
			sb.WriteString(seg.text)
			continue
		}
		v, err := evalPipeline(seg.expr, ctx)
		if err != nil {
			return "", err
		}
		sb.WriteString(Stringify(v))
	}
	return sb.String(), nil
}

func evalPipeline(p *pipeline, ctx map[string]any) (any, error) {
	v, err := evalStage(p.source, ctx)
	if err != nil {
		return nil, err
	}
	for _, cs := range p.calls {
		args := make([]any, 0, len(cs.args)+1)
		args = append(args, v)
		for _, a := range cs.args {
			args = append(args, evalArg(a, ctx))
		}
		v, err = callFunc(cs.name, args)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func evalStage(s stage, ctx map[string]any) (any, error) {
	switch s.kind {
	case kindFieldPath:
		return traverse(ctx, s.path), nil
	case kindLiteral:
		return s.literal, nil
	case kindCall:
		args := make([]any, 0, len(s.call.args))
		for _, a := range s.call.args {
			args = append(args, evalArg(a, ctx))
		}
		return callFunc(s.call.name, args)
	default:
		return nil, fmt.Errorf("unknown stage kind")
	}
}

func evalArg(a argNode, ctx map[string]any) any {
	if a.isPath {
		return traverse(ctx, a.path)
	}
	return a.literal
}

func traverse(ctx map[string]any, path []string) any {
	var cur any = ctx
	for _, key := range path {
		if cur == nil {
			return nil
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, exists := m[key]
		if !exists {
			return nil
		}
		cur = invokeIfCallable(v)
	}
	return invokeIfCallable(cur)
}

// RenderLayout walks a nested map/list structure, rendering every string
// leaf as a template and recursing into maps and lists. Non-string scalar
// leaves pass through unchanged. An error from any leaf aborts the walk.
func RenderLayout(layout any, ctx map[string]any) (any, error) {
	switch v := layout.(type) {
	case string:
		return Render(v, ctx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			rendered, err := RenderLayout(e, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("renderLayout: non-string map key %v", k)
			}
			rendered, err := RenderLayout(e, ctx)
			if err != nil {
				return nil, err
			}
			out[ks] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			rendered, err := RenderLayout(e, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}
