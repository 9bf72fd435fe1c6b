package template

import (
	"fmt"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// span is one compiled piece of a template: either literal text or an
// expression.
type span struct {
	literal string
	expr    node
}

// Template is a compiled template. Compile once at definition load,
// render many times.
type Template struct {
	src   string
	spans []span
}

// CompileFunc compiles a template source, typically backed by a cache.
type CompileFunc func(src string) (*Template, error)

// HasExpr reports whether the string contains a template span.
func HasExpr(s string) bool {
	return strings.Contains(s, openDelim)
}

// Parse compiles a template string. Malformed spans are load-time
// errors so a broken definition never reaches dispatch.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	rest := src
	for {
		open := strings.Index(rest, openDelim)
		if open < 0 {
			if rest != "" {
				t.spans = append(t.spans, span{literal: rest})
			}
			break
		}
		if open > 0 {
			t.spans = append(t.spans, span{literal: rest[:open]})
		}
		rest = rest[open+len(openDelim):]
		closing := strings.Index(rest, closeDelim)
		if closing < 0 {
			return nil, fmt.Errorf("template: unclosed span in %q", src)
		}
		exprSrc := strings.TrimSpace(rest[:closing])
		rest = rest[closing+len(closeDelim):]
		if exprSrc == "" {
			return nil, fmt.Errorf("template: empty span in %q", src)
		}
		n, err := parseExpr(exprSrc)
		if err != nil {
			return nil, fmt.Errorf("%w (in %q)", err, src)
		}
		t.spans = append(t.spans, span{expr: n})
	}
	return t, nil
}

// MustParse is Parse for tests and package literals.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the original template text.
func (t *Template) Source() string { return t.src }

// Render evaluates the template against ctx.
//
// A template that is exactly one expression span renders to the
// expression's native value (object, list, number, string) so
// whole-object substitutions survive intact. resolved=false means the
// subject path was absent — the consuming action treats that as a
// no-op, never as the literal text "undefined".
//
// Mixed templates always resolve: absent spans render as empty strings
// inside the surrounding text.
func (t *Template) Render(ctx Context) (value any, resolved bool) {
	if len(t.spans) == 1 && t.spans[0].expr != nil {
		return eval(t.spans[0].expr, ctx)
	}

	var b strings.Builder
	for _, sp := range t.spans {
		if sp.expr == nil {
			b.WriteString(sp.literal)
			continue
		}
		v, ok := eval(sp.expr, ctx)
		if !ok {
			continue
		}
		b.WriteString(Stringify(v))
	}
	return b.String(), true
}

// RenderString is Render for callers that need text (paths, context
// ids, messages); absent subjects render as "".
func (t *Template) RenderString(ctx Context) string {
	v, ok := t.Render(ctx)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// RenderValue walks an arbitrary document (maps, lists, scalars)
// rendering every string through compile. Non-string leaves pass
// through untouched; map keys are never templated here (dynamic state
// paths are rendered by the mutator, not the payload walker).
func RenderValue(v any, ctx Context, compile CompileFunc) (any, error) {
	switch x := v.(type) {
	case string:
		if !HasExpr(x) {
			return x, nil
		}
		t, err := compile(x)
		if err != nil {
			return nil, err
		}
		out, _ := t.Render(ctx)
		return out, nil
	case map[string]any:

		out := make(map[string]any, len(x))
		for k, val := range x {
			rv, err := RenderValue(val, ctx, compile)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			rv, err := RenderValue(val, ctx, compile)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}
