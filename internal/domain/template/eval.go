package template

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/appforge-ai/AppForge/internal/domain/state"
)

// Context is the read-only view a template renders against.
type Context struct {
	Event map[string]any
	State state.Document
}

// eval evaluates a node. resolved=false means the value came from an
// absent path; consumers decide whether that is an empty render or a
// no-op (per the action's documented behavior).
func eval(n node, ctx Context) (value any, resolved bool) {
	switch x := n.(type) {
	case *litNode:
		return x.Value, true

	case *pathNode:
		var root any
		if x.Root == "event" {
			root = x.chooseRoot(ctx.Event)
		} else {
			root = map[string]any(ctx.State)
		}
		if len(x.Segs) == 0 {
			return root, root != nil
		}
		v, ok := state.Lookup(root, strings.Join(x.Segs, "."))
		if !ok || v == nil {
			return nil, false
		}
		return v, true

	case *condNode:
		c, _ := eval(x.Cond, ctx)
		if truthy(c) {
			return eval(x.Then, ctx)
		}
		return eval(x.Else, ctx)

	case *binNode:
		return evalBinary(x, ctx)

	case *notNode:
		v, _ := eval(x.X, ctx)
		return !truthy(v), true

	case *callNode:
		if x.Name == "uuid" {
			return uuid.NewString(), true
		}
		return nil, false

	case *filterNode:
		return evalFilter(x, ctx)
	}
	return nil, false
}

// chooseRoot returns the event document; split out so a nil event map
// does not panic during state-only renders.
func (x *pathNode) chooseRoot(event map[string]any) any {
	if event == nil {
		return map[string]any{}
	}
	return event
}

func evalBinary(x *binNode, ctx Context) (any, bool) {
	switch x.Op {
	case "and":
		l, _ := eval(x.Left, ctx)
		if !truthy(l) {
			return false, true
		}
		r, _ := eval(x.Right, ctx)
		return truthy(r), true
	case "or":
		l, _ := eval(x.Left, ctx)
		if truthy(l) {
			return true, true
		}
		r, _ := eval(x.Right, ctx)
		return truthy(r), true
	}

	l, _ := eval(x.Left, ctx)
	r, _ := eval(x.Right, ctx)
	switch x.Op {
	case "==":
		return Equal(l, r), true
	case "!=":
		return !Equal(l, r), true
	case "in":
		return contains(r, l), true
	}
	return nil, false
}

func evalFilter(x *filterNode, ctx Context) (any, bool) {
	recv, ok := eval(x.Recv, ctx)
	if !ok {
		return nil, false
	}
	args := make([]any, len(x.Args))
	for i, a := range x.Args {
		args[i], _ = eval(a, ctx)
	}

	switch x.Name {
	case "join":
		sep := ""
		if len(args) > 0 {
			sep = Stringify(args[0])
		}
		items, isList := recv.([]any)
		if !isList {
			if ss, isStrs := recv.([]string); isStrs {
				parts := make([]string, len(ss))
				copy(parts, ss)
				return strings.Join(parts, sep), true
			}
			return Stringify(recv), true
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Stringify(it)
		}
		return strings.Join(parts, sep), true

	case "replace":
		if len(args) < 2 {
			return recv, true
		}
		return strings.ReplaceAll(Stringify(recv), Stringify(args[0]), Stringify(args[1])), true

	case "strip":
		return strings.TrimSpace(Stringify(recv)), true
	}
	return nil, false
}

// truthy follows the conventions the original definitions rely on:
// nil, false, zero, empty string/list/map are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// Equal compares two scalars with numeric coercion: 3 == 3.0, and
// JSON-decoded float64 counters compare equal to int literals.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, aok := toFloat(a); aok {
		if nb, bok := toFloat(b); bok {
			return na == nb
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// contains reports membership of needle in haystack. Lists match per
// element (case-insensitive for strings); strings match substrings.
func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case []any:
		for _, it := range h {
			if equalFold(it, needle) {
				return true
			}
		}
	case []string:
		for _, it := range h {
			if equalFold(it, needle) {
				return true
			}
		}
	case string:
		return strings.Contains(strings.ToLower(h), strings.ToLower(Stringify(needle)))
	case map[string]any:
		_, ok := h[Stringify(needle)]
		return ok
	}
	return false
}

// equalFold is Equal but case-insensitive for string pairs.
func equalFold(a, b any) bool {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.EqualFold(as, bs)
	}
	return Equal(a, b)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// Stringify renders a scalar for string interpolation. Maps and lists
// fall back to their Go formatting; callers that need native types use
// whole-expression templates instead.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers decode as float64; print integral values bare.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
