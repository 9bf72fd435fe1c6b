package workflow

import (
	"strings"

	"github.com/appforge-ai/AppForge/internal/domain/state"
	"github.com/appforge-ai/AppForge/internal/domain/template"
)

// Matches evaluates the predicate against an event document and the
// current project state. All entries of both maps must hold; a missing
// path is an ordinary non-match, never an error.
func (p Predicate) Matches(eventDoc map[string]any, doc state.Document) bool {
	for path, m := range p.EventData {
		actual, ok := state.Lookup(eventDoc, path)
		if !ok || !m.matches(actual, eventDoc, doc) {
			return false
		}
	}
	for path, m := range p.ProjectState {
		actual, ok := state.Lookup(doc, path)
		if !ok || !m.matches(actual, eventDoc, doc) {
			return false
		}
	}
	return true
}

func (m Matcher) matches(actual any, eventDoc map[string]any, doc state.Document) bool {
	switch m.Kind {
	case MatchLiteral:
		return template.Equal(actual, m.Literal)

	case MatchOneOf:
		// A list-valued field matches on containment of any listed
		// item; a scalar matches on equality with any listed item.
		if items, ok := asList(actual); ok {
			for _, want := range m.OneOf {
				if listContains(items, want) {
					return true
				}
			}
			return false
		}
		for _, want := range m.OneOf {
			if scalarMatch(actual, want) {
				return true
			}
		}
		return false

	case MatchPrefix:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		return len(s) >= len(m.Prefix) && strings.EqualFold(s[:len(m.Prefix)], m.Prefix)

	case MatchTemplate:
		want, resolved := m.tmpl.Render(template.Context{Event: eventDoc, State: doc})
		if !resolved {
			return false
		}
		return template.Equal(actual, want)
	}
	return false
}

func asList(v any) ([]any, bool) {
	switch vv := v.(type) {
	case []any:
		return vv, true
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// scalarMatch is list-matcher equality: case-insensitive for string
// pairs, coercing equality otherwise.
func scalarMatch(actual, want any) bool {
	as, aOK := actual.(string)
	ws, wOK := want.(string)
	if aOK && wOK {
		return strings.EqualFold(as, ws)
	}
	return template.Equal(actual, want)
}

func listContains(items []any, want any) bool {
	ws, wsOK := want.(string)
	for _, item := range items {
		if is, ok := item.(string); ok && wsOK {
			if strings.EqualFold(is, ws) {
				return true
			}
			continue
		}
		if template.Equal(item, want) {
			return true
		}
	}
	return false
}
