// Package state holds the mutable project-state document for a workflow
// instance and its path-addressed accessors.
package state

import (
	"strings"
)

// Document is the nested project-state document. All mutation goes
// through Set; rules and templates read it through Lookup.
type Document map[string]any

// Lookup walks a dotted path through nested maps and slices. Numeric
// segments index into slices. Missing paths return ok=false, never an
// error — a missing path is a non-match, not a fault.
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, false
		}
		switch node := cur.(type) {
		case Document:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, ok := index(seg)
			if !ok || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		case []string:
			idx, ok := index(seg)
			if !ok || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Get resolves a dotted path against the document.
func (d Document) Get(path string) (any, bool) {
	return Lookup(d, path)
}

// Set writes value at the dotted path, creating intermediate map levels
// as needed. Re-setting a path to an equal scalar is a no-op for
// observers; Set itself is always safe to repeat.
func (d Document) Set(path string, value any) {
	segs := strings.Split(path, ".")
	cur := map[string]any(d)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			if nd, isDoc := cur[seg].(Document); isDoc {
				next = map[string]any(nd)
			} else {
				next = make(map[string]any)
				cur[seg] = next
			}
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

// index parses a non-negative decimal slice index.
func index(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, s != ""
}
