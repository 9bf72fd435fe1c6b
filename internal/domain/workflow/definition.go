// Package workflow defines the declarative workflow definition: event
// kinds mapped to ordered rules, each a predicate plus an action
// sequence. The definition is loaded once, validated, and immutable
// for the life of the engine.
package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/appforge-ai/AppForge/internal/domain/template"
)

// Definition is the loaded workflow document.
type Definition struct {
	Description string            `yaml:"description"`
	Events      map[string][]Rule `yaml:"events"`
}

// Rule pairs a predicate with an ordered action sequence. A rule with
// no actions is a legal no-op match.
type Rule struct {
	Description string    `yaml:"description"`
	Conditions  Predicate `yaml:"conditions"`
	Actions     []Action  `yaml:"actions"`
}

// Predicate holds the two optional condition maps. Every entry must
// match (AND); an absent map always matches.
type Predicate struct {
	EventData    map[string]Matcher `yaml:"event_data"`
	ProjectState map[string]Matcher `yaml:"project_state"`
}

// MatcherKind discriminates the matcher variants.
type MatcherKind int

const (
	// MatchLiteral compares for equality with scalar coercion.
	MatchLiteral MatcherKind = iota
	// MatchOneOf matches when the value equals any listed item, or when
	// a list-valued field contains any listed item.
	MatchOneOf
	// MatchPrefix matches a case-insensitive string prefix.
	MatchPrefix
	// MatchTemplate renders the operand against {event, state} before
	// an equality comparison.
	MatchTemplate
)

// Matcher is one declarative condition operand.
type Matcher struct {
	Kind    MatcherKind
	Literal any
	OneOf   []any
	Prefix  string
	tmpl    *template.Template
}

// UnmarshalYAML decodes the matcher variants:
// scalar, list, {starts_with: s}, or a templated scalar.
func (m *Matcher) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []any
		if err := value.Decode(&items); err != nil {
			return err
		}
		m.Kind = MatchOneOf
		m.OneOf = items
		return nil

	case yaml.MappingNode:
		var prefix struct {
			StartsWith *string `yaml:"starts_with"`
		}
		if err := value.Decode(&prefix); err != nil {
			return err
		}
		if prefix.StartsWith == nil {
			return fmt.Errorf("matcher map must contain starts_with (line %d)", value.Line)
		}
		m.Kind = MatchPrefix
		m.Prefix = *prefix.StartsWith
		return nil

	case yaml.ScalarNode:
		var v any
		if err := value.Decode(&v); err != nil {
			return err
		}
		if s, ok := v.(string); ok && template.HasExpr(s) {
			tmpl, err := template.Parse(s)
			if err != nil {
				return fmt.Errorf("matcher template: %w", err)
			}
			m.Kind = MatchTemplate
			m.Literal = s
			m.tmpl = tmpl
			return nil
		}
		m.Kind = MatchLiteral
		m.Literal = v
		return nil

	default:
		return fmt.Errorf("unsupported matcher node (line %d)", value.Line)
	}
}

// Template returns the compiled operand template for MatchTemplate.
func (m *Matcher) Template() *template.Template { return m.tmpl }

// MessageType enumerates the human-message kinds the executor accepts.
var MessageTypes = map[string]bool{
	"QUESTION":       true,
	"PROGRESS":       true,
	"SUCCESS":        true,
	"INSTRUCTION":    true,
	"INFO":           true,
	"CRITICAL_ISSUE": true,
	"ERROR":          true,
}

// AwaitsResponse reports whether a message type opens a pending human
// approval context.
func AwaitsResponse(messageType string) bool {
	switch messageType {
	case "QUESTION", "INSTRUCTION", "CRITICAL_ISSUE":
		return true
	}
	return false
}
