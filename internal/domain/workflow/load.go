package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/appforge-ai/AppForge/internal/domain/template"
)

// Load reads and validates a workflow definition. Any structural
// problem — unknown action type, unknown condition, malformed template,
// bad message type — fails here, before the engine accepts events.
func Load(path string, knownConditions []string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return Decode(raw, knownConditions)
}

// Decode parses a definition document from YAML (or JSON, which YAML
// subsumes) and validates it.
func Decode(raw []byte, knownConditions []string) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if err := def.Validate(knownConditions); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate walks every rule checking action fields, message types,
// condition names, and that every template compiles.
func (d *Definition) Validate(knownConditions []string) error {
	if len(d.Events) == 0 {
		return fmt.Errorf("definition has no events")
	}
	conditions := make(map[string]bool, len(knownConditions))
	for _, name := range knownConditions {
		conditions[name] = true
	}
	for kind, rules := range d.Events {
		if kind == "" {
			return fmt.Errorf("definition has an empty event kind")
		}
		for i, rule := range rules {
			if err := rule.validate(conditions); err != nil {
				return fmt.Errorf("event %q rule %d (%s): %w", kind, i, rule.Description, err)
			}
		}
	}
	return nil
}

func (r Rule) validate(conditions map[string]bool) error {
	for path, m := range r.Conditions.EventData {
		if err := m.validate(); err != nil {
			return fmt.Errorf("event_data %q: %w", path, err)
		}
	}
	for path, m := range r.Conditions.ProjectState {
		if err := m.validate(); err != nil {
			return fmt.Errorf("project_state %q: %w", path, err)
		}
	}
	for i, action := range r.Actions {
		if err := validateAction(action, conditions); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, action.Type(), err)
		}
	}
	return nil
}

func (m Matcher) validate() error {
	if m.Kind == MatchOneOf && len(m.OneOf) == 0 {
		return fmt.Errorf("empty list matcher")
	}
	if m.Kind == MatchPrefix && m.Prefix == "" {
		return fmt.Errorf("empty starts_with matcher")
	}
	return nil
}

func validateAction(action Action, conditions map[string]bool) error {
	switch a := action.(type) {
	case UpdateState:
		if a.Path == "" {
			return fmt.Errorf("update_state requires path")
		}
		if err := compileAll(a.Path, a.Value); err != nil {
			return err
		}
	case DelegateTask:
		if a.FromContext != "" {
			if a.Agent != "" || a.Task != "" {
				return fmt.Errorf("delegate_task: from_context replaces agent and task")
			}
			return compileAll(a.FromContext)
		}
		if a.Agent == "" || a.Task == "" {
			return fmt.Errorf("delegate_task requires agent and task")
		}
		if a.ContextID != "" && a.UseEventContextID {
			return fmt.Errorf("delegate_task: context_id and use_event_context_id are mutually exclusive")
		}
		if err := compileAll(a.ContextID, a.Content); err != nil {
			return err
		}
	case SendHumanMessage:
		if !MessageTypes[a.MessageType] {
			return fmt.Errorf("unknown message_type %q", a.MessageType)
		}
		if a.Content == "" {
			return fmt.Errorf("send_human_message requires content")
		}
		if err := compileAll(a.Content, a.ContextID); err != nil {
			return err
		}
		for _, opt := range a.Options {
			if err := compileAll(opt); err != nil {
				return err
			}
		}
	case CheckCondition:
		if !conditions[a.ConditionType] {
			return fmt.Errorf("unknown condition_type %q", a.ConditionType)
		}
	default:
		return fmt.Errorf("unhandled action variant %T", action)
	}
	return nil
}

// compileAll parses every templated string reachable from the given
// values, so template errors surface at load, not at dispatch.
func compileAll(values ...any) error {
	for _, v := range values {
		switch x := v.(type) {
		case string:
			if template.HasExpr(x) {
				if _, err := template.Parse(x); err != nil {
					return err
				}
			}
		case map[string]any:
			for _, nested := range x {
				if err := compileAll(nested); err != nil {
					return err
				}
			}
		case []any:
			for _, nested := range x {
				if err := compileAll(nested); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
