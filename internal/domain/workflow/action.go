package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Action is the closed set of action variants a rule may carry.
// Unknown action types are a load-time error, never a runtime switch
// default.
type Action interface {
	isAction()
	// Type returns the wire name of the variant.
	Type() string
}

// UpdateState writes a value into the project state document at a
// possibly-templated dotted path.
type UpdateState struct {
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
	// HasValue distinguishes an explicit null from an absent value key;
	// an absent value makes the action a no-op.
	HasValue bool `yaml:"-"`
}

func (UpdateState) isAction() {}
func (UpdateState) Type() string { return "update_state" }

// DelegateTask dispatches a task to a named agent, fire-and-forget.
// FromContext re-issues a recorded delegation verbatim instead of
// building a new one; retry rules use it so the original request is
// never hand-rebuilt.
type DelegateTask struct {
	Agent             string `yaml:"agent"`
	Task              string `yaml:"task"`
	Content           any    `yaml:"content"`
	ContextID         string `yaml:"context_id"`
	UseEventContextID bool   `yaml:"use_event_context_id"`
	FromContext       string `yaml:"from_context"`
}

func (DelegateTask) isAction() {}
func (DelegateTask) Type() string { return "delegate_task" }

// SendHumanMessage emits a message toward the human operator. Types
// that await a response record a pending approval context.
type SendHumanMessage struct {
	MessageType string   `yaml:"message_type"`
	Content     string   `yaml:"content"`
	Options     []string `yaml:"options"`
	ContextID   string   `yaml:"context_id"`
}

func (SendHumanMessage) isAction() {}
func (SendHumanMessage) Type() string { return "send_human_message" }

// CheckCondition evaluates a named built-in predicate; a false result
// stops the remainder of the rule's action sequence.
type CheckCondition struct {
	ConditionType string `yaml:"condition_type"`
}

func (CheckCondition) isAction() {}
func (CheckCondition) Type() string { return "check_condition" }

type actionEnvelope struct {
	Type string `yaml:"type"`
}

// UnmarshalYAML makes Rule.Actions a tagged union keyed on "type".
func decodeAction(value *yaml.Node) (Action, error) {
	var env actionEnvelope
	if err := value.Decode(&env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "update_state":
		var a UpdateState
		if err := value.Decode(&a); err != nil {
			return nil, err
		}
		a.HasValue = hasMappingKey(value, "value")
		return a, nil
	case "delegate_task":
		var a DelegateTask
		if err := value.Decode(&a); err != nil {
			return nil, err
		}
		return a, nil
	case "send_human_message":
		var a SendHumanMessage
		if err := value.Decode(&a); err != nil {
			return nil, err
		}
		return a, nil
	case "check_condition":
		var a CheckCondition
		if err := value.Decode(&a); err != nil {
			return nil, err
		}
		return a, nil
	case "":
		return nil, fmt.Errorf("action missing type (line %d)", value.Line)
	default:
		return nil, fmt.Errorf("unknown action type %q (line %d)", env.Type, value.Line)
	}
}

func hasMappingKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// UnmarshalYAML decodes the rule, routing each action entry through
// the tagged-union decoder.
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Description string      `yaml:"description"`
		Conditions  Predicate   `yaml:"conditions"`
		Actions     []yaml.Node `yaml:"actions"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.Description = raw.Description
	r.Conditions = raw.Conditions
	r.Actions = make([]Action, 0, len(raw.Actions))
	for i := range raw.Actions {
		a, err := decodeAction(&raw.Actions[i])
		if err != nil {
			return fmt.Errorf("rule %q action %d: %w", raw.Description, i, err)
		}
		r.Actions = append(r.Actions, a)
	}
	return nil
}
