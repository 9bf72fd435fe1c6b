package engine

import (
	"strings"

	"github.com/appforge-ai/AppForge/internal/domain/state"
)

// Condition is a named built-in predicate a check_condition action can
// reference. Conditions read state only; they never mutate.
type Condition func(doc state.Document) bool

func builtinConditions() map[string]Condition {
	return map[string]Condition{
		"all_modules_completed": allModulesCompleted,
	}
}

// KnownConditions returns the names the definition loader accepts.
func KnownConditions() []string {
	names := make([]string, 0, len(builtinConditions()))
	for name := range builtinConditions() {
		names = append(names, name)
	}
	return names
}

// allModulesCompleted holds when every tracked module has reached
// "completed". An empty module map means nothing has been planned yet,
// which is not completion.
func allModulesCompleted(doc state.Document) bool {
	v, ok := doc.Get(state.FieldModuleStatus)
	if !ok {
		return false
	}
	modules, ok := v.(map[string]any)
	if !ok || len(modules) == 0 {
		return false
	}
	for _, status := range modules {
		s, isStr := status.(string)
		if !isStr || !strings.EqualFold(s, "completed") {
			return false
		}
	}
	return true
}
