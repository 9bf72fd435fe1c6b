package state

// Canonical top-level document fields.
const (
	FieldStatus       = "status"
	FieldCurrentPhase = "current_phase"
	FieldPendingHuman = "pending_human_approval_context"
	FieldTaskContexts = "current_task_contexts"
	FieldModuleStatus = "code_modules_status"
	FieldTestResults  = "test_results"
	FieldTestRetries  = "module_test_retries"
	FieldEscalations  = "escalated_issues"
)

// Well-known status/phase values. Cancellation and termination stop
// dispatch for the instance; late events are archived. "App Live!" is
// a success marker, not terminal: post-launch feedback still flows.
const (
	StatusAppLive   = "App Live!"
	StatusCancelled = "Project Cancelled"
	PhaseTerminated = "Terminated"
)

// NewProject returns the initial project-state document for a fresh
// workflow instance, mirroring the defaults every rule set assumes.
func NewProject() Document {
	return Document{
		"status":                         "Idle",
		"current_phase":                  "Initiation",
		"pending_human_approval_context": nil,
		"app_idea":                       nil,
		"concept_brief":                  nil,
		"technical_blueprint":            nil,
		"tech_stack_proposal":            nil,
		"ui_ux_prototype_url":            nil,
		"design_guidelines":              nil,
		"code_modules_status":            map[string]any{},
		"test_results":                   map[string]any{},
		"module_test_retries":            map[string]any{},
		"deployment_retries":             0,
		"final_app_url":                  nil,
		"selected_deployment_target":     nil,
		"current_task_contexts":          map[string]any{},
		"escalated_issues":               map[string]any{},
	}
}

// Terminal reports whether the document has reached a terminal state.
// Both fields are checked because cancellation rules write the status
// while Terminated is a phase.
func (d Document) Terminal() bool {
	if v, ok := d.Get(FieldStatus); ok {
		if s, isStr := v.(string); isStr && s == StatusCancelled {
			return true
		}
	}
	if v, ok := d.Get(FieldCurrentPhase); ok {
		if s, isStr := v.(string); isStr && s == PhaseTerminated {
			return true
		}
	}
	return false
}

// Status returns the current status string, or "" when unset.
func (d Document) Status() string {
	v, ok := d.Get(FieldStatus)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Phase returns the current phase string, or "" when unset.
func (d Document) Phase() string {
	v, ok := d.Get(FieldCurrentPhase)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
