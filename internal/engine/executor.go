package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/domain/state"
	"github.com/appforge-ai/AppForge/internal/domain/template"
	"github.com/appforge-ai/AppForge/internal/domain/workflow"
	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
	"github.com/appforge-ai/AppForge/internal/port/notifier"
)

// kindPhaseChanged is synthesized when a rule moves current_phase. The
// definition opts in by declaring rules under this kind; otherwise the
// synthesized event is dropped like any unmatched one.
const kindPhaseChanged = "phase_changed"

// turn accumulates everything one HandleEvent call produces: state
// mutations land directly in doc, outbound traffic and synthesized
// events are buffered until the state save commits.
type turn struct {
	doc         state.Document
	delegations []messagequeue.Delegation
	messages    []notifier.Message
	synthesized []*event.Event
	err         error
}

func (t *turn) takeSynthesized() []*event.Event {
	out := t.synthesized
	t.synthesized = nil
	return out
}

// execute runs a rule's action sequence strictly in order. Template
// reads of state.* see every write made earlier in the same sequence.
// A false check_condition stops the remainder; it is not an error.
func (e *Engine) execute(ctx context.Context, t *turn, ev *event.Event, rule workflow.Rule, log *slog.Logger) {
	tctx := template.Context{Event: ev.Document(), State: t.doc}
	for _, action := range rule.Actions {
		switch a := action.(type) {
		case workflow.UpdateState:
			e.applyUpdateState(t, ev, a, tctx, log)

		case workflow.DelegateTask:
			e.applyDelegateTask(t, ev, a, tctx, log)

		case workflow.SendHumanMessage:
			e.applySendHumanMessage(t, ev, a, tctx, log)

		case workflow.CheckCondition:
			cond := e.conditions[a.ConditionType]
			if cond == nil || !cond(t.doc) {
				log.Debug("condition not met, remaining actions skipped",
					"condition", a.ConditionType, "rule", rule.Description)
				return
			}
		}
	}
}

// applyUpdateState renders the path and value and writes the document.
// An absent value key, an unrenderable path, or a value whose whole
// template subject is missing all degrade to a no-op write.
func (e *Engine) applyUpdateState(t *turn, ev *event.Event, a workflow.UpdateState, tctx template.Context, log *slog.Logger) {
	if !a.HasValue {
		log.Warn("update_state without value ignored", "path", a.Path)
		return
	}
	path := a.Path
	if template.HasExpr(path) {
		tmpl, err := e.compile(path)
		if err != nil {
			log.Error("state path template failed", "path", a.Path, "error", err)
			return
		}
		path = tmpl.RenderString(tctx)
	}
	if path == "" {
		log.Warn("state path rendered empty, write skipped", "path", a.Path)
		return
	}

	var value any
	if s, ok := a.Value.(string); ok && template.HasExpr(s) {
		tmpl, cerr := e.compile(s)
		if cerr != nil {
			log.Error("state value template failed", "path", path, "error", cerr)
			return
		}
		v, resolved := tmpl.Render(tctx)
		if !resolved {
			// The whole template subject is absent: no-op write, not
			// a write of a sentinel.
			log.Debug("state value unresolved, write skipped", "path", path)
			return
		}
		value = v
	} else {
		v, err := template.RenderValue(a.Value, tctx, e.compile)
		if err != nil {
			log.Error("state value template failed", "path", path, "error", err)
			return
		}
		value = v
	}

	prevPhase := t.doc.Phase()
	t.doc.Set(path, value)
	log.Debug("state updated", "path", path)

	if path == state.FieldCurrentPhase {
		if next := t.doc.Phase(); next != prevPhase {
			t.synthesized = append(t.synthesized, &event.Event{
				ID:        uuid.NewString(),
				ProjectID: ev.ProjectID,
				Kind:      kindPhaseChanged,
				Sender:    "engine",
				ContextID: ev.ContextID,
				Content:   map[string]any{"from": prevPhase, "to": next},
				CreatedAt: time.Now().UTC(),
			})
		}
	}
}

// applyDelegateTask renders the payload, resolves the context id
// (explicit template, then the event's own context, then a fresh id),
// registers the context record, and buffers the outbound delegation.
func (e *Engine) applyDelegateTask(t *turn, ev *event.Event, a workflow.DelegateTask, tctx template.Context, log *slog.Logger) {
	if a.FromContext != "" {
		e.redelegateFromContext(t, ev, a.FromContext, tctx, log)
		return
	}
	rendered, err := template.RenderValue(a.Content, tctx, e.compile)
	if err != nil {
		log.Error("delegation content template failed", "agent", a.Agent, "task", a.Task, "error", err)
		return
	}
	content, _ := rendered.(map[string]any)
	if content == nil {
		content = map[string]any{}
	}

	contextID := ""
	if a.ContextID != "" {
		tmpl, cerr := e.compile(a.ContextID)
		if cerr == nil {
			contextID = tmpl.RenderString(tctx)
		}
	}
	if contextID == "" && a.UseEventContextID && ev.ContextID != "" {
		contextID = ev.ContextID
	}
	if contextID == "" {
		contextID = uuid.NewString()
		log.Debug("generated context id for delegation", "task", a.Task, "context_id", contextID)
	}

	stampRetryAttempt(t.doc, a.Agent, contextID, content)

	t.doc.PutContext(contextID, state.ContextRecord{
		Agent:           a.Agent,
		Task:            a.Task,
		OriginalContent: content,
		CreatedAt:       time.Now().UTC(),
	})

	t.delegations = append(t.delegations, messagequeue.Delegation{
		InstanceID: ev.ProjectID,
		Agent:      a.Agent,
		Task:       a.Task,
		ContextID:  contextID,
		Content:    content,
	})
	log.Info("task delegated", "agent", a.Agent, "task", a.Task, "context_id", contextID)
}

// redelegateFromContext re-issues the delegation recorded under a
// context id, verbatim, on the same context. Retry rules rely on this
// so the agent receives exactly the request it failed on.
func (e *Engine) redelegateFromContext(t *turn, ev *event.Event, ref string, tctx template.Context, log *slog.Logger) {
	contextID := ref
	if template.HasExpr(ref) {
		tmpl, err := e.compile(ref)
		if err != nil {
			log.Error("from_context template failed", "error", err)
			return
		}
		contextID = tmpl.RenderString(tctx)
	}
	rec, ok := t.doc.Context(contextID)
	if !ok {
		log.Warn("no recorded delegation for context, retry skipped", "context_id", contextID)
		return
	}
	content := rec.OriginalContent
	if content == nil {
		content = map[string]any{}
	}
	stampRetryAttempt(t.doc, rec.Agent, contextID, content)
	t.delegations = append(t.delegations, messagequeue.Delegation{
		InstanceID: ev.ProjectID,
		Agent:      rec.Agent,
		Task:       rec.Task,
		ContextID:  contextID,
		Content:    content,
	})
	log.Info("recorded delegation re-issued", "agent", rec.Agent, "task", rec.Task, "context_id", contextID)
}

// stampRetryAttempt injects the running retry counter into QA and
// deployment payloads so those agents can report which attempt failed.
func stampRetryAttempt(doc state.Document, agent, contextID string, content map[string]any) {
	switch agent {
	case "Quality Guardian":
		retries := 0
		if v, ok := doc.Get(state.FieldTestRetries + "." + contextID); ok {
			retries = asInt(v)
		}
		content["retry_attempt"] = retries
	case "Deployment Master":
		retries := 0
		if v, ok := doc.Get("deployment_retries"); ok {
			retries = asInt(v)
		}
		content["retry_attempt"] = retries
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// applySendHumanMessage renders content, options and context, records
// the pending approval context for reply-awaiting types, and buffers
// the outbound message.
func (e *Engine) applySendHumanMessage(t *turn, ev *event.Event, a workflow.SendHumanMessage, tctx template.Context, log *slog.Logger) {
	content := a.Content
	if template.HasExpr(content) {
		tmpl, err := e.compile(content)
		if err != nil {
			log.Error("human message template failed", "error", err)
			return
		}
		content = tmpl.RenderString(tctx)
	}

	options := make([]string, 0, len(a.Options))
	for _, opt := range a.Options {
		if template.HasExpr(opt) {
			if tmpl, err := e.compile(opt); err == nil {
				opt = tmpl.RenderString(tctx)
			}
		}
		options = append(options, opt)
	}

	contextID := ""
	if a.ContextID != "" {
		if tmpl, err := e.compile(a.ContextID); err == nil {
			contextID = tmpl.RenderString(tctx)
		}
	}
	if contextID == "" {
		contextID = ev.ContextID
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}

	if workflow.AwaitsResponse(a.MessageType) {
		t.doc.Set(state.FieldPendingHuman, contextID)
	}

	t.messages = append(t.messages, notifier.Message{
		InstanceID:  ev.ProjectID,
		MessageType: a.MessageType,
		Content:     content,
		Options:     options,
		ContextID:   contextID,
		SentAt:      time.Now().UTC(),
	})
	log.Info("human message queued", "message_type", a.MessageType, "context_id", contextID)
}
