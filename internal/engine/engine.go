// Package engine implements the rule dispatcher: it receives workflow
// events, matches them against the loaded definition, and executes the
// first matching rule's action sequence against the instance's state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/appforge-ai/AppForge/internal/config"
	"github.com/appforge-ai/AppForge/internal/domain"
	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/domain/state"
	"github.com/appforge-ai/AppForge/internal/domain/template"
	"github.com/appforge-ai/AppForge/internal/domain/workflow"
	"github.com/appforge-ai/AppForge/internal/port/eventlog"
	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
	"github.com/appforge-ai/AppForge/internal/port/notifier"
	"github.com/appforge-ai/AppForge/internal/port/statestore"
)

// Metrics receives engine counters; the otel adapter implements it.
type Metrics interface {
	EventProcessed(ctx context.Context, kind string, outcome eventlog.Outcome, d time.Duration)
	DelegationSent(ctx context.Context, agent string)
	HumanMessageSent(ctx context.Context, messageType string)
}

type nopMetrics struct{}

func (nopMetrics) EventProcessed(context.Context, string, eventlog.Outcome, time.Duration) {}
func (nopMetrics) DelegationSent(context.Context, string)                                  {}
func (nopMetrics) HumanMessageSent(context.Context, string)                                {}

// Options wires the engine's collaborators.
type Options struct {
	Definition *workflow.Definition
	Store      statestore.Store
	Log        eventlog.Log
	Delegator  messagequeue.Delegator
	Notifier   notifier.Notifier
	// Compile compiles template sources; usually backed by the
	// ristretto cache. Defaults to template.Parse.
	Compile template.CompileFunc
	Metrics Metrics
	Config  config.Engine
	Logger  *slog.Logger
}

// Engine is the rule dispatcher. One Engine serves all instances;
// per-instance serialization is the Pool's job.
type Engine struct {
	def        *workflow.Definition
	store      statestore.Store
	log        eventlog.Log
	delegator  messagequeue.Delegator
	notifier   notifier.Notifier
	compile    template.CompileFunc
	metrics    Metrics
	conditions map[string]Condition
	cfg        config.Engine
	logger     *slog.Logger
}

// New builds an Engine from options. Definition, Store, Log, Delegator
// and Notifier are required.
func New(opts Options) (*Engine, error) {
	if opts.Definition == nil {
		return nil, fmt.Errorf("engine: definition is required")
	}
	if opts.Store == nil || opts.Log == nil {
		return nil, fmt.Errorf("engine: store and event log are required")
	}
	if opts.Delegator == nil || opts.Notifier == nil {
		return nil, fmt.Errorf("engine: delegator and notifier are required")
	}
	if opts.Compile == nil {
		opts.Compile = template.Parse
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config.MaxDepth <= 0 {
		opts.Config.MaxDepth = 8
	}
	if opts.Config.MaxSynthesized <= 0 {
		opts.Config.MaxSynthesized = 64
	}
	return &Engine{
		def:        opts.Definition,
		store:      opts.Store,
		log:        opts.Log,
		delegator:  opts.Delegator,
		notifier:   opts.Notifier,
		compile:    opts.Compile,
		metrics:    opts.Metrics,
		conditions: builtinConditions(),
		cfg:        opts.Config,
		logger:     opts.Logger,
	}, nil
}

// queued is one pending dispatch within a turn: the inbound event at
// depth 0 plus any events rules synthesized along the way.
type queued struct {
	ev    *event.Event
	depth int
}

// HandleEvent runs one full turn for an inbound event: load state,
// dispatch the event (and any synthesized followers), save state, then
// flush outbound delegations and messages. Events for one instance
// must be handed to HandleEvent serially; the Pool guarantees that.
func (e *Engine) HandleEvent(ctx context.Context, ev *event.Event) error {
	started := time.Now()
	if ev.ProjectID == "" {
		return fmt.Errorf("engine: event %s has no instance id", ev.ID)
	}
	log := e.logger.With("instance_id", ev.ProjectID, "event_id", ev.ID, "kind", ev.Kind)

	doc, err := e.loadOrCreate(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("event for unknown instance dropped")
			e.archive(ctx, ev, eventlog.OutcomeError, "", "unknown instance")
			e.metrics.EventProcessed(ctx, string(ev.Kind), eventlog.OutcomeError, time.Since(started))
			return err
		}
		return fmt.Errorf("load instance %s: %w", ev.ProjectID, err)
	}

	// Terminal instances accept no further dispatch; stray late events
	// are archived, not errors.
	if doc.Terminal() {
		log.Info("late event for terminal instance archived", "status", doc.Status())
		e.archive(ctx, ev, eventlog.OutcomeLate, "", "")
		e.metrics.EventProcessed(ctx, string(ev.Kind), eventlog.OutcomeLate, time.Since(started))
		return nil
	}

	e.prepareHumanInput(ev, doc)

	t := &turn{doc: doc}
	outcome := e.drain(ctx, t, ev, log)

	if err := e.store.Save(ctx, ev.ProjectID, doc); err != nil {
		e.archive(ctx, ev, eventlog.OutcomeError, "", err.Error())
		return fmt.Errorf("save instance %s: %w", ev.ProjectID, err)
	}
	e.flush(ctx, t, log)
	e.metrics.EventProcessed(ctx, string(ev.Kind), outcome, time.Since(started))
	return t.err
}

// drain dispatches the inbound event and then the synthesized queue,
// FIFO, until empty or a bound trips.
func (e *Engine) drain(ctx context.Context, t *turn, ev *event.Event, log *slog.Logger) eventlog.Outcome {
	queue := []queued{{ev: ev}}
	outcome := eventlog.OutcomeDropped
	synthesized := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth > e.cfg.MaxDepth {
			t.err = fmt.Errorf("engine: synthesized depth %d exceeds limit %d", item.depth, e.cfg.MaxDepth)
			log.Error("re-entrancy depth exceeded, turn aborted", "depth", item.depth)
			e.archive(ctx, item.ev, eventlog.OutcomeError, "", t.err.Error())
			e.archiveAll(ctx, queue, t.err.Error())
			return eventlog.OutcomeError
		}

		rule, matched := e.dispatchOne(ctx, t, item, log)
		if item.ev == ev {
			if matched {
				outcome = eventlog.OutcomeMatched
			}
		}
		if matched {
			e.archive(ctx, item.ev, eventlog.OutcomeMatched, rule.Description, "")
			pruneOnSuccess(item.ev, t.doc)
		} else {
			log.Info("no rule matched, event dropped", "dispatched_kind", item.ev.Kind)
			e.archive(ctx, item.ev, eventlog.OutcomeDropped, "", "")
		}

		batch := t.takeSynthesized()
		for i, s := range batch {
			synthesized++
			if synthesized > e.cfg.MaxSynthesized {
				t.err = fmt.Errorf("engine: synthesized event count exceeds limit %d", e.cfg.MaxSynthesized)
				log.Error("synthesized event budget exceeded, turn aborted")
				e.archive(ctx, s, eventlog.OutcomeError, "", t.err.Error())
				for _, rest := range batch[i+1:] {
					e.archive(ctx, rest, eventlog.OutcomeError, "", t.err.Error())
				}
				e.archiveAll(ctx, queue, t.err.Error())
				return eventlog.OutcomeError
			}
			queue = append(queue, queued{ev: s, depth: item.depth + 1})
		}

		// A rule may drive the instance terminal mid-turn; anything
		// still queued is then late by definition.
		if t.doc.Terminal() {
			for _, rest := range queue {
				e.archive(ctx, rest.ev, eventlog.OutcomeLate, "", "")
			}
			break
		}
	}
	return outcome
}

// dispatchOne selects and executes the first matching rule for one
// event. First-match-wins: later rules never run even if they match.
func (e *Engine) dispatchOne(ctx context.Context, t *turn, item queued, log *slog.Logger) (workflow.Rule, bool) {
	rules := e.def.Events[string(item.ev.Kind)]
	eventDoc := item.ev.Document()
	for _, rule := range rules {
		if !rule.Conditions.Matches(eventDoc, t.doc) {
			continue
		}
		log.Debug("rule matched", "rule", rule.Description, "dispatched_kind", item.ev.Kind)
		e.execute(ctx, t, item.ev, rule, log)
		return rule, true
	}
	return workflow.Rule{}, false
}

// loadOrCreate fetches the instance document, creating a fresh one for
// start events targeting a new instance id.
func (e *Engine) loadOrCreate(ctx context.Context, ev *event.Event) (state.Document, error) {
	inst, err := e.store.Get(ctx, ev.ProjectID)
	if err == nil {
		return inst.State, nil
	}
	if !errors.Is(err, domain.ErrNotFound) || ev.Kind != event.KindStart {
		return nil, err
	}
	doc := state.NewProject()
	if err := e.store.Create(ctx, ev.ProjectID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// prepareHumanInput mirrors the approval-gate contract: a reply with no
// context id targets the awaited context, and receiving the awaited
// reply clears the pending marker before rules run.
func (e *Engine) prepareHumanInput(ev *event.Event, doc state.Document) {
	if ev.Kind != event.KindHumanInput {
		return
	}
	pending, _ := doc.Get(state.FieldPendingHuman)
	pendingID, _ := pending.(string)
	if ev.ContextID == "" {
		ev.ContextID = pendingID
	}
	if pendingID != "" && ev.ContextID == pendingID {
		doc.Set(state.FieldPendingHuman, nil)
	}
}

// flush sends buffered outbound traffic after the state save, so a
// crashed turn is retried rather than half-delivered.
func (e *Engine) flush(ctx context.Context, t *turn, log *slog.Logger) {
	for _, d := range t.delegations {
		if err := e.delegator.Delegate(ctx, d); err != nil {
			log.Error("delegation dispatch failed", "agent", d.Agent, "task", d.Task, "error", err)
			continue
		}
		e.metrics.DelegationSent(ctx, d.Agent)
	}
	for _, m := range t.messages {
		if err := e.notifier.Send(ctx, m); err != nil {
			log.Error("human message dispatch failed", "message_type", m.MessageType, "error", err)
			continue
		}
		e.metrics.HumanMessageSent(ctx, m.MessageType)
	}
}

// pruneOnSuccess drops the delegation record once its task has
// succeeded. Failure events keep the record so retry rules can re-send
// the original request verbatim. QA and deployment agents report
// content.status "completed" even when the work failed; the real
// outcome is the sub-status, so when one is present it alone decides.
func pruneOnSuccess(ev *event.Event, doc state.Document) {
	if ev.Kind != event.KindAgentResult || ev.ContextID == "" {
		return
	}
	field := func(path string) (string, bool) {
		v, ok := ev.Field(path)
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
	if s, ok := field("content.test_report.status"); ok {
		if strings.EqualFold(s, "passed") {
			doc.PruneContext(ev.ContextID)
		}
		return
	}
	if s, ok := field("content.deployment_status"); ok {
		if strings.EqualFold(s, "success") {
			doc.PruneContext(ev.ContextID)
		}
		return
	}
	if s, ok := field("content.status"); ok &&
		(strings.EqualFold(s, "completed") || strings.EqualFold(s, "done")) {
		doc.PruneContext(ev.ContextID)
	}
}

// archiveAll records every still-queued event when the turn aborts, so
// nothing the turn produced vanishes without a trace.
func (e *Engine) archiveAll(ctx context.Context, queue []queued, errText string) {
	for _, q := range queue {
		e.archive(ctx, q.ev, eventlog.OutcomeError, "", errText)
	}
}

func (e *Engine) archive(ctx context.Context, ev *event.Event, outcome eventlog.Outcome, rule, errText string) {
	rec := &eventlog.Record{
		EventID:    ev.ID,
		InstanceID: ev.ProjectID,
		Kind:       string(ev.Kind),
		Sender:     ev.Sender,
		ContextID:  ev.ContextID,
		Outcome:    outcome,
		Rule:       rule,
		Error:      errText,
		Content:    ev.Content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.log.Append(ctx, rec); err != nil {
		e.logger.Error("event archive append failed", "event_id", ev.ID, "error", err)
	}
}
