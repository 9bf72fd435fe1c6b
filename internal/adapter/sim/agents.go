// Package sim provides in-process simulated agents for local
// development and demos. Each agent consumes task delegations from the
// queue and replies with a plausible agent_result event, so a full
// idea-to-launch run works without any real AI backends.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
)

// PublishFunc sends a reply event back into the workflow.
type PublishFunc func(ctx context.Context, ev *event.Event) error

// Options tunes the simulated behavior.
type Options struct {
	// Delay is the artificial think time before each reply.
	Delay time.Duration

	// FailQAModules maps module names to the number of times QA
	// reports failed_with_bugs before finally passing. Exercises the
	// bounded fix/re-test loop and, with a value of 3+, escalation.
	FailQAModules map[string]int

	// FailDeployments is the number of deployment attempts that fail
	// before one succeeds.
	FailDeployments int
}

// Agents simulates the six builder agents behind the delegation queue.
type Agents struct {
	queue   messagequeue.Queue
	publish PublishFunc
	log     *slog.Logger
	opts    Options

	mu          sync.Mutex
	qaFailures  map[string]int
	deployFails int
}

func New(queue messagequeue.Queue, publish PublishFunc, log *slog.Logger, opts Options) *Agents {
	return &Agents{
		queue:      queue,
		publish:    publish,
		log:        log.With(slog.String("adapter", "sim")),
		opts:       opts,
		qaFailures: map[string]int{},
	}
}

// Start subscribes to all task delegations. The returned function
// cancels the subscription.
func (a *Agents) Start(ctx context.Context) (func(), error) {
	subject := messagequeue.SubjectDelegations + ".>"
	return a.queue.Subscribe(ctx, subject, a.handle)
}

func (a *Agents) handle(ctx context.Context, _ string, data []byte) error {
	var d messagequeue.DelegationPayload
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("decode delegation: %w", err)
	}

	if a.opts.Delay > 0 {
		select {
		case <-time.After(a.opts.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	kind := event.KindAgentResult
	content := a.respond(d)
	if content == nil {
		a.log.Warn("no simulated behavior for task",
			slog.String("agent", d.Agent), slog.String("task", d.Task))
		// Unhandled tasks surface as out-of-band failures so the
		// generic escalation rules pick them up.
		kind = event.KindStatusUpdate
		content = map[string]any{
			"task_name": d.Task,
			"status":    "failed",
			"error":     fmt.Sprintf("agent %q does not understand task %q", d.Agent, d.Task),
		}
	}

	ev := &event.Event{
		ProjectID: d.InstanceID,
		Kind:      kind,
		Sender:    d.Agent,
		ContextID: d.ContextID,
		Content:   content,
	}
	a.log.Info("simulated agent replying",
		slog.String("agent", d.Agent),
		slog.String("task", d.Task),
		slog.String("context_id", d.ContextID))
	return a.publish(ctx, ev)
}

func (a *Agents) respond(d messagequeue.DelegationPayload) map[string]any {
	switch d.Agent {
	case "Dream Weaver":
		if d.Task == "generate_concept" {
			return a.generateConcept(d)
		}
	case "Master Builder":
		if d.Task == "design_architecture" {
			return a.designArchitecture(d)
		}
	case "Aesthetic Artist":
		if d.Task == "design_ui_ux" {
			return a.designUIUX(d)
		}
	case "Code Sage":
		if d.Task == "code_module" || d.Task == "fix_module" {
			return a.codeModule(d)
		}
	case "Quality Guardian":
		if d.Task == "test_module" {
			return a.testModule(d)
		}
	case "Deployment Master":
		if d.Task == "deploy_app" {
			return a.deployApp(d)
		}
	}
	return nil
}

func (a *Agents) generateConcept(d messagequeue.DelegationPayload) map[string]any {
	idea, _ := d.Content["user_idea"].(string)
	summary := fmt.Sprintf("A focused mobile app for %q with a clean onboarding flow", idea)
	if _, refining := d.Content["previous_concept"]; refining {
		summary = fmt.Sprintf("A sharper take on %q incorporating the latest feedback", idea)
	}
	return map[string]any{
		"task_name": "generate_concept",
		"status":    "completed",
		"concept_brief": map[string]any{
			"summary":         summary,
			"target_audience": "early adopters",
			"key_features":    []any{"accounts", "core workflow", "sharing"},
		},
	}
}

func (a *Agents) designArchitecture(d messagequeue.DelegationPayload) map[string]any {
	appName := "forged-app"
	if _, ok := d.Content["concept"].(map[string]any); ok {
		appName = "forged-app-v1"
	}
	return map[string]any{
		"task_name": "design_architecture",
		"status":    "completed",
		"technical_blueprint": map[string]any{
			"app_name":   appName,
			"components": []any{"api", "worker", "mobile client"},
			"data_model": "document store keyed by user",
		},
		"tech_stack_proposal": map[string]any{
			"backend":  "Go",
			"frontend": "React Native",
			"database": "PostgreSQL",
		},
	}
}

func (a *Agents) designUIUX(d messagequeue.DelegationPayload) map[string]any {
	url := "https://proto.appforge.dev/p/initial"
	if _, refining := d.Content["previous_prototype"]; refining {
		url = "https://proto.appforge.dev/p/revised"
	}
	return map[string]any{
		"task_name":     "design_ui_ux",
		"status":        "completed",
		"prototype_url": url,
		"design_guidelines": map[string]any{
			"palette":    "slate and amber",
			"typography": "Inter",
		},
	}
}

func (a *Agents) codeModule(d messagequeue.DelegationPayload) map[string]any {
	module, _ := d.Content["module_name"].(string)
	return map[string]any{
		"task_name":   d.Task,
		"status":      "completed",
		"module_name": module,
		"code_ref":    fmt.Sprintf("git://appforge/%s@main", module),
	}
}

func (a *Agents) testModule(d messagequeue.DelegationPayload) map[string]any {
	module, _ := d.Content["module_name"].(string)
	codeRef, _ := d.Content["code_ref"].(string)
	retry := retryAttempt(d.Content)

	a.mu.Lock()
	fail := a.qaFailures[module] < a.opts.FailQAModules[module]
	if fail {
		a.qaFailures[module]++
	}
	a.mu.Unlock()

	report := map[string]any{"status": "passed", "cases_run": 42}
	if fail {
		report = map[string]any{
			"status": "failed_with_bugs",
			"bugs_found": []any{
				map[string]any{
					"severity":    "major",
					"description": fmt.Sprintf("%s rejects valid input on the happy path", module),
				},
			},
		}
	}
	return map[string]any{
		"task_name":     "test_module",
		"status":        "completed",
		"module_name":   module,
		"code_ref":      codeRef,
		"retry_attempt": retry,
		"test_report":   report,
	}
}

func (a *Agents) deployApp(d messagequeue.DelegationPayload) map[string]any {
	retry := retryAttempt(d.Content)

	a.mu.Lock()
	fail := a.deployFails < a.opts.FailDeployments
	if fail {
		a.deployFails++
	}
	a.mu.Unlock()

	if fail {
		return map[string]any{
			"task_name":         "deploy_app",
			"status":            "completed",
			"deployment_status": "failure",
			"retry_attempt":     retry,
			"error":             "container registry push timed out",
		}
	}
	target, _ := d.Content["deployment_target"].(string)
	host := "apps.appforge.dev"
	if target == "local" {
		host = "private.appforge.dev"
	}
	pkg, _ := d.Content["app_package_ref"].(string)
	return map[string]any{
		"task_name":         "deploy_app",
		"status":            "completed",
		"deployment_status": "success",
		"retry_attempt":     retry,
		"app_url":           fmt.Sprintf("https://%s/%s", host, pkg),
	}
}

// retryAttempt reads the attempt counter the engine stamps into QA and
// deployment delegations. Missing or oddly typed values count as 0.
func retryAttempt(content map[string]any) int {
	switch v := content["retry_attempt"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return 0
}
