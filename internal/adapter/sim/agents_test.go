package sim_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/appforge-ai/AppForge/internal/adapter/sim"
	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
)

type fakeQueue struct {
	handler messagequeue.Handler
}

func (q *fakeQueue) Publish(context.Context, string, []byte) error { return nil }
func (q *fakeQueue) Subscribe(_ context.Context, _ string, h messagequeue.Handler) (func(), error) {
	q.handler = h
	return func() {}, nil
}
func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

type captured struct {
	mu     sync.Mutex
	events []*event.Event
}

func (c *captured) publish(_ context.Context, ev *event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func deliver(t *testing.T, q *fakeQueue, d messagequeue.DelegationPayload) {
	t.Helper()
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal delegation: %v", err)
	}
	if err := q.handler(context.Background(), messagequeue.SubjectDelegations+".test", data); err != nil {
		t.Fatalf("handle delegation: %v", err)
	}
}

func newAgents(t *testing.T, opts sim.Options) (*fakeQueue, *captured) {
	t.Helper()
	q := &fakeQueue{}
	c := &captured{}
	agents := sim.New(q, c.publish, slog.New(slog.DiscardHandler), opts)
	cancel, err := agents.Start(context.Background())
	if err != nil {
		t.Fatalf("start agents: %v", err)
	}
	t.Cleanup(cancel)
	return q, c
}

func TestConceptReplyEchoesContext(t *testing.T) {
	q, c := newAgents(t, sim.Options{})

	deliver(t, q, messagequeue.DelegationPayload{
		InstanceID: "proj-1",
		Agent:      "Dream Weaver",
		Task:       "generate_concept",
		ContextID:  "concept_gen_001",
		Content:    map[string]any{"user_idea": "a plant care app"},
	})

	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	ev := c.events[0]
	if ev.Kind != event.KindAgentResult {
		t.Errorf("kind = %q, want agent_result", ev.Kind)
	}
	if ev.Sender != "Dream Weaver" || ev.ContextID != "concept_gen_001" || ev.ProjectID != "proj-1" {
		t.Errorf("envelope = %+v", ev)
	}
	if ev.Content["status"] != "completed" || ev.Content["task_name"] != "generate_concept" {
		t.Errorf("content = %v", ev.Content)
	}
	brief, ok := ev.Content["concept_brief"].(map[string]any)
	if !ok || brief["summary"] == "" {
		t.Errorf("concept_brief = %v", ev.Content["concept_brief"])
	}
}

func TestQAFailsScheduledTimesThenPasses(t *testing.T) {
	q, c := newAgents(t, sim.Options{FailQAModules: map[string]int{"core_logic": 2}})

	for attempt := 0; attempt < 3; attempt++ {
		deliver(t, q, messagequeue.DelegationPayload{
			InstanceID: "proj-1",
			Agent:      "Quality Guardian",
			Task:       "test_module",
			ContextID:  "module_core_logic",
			Content: map[string]any{
				"module_name":   "core_logic",
				"code_ref":      "git://appforge/core_logic@main",
				"retry_attempt": attempt,
			},
		})
	}

	if len(c.events) != 3 {
		t.Fatalf("events = %d, want 3", len(c.events))
	}
	for i, want := range []string{"failed_with_bugs", "failed_with_bugs", "passed"} {
		report := c.events[i].Content["test_report"].(map[string]any)
		if report["status"] != want {
			t.Errorf("attempt %d: report status = %v, want %s", i, report["status"], want)
		}
		if got := c.events[i].Content["retry_attempt"]; got != i {
			t.Errorf("attempt %d: retry_attempt = %v", i, got)
		}
	}
}

func TestDeployFailureThenSuccess(t *testing.T) {
	q, c := newAgents(t, sim.Options{FailDeployments: 1})

	for attempt := 0; attempt < 2; attempt++ {
		deliver(t, q, messagequeue.DelegationPayload{
			InstanceID: "proj-1",
			Agent:      "Deployment Master",
			Task:       "deploy_app",
			ContextID:  "deploy_001",
			Content: map[string]any{
				"app_package_ref":   "forged-app-v1",
				"deployment_target": "cloud",
				"environment":       "prod",
				"retry_attempt":     attempt,
			},
		})
	}

	if len(c.events) != 2 {
		t.Fatalf("events = %d, want 2", len(c.events))
	}
	if got := c.events[0].Content["deployment_status"]; got != "failure" {
		t.Errorf("first attempt = %v, want failure", got)
	}
	second := c.events[1].Content
	if second["deployment_status"] != "success" {
		t.Errorf("second attempt = %v, want success", second["deployment_status"])
	}
	if url, _ := second["app_url"].(string); url != "https://apps.appforge.dev/forged-app-v1" {
		t.Errorf("app_url = %q", url)
	}
}

func TestUnknownTaskReportsFailure(t *testing.T) {
	q, c := newAgents(t, sim.Options{})

	deliver(t, q, messagequeue.DelegationPayload{
		InstanceID: "proj-1",
		Agent:      "Dream Weaver",
		Task:       "paint_fence",
		ContextID:  "ctx-odd",
	})

	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	if c.events[0].Kind != event.KindStatusUpdate {
		t.Errorf("kind = %q, want status_update", c.events[0].Kind)
	}
	if c.events[0].Content["status"] != "failed" {
		t.Errorf("content = %v", c.events[0].Content)
	}
}
