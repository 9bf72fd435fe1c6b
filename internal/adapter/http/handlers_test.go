package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/appforge-ai/AppForge/internal/domain"
	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/domain/state"
	"github.com/appforge-ai/AppForge/internal/port/eventlog"
	"github.com/appforge-ai/AppForge/internal/port/statestore"
)

type memStore struct {
	instances map[string]*statestore.Instance
}

func newMemStore() *memStore {
	return &memStore{instances: map[string]*statestore.Instance{}}
}

func (s *memStore) Create(_ context.Context, id string, doc state.Document) error {
	now := time.Now().UTC()
	s.instances[id] = &statestore.Instance{ID: id, State: doc, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*statestore.Instance, error) {
	inst, ok := s.instances[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inst, nil
}

func (s *memStore) Save(_ context.Context, id string, doc state.Document) error {
	s.instances[id].State = doc
	return nil
}

func (s *memStore) List(_ context.Context) ([]statestore.Instance, error) {
	out := make([]statestore.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, *inst)
	}
	return out, nil
}

type memLog struct {
	records []eventlog.Record
}

func (l *memLog) Append(_ context.Context, rec *eventlog.Record) error {
	l.records = append(l.records, *rec)
	return nil
}

func (l *memLog) ListByInstance(_ context.Context, instanceID string, _ int) ([]eventlog.Record, error) {
	var out []eventlog.Record
	for _, rec := range l.records {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fixture struct {
	router    chi.Router
	store     *memStore
	log       *memLog
	published []*event.Event
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), log: &memLog{}}
	h := &Handlers{
		Store:  f.store,
		Events: f.log,
		Publish: func(_ context.Context, ev *event.Event) error {
			f.published = append(f.published, ev)
			return nil
		},
		Version: "test",
	}
	f.router = chi.NewRouter()
	MountRoutes(f.router, h)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateInstancePublishesStart(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/instances", map[string]string{
		"user_idea": "a recipe sharing app",
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	if len(f.published) != 1 {
		t.Fatalf("published = %d events, want 1", len(f.published))
	}
	ev := f.published[0]
	if ev.Kind != event.KindStart {
		t.Errorf("kind = %q, want start", ev.Kind)
	}
	if ev.Content["user_idea"] != "a recipe sharing app" {
		t.Errorf("content = %v", ev.Content)
	}

	var resp acceptedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.InstanceID != ev.ProjectID || resp.EventID != ev.ID {
		t.Errorf("response %+v does not match event %s/%s", resp, ev.ProjectID, ev.ID)
	}
}

func TestCreateInstanceRequiresIdea(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/instances", map[string]string{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(f.published) != 0 {
		t.Fatalf("published = %d events, want 0", len(f.published))
	}
}

func TestGetInstanceSummary(t *testing.T) {
	f := newFixture()
	doc := state.NewProject()
	doc.Set("status", "Coding In Progress")
	doc.Set("current_phase", "Implementation")
	doc.Set("app_idea", "a recipe sharing app")
	doc.Set("code_modules_status.core_logic", "coding")
	_ = f.store.Create(context.Background(), "inst-1", doc)

	rec := f.do(t, http.MethodGet, "/api/v1/instances/inst-1", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var got instanceSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "inst-1" || got.Phase != "Implementation" || got.Status != "Coding In Progress" {
		t.Errorf("summary = %+v", got)
	}
	modules, ok := got.Modules.(map[string]any)
	if !ok || modules["core_logic"] != "coding" {
		t.Errorf("modules = %v", got.Modules)
	}
}

func TestGetInstanceNotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/instances/nope", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitHumanInput(t *testing.T) {
	f := newFixture()
	_ = f.store.Create(context.Background(), "inst-1", state.NewProject())

	rec := f.do(t, http.MethodPost, "/api/v1/instances/inst-1/input", map[string]string{
		"response": "Approve Concept",
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	if len(f.published) != 1 {
		t.Fatalf("published = %d events, want 1", len(f.published))
	}
	ev := f.published[0]
	if ev.Kind != event.KindHumanInput || ev.Response != "Approve Concept" || ev.ProjectID != "inst-1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.ContextID != "" {
		t.Errorf("context_id = %q, want empty for pending-context correlation", ev.ContextID)
	}
}

func TestSubmitHumanInputUnknownInstance(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/instances/nope/input", map[string]string{
		"response": "Approve Concept",
	})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitEventRejectsUnknownKind(t *testing.T) {
	f := newFixture()
	_ = f.store.Create(context.Background(), "inst-1", state.NewProject())

	rec := f.do(t, http.MethodPost, "/api/v1/instances/inst-1/events", map[string]any{
		"kind": "telepathy",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
}

func TestListInstanceEvents(t *testing.T) {
	f := newFixture()
	_ = f.log.Append(context.Background(), &eventlog.Record{
		EventID:    "ev-1",
		InstanceID: "inst-1",
		Kind:       "start",
		Outcome:    eventlog.OutcomeMatched,
		Rule:       "kick off a new project from a user idea",
	})
	_ = f.log.Append(context.Background(), &eventlog.Record{
		EventID:    "ev-2",
		InstanceID: "other",
		Kind:       "start",
		Outcome:    eventlog.OutcomeMatched,
	})

	rec := f.do(t, http.MethodGet, "/api/v1/instances/inst-1/events", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var records []eventlog.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(records) != 1 || records[0].EventID != "ev-1" {
		t.Errorf("records = %+v", records)
	}
}

func TestListInstanceEventsRejectsBadLimit(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/instances/inst-1/events?limit=zero", nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
