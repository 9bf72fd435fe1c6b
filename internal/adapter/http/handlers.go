package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/port/eventlog"
	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
	"github.com/appforge-ai/AppForge/internal/port/statestore"
)

// PublishFunc places an event on the inbound queue for the engine.
type PublishFunc func(ctx context.Context, ev *event.Event) error

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Store   statestore.Store
	Events  eventlog.Log
	Queue   messagequeue.Queue
	Publish PublishFunc
	Version string
}

var knownKinds = map[event.Kind]bool{
	event.KindStart:        true,
	event.KindAgentResult:  true,
	event.KindHumanInput:   true,
	event.KindStatusUpdate: true,
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the queue connection is up. Instances cannot
// make progress while publishes fail, so readiness follows the queue.
func (h *Handlers) Ready(w http.ResponseWriter, _ *http.Request) {
	if h.Queue != nil && !h.Queue.IsConnected() {
		writeError(w, http.StatusServiceUnavailable, "message queue unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ---------------------------------------------------------------------------
// Instances
// ---------------------------------------------------------------------------

type createInstanceRequest struct {
	UserIdea string `json:"user_idea"`
}

type acceptedResponse struct {
	InstanceID string `json:"instance_id"`
	EventID    string `json:"event_id"`
}

// CreateInstance starts a new workflow instance from a user idea. The
// start event is queued; the instance materializes when the engine
// processes it.
func (h *Handlers) CreateInstance(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createInstanceRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.UserIdea, "user_idea") {
		return
	}

	ev := &event.Event{
		ID:        uuid.NewString(),
		ProjectID: uuid.NewString(),
		Kind:      event.KindStart,
		Sender:    "api",
		Content:   map[string]any{"user_idea": req.UserIdea},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Publish(r.Context(), ev); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{InstanceID: ev.ProjectID, EventID: ev.ID})
}

// instanceSummary is the client view of one workflow instance.
type instanceSummary struct {
	ID           string    `json:"id"`
	Phase        string    `json:"phase"`
	Status       string    `json:"status"`
	AppIdea      any       `json:"app_idea,omitempty"`
	ConceptBrief any       `json:"concept_brief,omitempty"`
	Modules      any       `json:"code_modules_status,omitempty"`
	Escalations  any       `json:"escalated_issues,omitempty"`
	PendingHuman any       `json:"pending_human_approval_context,omitempty"`
	FinalAppURL  any       `json:"final_app_url,omitempty"`
	OpenContexts []string  `json:"open_contexts,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func summarize(inst *statestore.Instance) instanceSummary {
	doc := inst.State
	s := instanceSummary{
		ID:           inst.ID,
		Phase:        doc.Phase(),
		Status:       doc.Status(),
		OpenContexts: doc.OpenContexts(),
		CreatedAt:    inst.CreatedAt,
		UpdatedAt:    inst.UpdatedAt,
	}
	s.AppIdea, _ = doc.Get("app_idea")
	s.ConceptBrief, _ = doc.Get("concept_brief")
	s.Modules, _ = doc.Get("code_modules_status")
	s.Escalations, _ = doc.Get("escalated_issues")
	s.PendingHuman, _ = doc.Get("pending_human_approval_context")
	s.FinalAppURL, _ = doc.Get("final_app_url")
	return s
}

func (h *Handlers) ListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := h.Store.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	summaries := make([]instanceSummary, 0, len(instances))
	for i := range instances {
		summaries = append(summaries, summarize(&instances[i]))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handlers) GetInstance(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	inst, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "instance not found")
		return
	}
	writeJSON(w, http.StatusOK, summarize(inst))
}

// GetInstanceState returns the raw project-state document.
func (h *Handlers) GetInstanceState(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	inst, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "instance not found")
		return
	}
	writeJSON(w, http.StatusOK, inst.State)
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

type submitEventRequest struct {
	Kind      string         `json:"kind"`
	Sender    string         `json:"sender"`
	ContextID string         `json:"context_id"`
	Response  string         `json:"response"`
	Content   map[string]any `json:"content"`
}

// SubmitEvent queues an arbitrary event against an existing instance.
// Agents normally report over the queue directly; this endpoint exists
// for integrations and manual intervention.
func (h *Handlers) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[submitEventRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Kind, "kind") {
		return
	}
	kind := event.Kind(req.Kind)
	if !knownKinds[kind] {
		writeError(w, http.StatusBadRequest, "unknown event kind "+req.Kind)
		return
	}

	if kind != event.KindStart {
		if _, err := h.Store.Get(r.Context(), id); err != nil {
			writeDomainError(w, err, "instance not found")
			return
		}
	}

	ev := &event.Event{
		ID:        uuid.NewString(),
		ProjectID: id,
		Kind:      kind,
		Sender:    req.Sender,
		ContextID: req.ContextID,
		Response:  req.Response,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Publish(r.Context(), ev); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{InstanceID: id, EventID: ev.ID})
}

type humanInputRequest struct {
	Response  string         `json:"response"`
	ContextID string         `json:"context_id"`
	Content   map[string]any `json:"content"`
}

// SubmitHumanInput queues a human reply. An empty context_id lets the
// engine correlate against the pending approval context.
func (h *Handlers) SubmitHumanInput(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[humanInputRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Response, "response") {
		return
	}
	if _, err := h.Store.Get(r.Context(), id); err != nil {
		writeDomainError(w, err, "instance not found")
		return
	}

	ev := &event.Event{
		ID:        uuid.NewString(),
		ProjectID: id,
		Kind:      event.KindHumanInput,
		Sender:    "human",
		ContextID: req.ContextID,
		Response:  req.Response,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Publish(r.Context(), ev); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{InstanceID: id, EventID: ev.ID})
}

// ListInstanceEvents returns the processed-event archive for an instance.
func (h *Handlers) ListInstanceEvents(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.Events.ListByInstance(r.Context(), id, limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if records == nil {
		records = []eventlog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
