package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/appforge-ai/AppForge/internal/port/notifier"
)

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier("")
	err := n.Send(context.Background(), notifier.Message{Content: "test"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendQuestionWithOptions(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	err := n.Send(context.Background(), notifier.Message{
		InstanceID:  "inst-1",
		MessageType: "QUESTION",
		Content:     "Approve this concept?",
		Options:     []string{"Approve Concept", "Reject & Refine"},
		ContextID:   "concept_approval_001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload slackMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4 (header, content, options, context)", len(payload.Blocks))
	}
	if !strings.Contains(payload.Blocks[0].Text.Text, "[INPUT NEEDED]") {
		t.Errorf("header = %q", payload.Blocks[0].Text.Text)
	}
	if !strings.Contains(payload.Blocks[2].Text.Text, "Approve Concept") {
		t.Errorf("options block = %q", payload.Blocks[2].Text.Text)
	}
	if !strings.Contains(payload.Blocks[3].Text.Text, "concept_approval_001") {
		t.Errorf("context block = %q", payload.Blocks[3].Text.Text)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	err := n.Send(context.Background(), notifier.Message{Content: "x"})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected API error, got %v", err)
	}
}
