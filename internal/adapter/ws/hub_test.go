package ws

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/appforge-ai/AppForge/internal/port/notifier"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.DiscardHandler))
}

func TestNewHub(t *testing.T) {
	hub := newTestHub()
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := newTestHub()

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    "test",
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubBroadcastEventNoConnections(t *testing.T) {
	hub := newTestHub()

	// BroadcastEvent with no connections should not panic.
	hub.BroadcastEvent(context.Background(), "inst-1", EventInstanceState, InstanceStateEvent{
		InstanceID: "inst-1",
		Phase:      "Implementation",
		Status:     "Coding In Progress",
	})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := newTestHub()

	// A channel cannot be marshaled to JSON — should log error, not panic.
	hub.BroadcastEvent(context.Background(), "inst-1", "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := newTestHub()

	// Removing a connection that was never added should not panic.
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &conn{ws: nil, cancel: cancel, instanceID: "inst-1"}
	hub.remove(c)
}

func TestNotifierSendNoConnections(t *testing.T) {
	n := NewNotifier(newTestHub())

	err := n.Send(context.Background(), notifier.Message{
		InstanceID:  "inst-1",
		MessageType: "QUESTION",
		Content:     "Approve this concept?",
		Options:     []string{"Approve Concept", "Reject & Refine"},
		ContextID:   "concept_approval_001",
		SentAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
}
