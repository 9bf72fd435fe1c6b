// Package slack implements a notifier.Notifier for Slack webhooks,
// delivering workflow human-messages as Block Kit posts.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/appforge-ai/AppForge/internal/port/notifier"
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("slack webhook URL not configured")

// Notifier sends workflow messages to Slack via incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

var _ notifier.Notifier = (*Notifier)(nil)

// NewNotifier creates a Slack notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: http.DefaultClient,
	}
}

// slackMessage is the Slack Block Kit message payload.
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, msg notifier.Message) error {
	if n.webhookURL == "" {
		return ErrNotConfigured
	}

	header := fmt.Sprintf("%s %s", typeTag(msg.MessageType), msg.InstanceID)
	payload := slackMessage{
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: msg.Content}},
		},
	}

	if len(msg.Options) > 0 {
		var b strings.Builder
		b.WriteString("*Reply with one of:*")
		for _, opt := range msg.Options {
			b.WriteString("\n• " + opt)
		}
		payload.Blocks = append(payload.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: b.String()},
		})
	}

	if msg.ContextID != "" {
		payload.Blocks = append(payload.Blocks, slackBlock{
			Type: "context",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("_Context: %s_", msg.ContextID)},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

func typeTag(messageType string) string {
	switch messageType {
	case "SUCCESS":
		return "[OK]"
	case "ERROR", "CRITICAL_ISSUE":
		return "[ERROR]"
	case "QUESTION", "INSTRUCTION":
		return "[INPUT NEEDED]"
	default:
		return "[INFO]"
	}
}
