package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxUserAgentChars = 160
	isoMillis         = "2006-01-02T15:04:05.000Z"
)

// Webhook posts a Discord-style {"content": "..."} summary of each event.
// An empty URL turns every Notify into a no-op.
type Webhook struct {
	url        string
	httpClient *http.Client
}

type webhookPayload struct {
	Content string `json:"content"`
}

// NewWebhook builds a webhook notifier. A zero timeout leaves the client
// without a deadline of its own.
func NewWebhook(rawURL string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:        strings.TrimSpace(rawURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Enabled() bool {
	return w.url != ""
}

func (w *Webhook) Notify(ctx context.Context, event Event) error {
	if !w.Enabled() {
		return nil
	}

	body, err := json.Marshal(webhookPayload{Content: Format(event)})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	return nil
}

// Format renders the event as the markdown lines posted to the webhook.
func Format(event Event) string {
	lines := []string{"**Type:** " + string(event.Type)}
	if event.Username != "" {
		lines = append(lines, "**User:** "+event.Username)
	}
	if event.Action != "" {
		lines = append(lines, "**Action:** "+event.Action)
	}
	if event.Details != "" {
		lines = append(lines, "**Details:** "+event.Details)
	}
	lines = append(lines,
		"**IP:** "+event.ClientIP,
		"**Location:** "+event.Geo.Location(),
	)
	if event.UserAgent != "" {
		lines = append(lines, "**UA:** "+Truncate(event.UserAgent, maxUserAgentChars))
	}
	lines = append(lines, "**TS:** "+event.Timestamp.UTC().Format(isoMillis))
	if event.ID != "" {
		lines = append(lines, "**Ref:** "+event.ID)
	}

	return strings.Join(lines, "\n")
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
