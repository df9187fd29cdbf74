package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sink struct {
	mu       sync.Mutex
	status   int
	payloads []webhookPayload
	headers  []http.Header
}

func newSink(t *testing.T, status int) (*sink, *httptest.Server) {
	t.Helper()
	s := &sink{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload webhookPayload
		_ = json.Unmarshal(body, &payload)

		s.mu.Lock()
		s.payloads = append(s.payloads, payload)
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()

		w.WriteHeader(s.status)
	}))
	t.Cleanup(srv.Close)
	return s, srv
}

func testEvent() Event {
	return Event{
		ID:        "0190a7f4-0000-7000-8000-000000000000",
		Type:      TypeEvent,
		Username:  "kiosk",
		Action:    "volume_up",
		Details:   "level=7",
		ClientIP:  "203.0.113.7",
		UserAgent: "KioskBrowser/1.0",
		Geo:       &Geo{Country: "IT", Region: "Lazio", City: "Rome"},
		Timestamp: time.Date(2026, 3, 1, 8, 30, 15, 123_000_000, time.UTC),
	}
}

func TestFormat_AllFields(t *testing.T) {
	want := strings.Join([]string{
		"**Type:** EVENT",
		"**User:** kiosk",
		"**Action:** volume_up",
		"**Details:** level=7",
		"**IP:** 203.0.113.7",
		"**Location:** IT / Lazio / Rome",
		"**UA:** KioskBrowser/1.0",
		"**TS:** 2026-03-01T08:30:15.123Z",
		"**Ref:** 0190a7f4-0000-7000-8000-000000000000",
	}, "\n")

	require.Equal(t, want, Format(testEvent()))
}

func TestFormat_OmitsEmptyOptionalLines(t *testing.T) {
	event := Event{
		Type:      TypeLoginFail,
		ClientIP:  "unknown",
		Timestamp: time.Date(2026, 3, 1, 8, 30, 15, 0, time.UTC),
	}

	require.Equal(t, "**Type:** LOGIN_FAIL\n**IP:** unknown\n**Location:** n/a\n**TS:** 2026-03-01T08:30:15.000Z", Format(event))
}

func TestFormat_TruncatesUserAgent(t *testing.T) {
	event := testEvent()
	event.UserAgent = strings.Repeat("u", 500)

	out := Format(event)
	require.Contains(t, out, "**UA:** "+strings.Repeat("u", 160)+"\n")
	require.NotContains(t, out, strings.Repeat("u", 161))
}

func TestGeoLocation(t *testing.T) {
	var nilGeo *Geo
	require.Equal(t, "n/a", nilGeo.Location())
	require.Equal(t, "n/a", (&Geo{}).Location())
	require.Equal(t, "IT / Rome", (&Geo{Country: "IT", City: "Rome"}).Location())
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "", Truncate("", 5))
	require.Equal(t, "abc", Truncate("abc", 3))
	require.Equal(t, "ab", Truncate("abc", 2))
	require.Equal(t, "", Truncate("abc", 0))
	require.Equal(t, "àé", Truncate("àéîõ", 2))
}

func TestWebhookNotify_PostsContent(t *testing.T) {
	s, srv := newSink(t, http.StatusNoContent)
	hook := NewWebhook(srv.URL, 0)

	require.True(t, hook.Enabled())
	require.NoError(t, hook.Notify(context.Background(), testEvent()))

	require.Len(t, s.payloads, 1)
	require.Equal(t, Format(testEvent()), s.payloads[0].Content)
	require.Equal(t, "application/json", s.headers[0].Get("Content-Type"))
}

func TestWebhookNotify_SkipsWithoutURL(t *testing.T) {
	hook := NewWebhook("  ", 0)

	require.False(t, hook.Enabled())
	require.NoError(t, hook.Notify(context.Background(), testEvent()))
}

func TestWebhookNotify_Non2xxIsError(t *testing.T) {
	s, srv := newSink(t, http.StatusBadGateway)
	hook := NewWebhook(srv.URL, time.Second)

	err := hook.Notify(context.Background(), testEvent())
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
	require.Len(t, s.payloads, 1)
}

func TestWebhookNotify_TransportError(t *testing.T) {
	_, srv := newSink(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	err := NewWebhook(url, time.Second).Notify(context.Background(), testEvent())
	require.Error(t, err)
}

func TestNewEvent(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	meta := RequestMeta{ClientIP: "198.51.100.1", UserAgent: "ua", Geo: &Geo{Country: "DE"}}

	event := NewEvent(TypeLoginOK, meta, now)

	require.Equal(t, TypeLoginOK, event.Type)
	require.Equal(t, "198.51.100.1", event.ClientIP)
	require.Equal(t, "ua", event.UserAgent)
	require.Equal(t, "DE", event.Geo.Country)
	require.Equal(t, time.UTC, event.Timestamp.Location())
	require.True(t, event.Timestamp.Equal(now))
	require.Len(t, event.ID, 36)
}
