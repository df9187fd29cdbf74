package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://kiosk.example.com"

func assertCORS(t *testing.T, header http.Header) {
	t.Helper()
	require.Equal(t, testOrigin, header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "POST, GET, OPTIONS", header.Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type, Authorization", header.Get("Access-Control-Allow-Headers"))
	require.Equal(t, "86400", header.Get("Access-Control-Max-Age"))
}

func TestCORSMiddleware_PreflightAnyPath(t *testing.T) {
	called := false
	handler := CORSMiddleware(testOrigin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, path := range []string{"/login", "/event", "/anything/else"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, path, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Body.Bytes())
		assertCORS(t, rec.Header())
	}
	require.False(t, called)
}

func TestCORSMiddleware_HeadersOnErrorResponses(t *testing.T) {
	handler := CORSMiddleware(testOrigin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	assertCORS(t, rec.Header())
}

func TestRecoverMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := NewLoggerTo(&logs)
	handler := CORSMiddleware(testOrigin, RecoverMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assertCORS(t, rec.Header())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["ok"])
	require.Equal(t, "Internal error", body["error"])
	require.Contains(t, logs.String(), `"message":"panic_recovered"`)
}

func TestRequestLoggingMiddleware(t *testing.T) {
	var logs bytes.Buffer
	handler := RequestLoggingMiddleware(NewLoggerTo(&logs), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/foo", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.5")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(logs.String())), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "/foo", entry["path"])
	require.Equal(t, float64(http.StatusNotFound), entry["status"])
	require.Equal(t, "203.0.113.5", entry["ip"])
}

func TestLogger_MergesFields(t *testing.T) {
	var logs bytes.Buffer
	base := NewLoggerTo(&logs).With(map[string]any{"service": "kiosk-edge", "env": "test"})
	base.Warn("audit_delivery_failed", map[string]any{"error": "timeout", "env": "override"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "audit_delivery_failed", entry["message"])
	require.Equal(t, "timeout", entry["error"])
	require.Equal(t, "kiosk-edge", entry["service"])
	require.Equal(t, "override", entry["env"])
	require.NotEmpty(t, entry["timestamp"])
}

func TestLogger_ReservedKeysWin(t *testing.T) {
	var logs bytes.Buffer
	NewLoggerTo(&logs).Error("real", map[string]any{"message": "spoofed", "level": "info"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	require.Equal(t, "real", entry["message"])
	require.Equal(t, "error", entry["level"])
}

func TestScrubCredentials(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		Headers: map[string]string{"authorization": "Bearer abc", "User-Agent": "kiosk", "Cookie": "a=b"},
		Data:    `{"username":"kiosk","pin":"1234"}`,
		Cookies: "a=b",
	}}

	out := scrubCredentials(event, nil)

	require.Equal(t, map[string]string{"User-Agent": "kiosk"}, out.Request.Headers)
	require.Empty(t, out.Request.Data)
	require.Empty(t, out.Request.Cookies)
	require.Nil(t, scrubCredentials(nil, nil))
}
