package observability

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

func InitSentry(dsn, environment string) error {
	if strings.TrimSpace(dsn) == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		BeforeSend:       scrubCredentials,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// scrubCredentials drops bearer tokens and request bodies (login bodies
// carry the pin) before an event leaves the process.
func scrubCredentials(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}

	for name := range event.Request.Headers {
		if strings.EqualFold(name, "Authorization") || strings.EqualFold(name, "Cookie") {
			delete(event.Request.Headers, name)
		}
	}
	event.Request.Data = ""
	event.Request.Cookies = ""

	return event
}
