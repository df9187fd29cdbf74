package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLoginOK   Type = "LOGIN_OK"
	TypeLoginFail Type = "LOGIN_FAIL"
	TypeEvent     Type = "EVENT"
)

type Geo struct {
	Country string
	Region  string
	City    string
}

// Location renders the geo as "country / region / city", skipping blanks.
func (g *Geo) Location() string {
	if g == nil {
		return "n/a"
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{g.Country, g.Region, g.City} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "n/a"
	}
	return strings.Join(parts, " / ")
}

// Event is built per request and handed to a Notifier; it is never stored.
type Event struct {
	ID        string
	Type      Type
	Username  string
	Action    string
	Details   string
	ClientIP  string
	UserAgent string
	Geo       *Geo
	Timestamp time.Time
}

func NewEvent(eventType Type, meta RequestMeta, now time.Time) Event {
	id := ""
	if v7, err := uuid.NewV7(); err == nil {
		id = v7.String()
	}

	return Event{
		ID:        id,
		Type:      eventType,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		Geo:       meta.Geo,
		Timestamp: now.UTC(),
	}
}

// Notifier delivers audit events somewhere outside the gateway.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
