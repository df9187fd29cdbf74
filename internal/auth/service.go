package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kiosk-edge/internal/audit"
	"kiosk-edge/internal/observability"
	"kiosk-edge/internal/token"
)

const (
	TokenTTL = 12 * time.Hour

	maxActionChars  = 80
	maxDetailsChars = 300
)

type Service struct {
	signer   *token.Signer
	notifier audit.Notifier
	logger   *observability.Logger
	adminPIN string
	now      func() time.Time
}

func NewService(signer *token.Signer, notifier audit.Notifier, logger *observability.Logger, adminPIN string) *Service {
	if notifier == nil {
		notifier = audit.NopNotifier{}
	}

	return &Service{
		signer:   signer,
		notifier: notifier,
		logger:   logger,
		adminPIN: adminPIN,
		now:      time.Now,
	}
}

// Login checks the pin against the configured secret and issues a token
// valid for TokenTTL. Both outcomes are reported to the notifier.
func (s *Service) Login(ctx context.Context, creds Credentials, meta audit.RequestMeta) (Session, error) {
	username := strings.TrimSpace(creds.Username)
	pin := strings.TrimSpace(creds.PIN)
	if username == "" || pin == "" {
		return Session{}, validationError("Missing fields")
	}

	now := s.now()

	// Plain comparison; only token signatures are compared in constant time.
	if pin != s.adminPIN {
		event := audit.NewEvent(audit.TypeLoginFail, meta, now)
		event.Username = username
		s.notify(ctx, event)
		return Session{}, unauthorizedError("Invalid credentials")
	}

	expiresAt := now.Add(TokenTTL).UnixMilli()
	signed, err := s.signer.Sign(token.Claims{Subject: username, ExpiresAt: expiresAt})
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}

	event := audit.NewEvent(audit.TypeLoginOK, meta, now)
	event.Username = username
	s.notify(ctx, event)

	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// Authenticate verifies a bearer token and rejects it once expired or when
// its claims could not have come from Login.
func (s *Service) Authenticate(bearer string) (token.Claims, error) {
	if bearer == "" {
		return token.Claims{}, unauthorizedError("Unauthorized")
	}

	claims, err := s.signer.Verify(bearer)
	if err != nil {
		return token.Claims{}, unauthorizedCause(err)
	}
	// Login never signs these; a correctly signed one is still not a session.
	if claims.Subject == "" || claims.ExpiresAt <= 0 {
		return token.Claims{}, unauthorizedCause(token.ErrMalformed)
	}
	if claims.Expired(s.now()) {
		return token.Claims{}, unauthorizedCause(token.ErrExpired)
	}

	return claims, nil
}

func (s *Service) SubmitEvent(ctx context.Context, claims token.Claims, input EventInput, meta audit.RequestMeta) {
	event := audit.NewEvent(audit.TypeEvent, meta, s.now())
	event.Username = claims.Subject
	event.Action = audit.Truncate(input.Action, maxActionChars)
	event.Details = audit.Truncate(input.Details, maxDetailsChars)
	s.notify(ctx, event)
}

// notify is at-most-once: the delivery error is logged and dropped so it
// can never change the outcome already decided for the request.
func (s *Service) notify(ctx context.Context, event audit.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("audit_delivery_failed", map[string]any{
			"event_id": event.ID,
			"type":     string(event.Type),
			"error":    err.Error(),
		})
	}
}
