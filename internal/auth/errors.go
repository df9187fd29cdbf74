package auth

import (
	"errors"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Error carries a message that is safe to return to the client alongside
// the kind used to pick the HTTP status. Cause, when set, is the internal
// reason and is never shown to the client.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func validationError(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

func unauthorizedError(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func unauthorizedCause(cause error) error {
	return &Error{Kind: ErrUnauthorized, Message: "Unauthorized", Cause: cause}
}

// StatusFor maps an error to its HTTP status and public message.
func StatusFor(err error) (int, string) {
	message := "Internal error"
	var public *Error
	if errors.As(err, &public) {
		message = public.Message
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, message
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, message
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, message
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
