package auth

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"

	"kiosk-edge/internal/audit"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body := decodeBody[loginRequest](w, r)

	session, err := h.service.Login(r.Context(), Credentials{Username: string(body.Username), PIN: string(body.PIN)}, audit.MetaFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{OK: true, Token: session.Token, ExpiresAt: session.ExpiresAt})
}

// Event must be mounted behind Middleware.
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeServiceError(w, unauthorizedError("Unauthorized"))
		return
	}

	body := decodeBody[eventRequest](w, r)

	h.service.SubmitEvent(r.Context(), claims, EventInput{Action: string(body.Action), Details: string(body.Details)}, audit.MetaFromRequest(r))

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// decodeBody returns the zero value when the body is missing or is not a
// JSON object of the expected shape, so field validation reports the
// problem instead of a parse error.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) T {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body T
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var empty T
		return empty
	}
	return body
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, message := StatusFor(err)
	if status == http.StatusInternalServerError {
		sentry.CaptureException(err)
	}
	WriteError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes the shared {ok:false, error} body.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{OK: false, Error: message})
}
