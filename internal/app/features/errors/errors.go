// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	demandsvc "github.com/GlennEriss/kara-client-front-sub014/internal/app/services/demands"
	"go.uber.org/zap"
)

// Error kinds reported in the "error" field of a JSON error body.
const (
	KindNotFound          = "not_found"
	KindInvalidTransition = "invalid_transition"
	KindInvalidState      = "invalid_state"
	KindAlreadyConverted  = "already_converted"
	KindConflict          = "conflict"
	KindConfiguration     = "configuration"
	KindValidation        = "validation"
	KindInfrastructure    = "infrastructure"
	KindInternal          = "internal"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Classify maps a service error to its HTTP status and kind.
func Classify(err error) (int, string) {
	var infra *demandsvc.InfrastructureError
	switch {
	case stderrors.Is(err, demandsvc.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case stderrors.Is(err, demandsvc.ErrInvalidTransition):
		return http.StatusConflict, KindInvalidTransition
	case stderrors.Is(err, demandsvc.ErrAlreadyConverted):
		return http.StatusConflict, KindAlreadyConverted
	case stderrors.Is(err, demandsvc.ErrConflict):
		return http.StatusConflict, KindConflict
	case stderrors.Is(err, demandsvc.ErrInvalidState):
		return http.StatusUnprocessableEntity, KindInvalidState
	case stderrors.Is(err, demandsvc.ErrConfiguration):
		return http.StatusServiceUnavailable, KindConfiguration
	case stderrors.Is(err, demandsvc.ErrValidation):
		return http.StatusBadRequest, KindValidation
	case stderrors.As(err, &infra):
		return http.StatusInternalServerError, KindInfrastructure
	}
	return http.StatusInternalServerError, KindInternal
}

// ErrorLogger writes error responses and logs the ones that are the
// server's fault.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// Write renders err as a JSON error body with the status from Classify.
// 5xx responses are logged with the request path.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := Classify(err)
	if status >= 500 && e != nil && e.log != nil {
		e.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", kind),
			zap.Error(err))
	}
	WriteJSON(w, status, Body{Error: kind, Message: err.Error()})
}

// BadRequest writes a validation error with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, Body{Error: KindValidation, Message: msg})
}

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
