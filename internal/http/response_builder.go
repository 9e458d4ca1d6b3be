package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of informational replies.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// Messages for an expired edit window, per operation.
const (
	msgEditExpired   = "Cannot edit after 12 hours"
	msgDeleteExpired = "Cannot delete after 12 hours"
)

// statusFor maps a service error to a status code and client message.
// windowMsg is the text used for core.ErrEditWindowExpired.
func statusFor(err error, windowMsg string) (int, string) {
	var verr *core.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Transaction not found"
	case errors.Is(err, core.ErrEditWindowExpired):
		return http.StatusBadRequest, windowMsg
	case errors.Is(err, core.ErrStorageUnavailable):
		return http.StatusInternalServerError, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondError logs server faults and writes the mapped error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error, windowMsg string) {
	status, msg := statusFor(err, windowMsg)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}
	writeError(w, status, msg)
}
