package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.For(applog.ComponentHTTP).Error("Failed to encode response", applog.FieldError, err)
	}
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindInvalidCurrency, core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindUnauthorized:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. Details of internal errors stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)

	attrs := []any{
		applog.FieldRequestID, trace.GetRequestID(r.Context()),
		applog.FieldUserID, principalFrom(r.Context()).UserID,
		"kind", kind.String(),
		applog.FieldError, err,
	}
	logger := applog.For(applog.ComponentHTTP)
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", attrs...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", attrs...)
	}

	msg := core.PublicMessage(err)
	if kind == core.KindExternalService {
		msg = "External service error: " + msg
	}
	writeStatus(w, r, status, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return core.InvalidInput(fmt.Errorf("request body exceeds %d bytes", maxErr.Limit))
		}
		return core.InvalidInput(fmt.Errorf("malformed JSON body: %w", err))
	}
	return nil
}
