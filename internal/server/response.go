package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// StatusForError maps an error code onto an HTTP status.
func StatusForError(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrForbidden:
		return http.StatusForbidden
	case errors.ErrNotReady:
		return http.StatusUnprocessableEntity
	case errors.ErrWrongStorage:
		return http.StatusConflict
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrInvalid:
		return http.StatusBadRequest
	case errors.ErrTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithCode("Request failed", string(errors.CodeOf(err)), err)
	}
	writeJSON(w, status, errorResponse{
		Code:      string(errors.CodeOf(err)),
		Message:   errors.UserMessage(err),
		Retryable: errors.IsRetryable(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// requestLogger logs each request through the structured logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logging.Debug("HTTP request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}
