// Package utils writes the JSON bodies shared by every HTTP handler.
package utils

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrorResponse is the body of every error answer. RequestID matches the
// request_id of the access log line.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorStatus answers errors matching Err (errors.Is) with Status.
type ErrorStatus struct {
	Err    error
	Status int
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: msg})
}

// WriteServiceError answers err with the first status it matches and its
// message. Anything unmatched is logged and answered 500 without detail.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error, statuses []ErrorStatus) {
	reqID := middleware.GetReqID(r.Context())
	status, msg := http.StatusInternalServerError, "internal error"
	matched := false
	for _, s := range statuses {
		if errors.Is(err, s.Err) {
			status, msg, matched = s.Status, err.Error(), true
			break
		}
	}
	if !matched {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", reqID, "error", err)
	}
	WriteJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: msg, RequestID: reqID})
}
