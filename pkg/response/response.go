// Package response writes the JSON envelope every endpoint answers with:
//
//	{"success": true, "message": "Login successful", "data": {...}}
package response

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-auth/pkg/errors"
)

// Envelope is the uniform response body
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON writes an envelope with the given status
func JSON(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// OK writes a 200 success envelope
func OK(w http.ResponseWriter, r *http.Request, message string, data interface{}) {
	JSON(w, r, http.StatusOK, message, data)
}

// Error maps err to its HTTP status and client-safe message. Causes of
// internal errors are logged and never written to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	JSON(w, r, status, errors.PublicMessage(err), nil)
}
