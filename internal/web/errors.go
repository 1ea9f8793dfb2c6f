package web

// errors.go provides unified error response handling for the status server.
//
// Errors are logged with full technical detail and the request ID, then
// returned to clients as the mapped user message from core.MapError.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/docmigrate/internal/core"
	"github.com/JonMunkholm/docmigrate/internal/logging"
)

// errNoLedger is returned by /api/runs when no ledger database is configured.
var errNoLedger = errors.New("run ledger is not configured")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the user-facing JSON
// response.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
