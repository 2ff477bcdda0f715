package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tabstats/tabstats/internal/core"
	"github.com/tabstats/tabstats/internal/logging"
)

// writeError maps a core error to an HTTP status and a single
// human-readable message.
//
// Caller-input errors surface their own message; a ComputationError is
// internal, so its detail goes to the log and the client gets a generic
// message. ErrNotFound never reveals whether an entry expired, was evicted,
// or never existed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	var (
		tooLarge    *core.FileTooLargeError
		computation *core.ComputationError
	)

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound,
			"the requested data is unavailable or has expired; upload again to regenerate")

	case errors.As(err, &tooLarge):
		logger.Warn("upload rejected", "reason", "too large", "size", tooLarge.Size)
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, err.Error())

	case errors.As(err, &computation):
		logger.Error("statistics request failed", "error", computation.Unwrap())
		writeErrorMessage(w, http.StatusInternalServerError, err.Error())

	case core.IsUserInput(err):
		logger.Warn("request rejected", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, err.Error())

	default:
		logger.Error("unexpected error", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError,
			"unexpected error while processing your request; please try again")
	}
}

// writeErrorMessage writes a JSON error response.
func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeJSON encodes v as JSON with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
