// Package respond writes JSON bodies and taxonomy-mapped error envelopes.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/logging"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes {"error":{"message","type","code"}} with status.
func Message(w http.ResponseWriter, status int, errType, message string) {
	JSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    errType,
			"code":    status,
		},
	})
}

// Error maps err through the taxonomy. Server-side failures are logged with
// the underlying chain; clients only see the taxonomy message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("❌ Request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}
	Message(w, status, apperr.Type(err), apperr.Message(err))
}
