package api

import (
	"encoding/json"
	"net/http"

	"envelope-service/pkg/envelope"
	"envelope-service/pkg/logger"
)

// respond writes resp as JSON. A 204 gets the status line only since HTTP
// forbids a body on it.
func respond(w http.ResponseWriter, resp envelope.Response) {
	if resp.Status == http.StatusNoContent {
		w.WriteHeader(resp.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.Status)
	if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
		logger.Error("failed to encode response body", err)
	}
}
