package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"groovebox/model"
)

// HealthHandler reports whether the server runs and the catalog document is
// present and readable. The player shows a full-page status message when this
// endpoint reports a failure, so the body carries the reason.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if _, err := os.Stat(h.cfg.CatalogPath); os.IsNotExist(err) {
		writeJSON(w, http.StatusServiceUnavailable, model.HealthResponse{
			Status:    "ERROR",
			Message:   "The songs.json file does not exist",
			Timestamp: timestamp,
			Database:  "disconnected",
		})
		return
	}

	data, err := os.ReadFile(h.cfg.CatalogPath)
	if err == nil {
		var songs []model.Song
		err = json.Unmarshal(data, &songs)
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, model.HealthResponse{
			Status:    "ERROR",
			Message:   "Failed to read songs.json: " + err.Error(),
			Timestamp: timestamp,
			Database:  "error",
		})
		return
	}

	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:    "OK",
		Message:   "Server is running and songs.json is available",
		Timestamp: timestamp,
		Database:  "connected",
	})
}
