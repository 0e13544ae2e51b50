package server

import (
	"encoding/json"
	"net/http"
	"time"
)

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"settings": s.deps.Settings.Values(),
	})
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var changes map[string]any
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.deps.Settings.Update(changes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Settings updated",
		"settings": s.deps.Settings.Values(),
	})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	dbStatus := "Connected"
	if _, err := s.deps.History.List(r.Context()); err != nil {
		dbStatus = "Error"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ai_model_status":   "Active",
		"database_status":   dbStatus,
		"network_interface": "Connected",
		"scanning_active":   s.deps.Scanner.Status().IsScanning,
		"last_updated":      time.Now().UTC(),
	})
}
