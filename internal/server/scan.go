package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Sown0205/Anubis/internal/notification"
)

type scanStartRequest struct {
	Settings map[string]any `json:"settings"`
}

func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	var req scanStartRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := s.deps.Scanner.Start(req.Settings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Network scanning started",
		"session": session,
	})
}

func (s *Server) handleScanStop(w http.ResponseWriter, r *http.Request) {
	session := s.deps.Scanner.Stop()
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "No scan in progress",
			"session": nil,
		})
		return
	}

	if err := s.deps.History.Record(r.Context(), *session, s.deps.Scanner.Results()); err != nil {
		log.Printf("server: record session %s: %v", session.ID, err)
	}

	if s.deps.Notifier != nil && session.AttackCount > 0 && s.deps.Settings.Toggle("alert_notifications") {
		subject, body := notification.SessionReport(*session)
		go func() {
			if err := s.deps.Notifier.Send(subject, body); err != nil {
				log.Printf("server: alert notification: %v", err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Network scanning stopped",
		"session": session,
	})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Scanner.Status())
}

func (s *Server) handleScanResults(w http.ResponseWriter, r *http.Request) {
	results := s.deps.Scanner.Results()
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}

func (s *Server) handleScanAnalysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Scanner.Analysis())
}
