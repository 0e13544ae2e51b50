package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sown0205/Anubis/internal/core/model"
	"github.com/Sown0205/Anubis/internal/history"
)

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.History.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load scan history")
		return
	}

	// A running session is not recorded yet but still belongs at the top
	// of the list.
	status := s.deps.Scanner.Status()
	if status.IsScanning && status.Session != nil {
		items = append([]model.HistoryItem{history.ItemFromSession(*status.Session)}, items...)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scans": items,
		"total": len(items),
	})
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Serve the live session directly when it is the one requested.
	status := s.deps.Scanner.Status()
	if status.Session != nil && status.Session.ID == id && status.IsScanning {
		results := s.deps.Scanner.Results()
		writeJSON(w, http.StatusOK, model.HistoryDetail{
			ScanID:       id,
			Session:      *status.Session,
			Results:      results,
			TotalResults: len(results),
		})
		return
	}

	detail, err := s.deps.History.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load scan history")
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.History.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete scan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scan deleted"})
}

type exportRequest struct {
	ScanID string `json:"scan_id"`
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.ScanID != "" {
		detail, err := s.deps.History.Get(r.Context(), req.ScanID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not load scan history")
			return
		}
		if detail == nil {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
	}

	data, filename, err := history.Export(r.Context(), s.deps.History, req.ScanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
