// Package server exposes the ANUBIS REST API. Handlers are thin: they
// translate HTTP to the scanner, analysis, history, settings, and auth
// services and map domain errors to FastAPI-style {"detail": ...} payloads.
package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sown0205/Anubis/internal/analysis"
	"github.com/Sown0205/Anubis/internal/auth"
	"github.com/Sown0205/Anubis/internal/history"
	"github.com/Sown0205/Anubis/internal/notification"
	"github.com/Sown0205/Anubis/internal/scanner"
	"github.com/Sown0205/Anubis/internal/settings"
)

// Deps are the services the API serves.
type Deps struct {
	Scanner  *scanner.Scanner
	Analysis *analysis.Service
	History  history.Store
	Settings *settings.Registry
	Auth     *auth.Service
	// Notifier, when set, receives an alert mail after a session with
	// attack flows finishes and alert notifications are enabled.
	Notifier notification.Notifier
	// MaxUploadBytes bounds multipart uploads. Zero means 100 MB.
	MaxUploadBytes int64
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	router *mux.Router
}

// New creates the API server and registers its routes.
func New(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = analysis.DefaultMaxUploadBytes
	}
	s := &Server{deps: deps, router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Scan control and monitoring.
	r.HandleFunc("/api/scan/start", s.handleScanStart).Methods("POST")
	r.HandleFunc("/api/scan/stop", s.handleScanStop).Methods("POST")
	r.HandleFunc("/api/scan/status", s.handleScanStatus).Methods("GET")
	r.HandleFunc("/api/scan/results", s.handleScanResults).Methods("GET")
	r.HandleFunc("/api/scan/results/analysis", s.handleScanAnalysis).Methods("GET")

	// Capture analysis jobs.
	r.HandleFunc("/api/pcap/upload", s.handlePcapUpload).Methods("POST")
	r.HandleFunc("/api/pcap/analysis/list", s.handleAnalysisList).Methods("GET")
	r.HandleFunc("/api/pcap/analysis/{id}/status", s.handleAnalysisStatus).Methods("GET")
	r.HandleFunc("/api/pcap/analysis/{id}/results", s.handleAnalysisResults).Methods("GET")
	r.HandleFunc("/api/pcap/analysis/{id}/summary", s.handleAnalysisSummary).Methods("GET")
	r.HandleFunc("/api/pcap/analysis/{id}/threats", s.handleAnalysisThreats).Methods("GET")
	r.HandleFunc("/api/pcap/analysis/{id}", s.handleAnalysisDelete).Methods("DELETE")

	// Scan history (session-authenticated).
	r.Handle("/api/history", s.requireSession(s.handleHistoryList)).Methods("GET")
	r.Handle("/api/history/export", s.requireSession(s.handleHistoryExport)).Methods("POST")
	r.Handle("/api/history/{id}", s.requireSession(s.handleHistoryDetail)).Methods("GET")
	r.Handle("/api/history/{id}", s.requireSession(s.handleHistoryDelete)).Methods("DELETE")

	// Settings (session-authenticated).
	r.Handle("/api/settings", s.requireSession(s.handleSettingsGet)).Methods("GET")
	r.Handle("/api/settings", s.requireSession(s.handleSettingsUpdate)).Methods("PUT")
	r.HandleFunc("/api/settings/system/status", s.handleSystemStatus).Methods("GET")

	// Auth.
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/api/auth/logout", s.handleLogout).Methods("POST")
	r.Handle("/api/auth/me", s.requireSession(s.handleMe)).Methods("GET")
}

// requireSession rejects requests without a valid session cookie.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(auth.SessionCookie); err == nil {
			token = c.Value
		}
		if _, err := s.deps.Auth.UserForToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

// writeError emits the {"detail": ...} error payload the dashboard expects.
func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
