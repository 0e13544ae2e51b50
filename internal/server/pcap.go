package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Sown0205/Anubis/internal/analysis"
	"github.com/Sown0205/Anubis/internal/core/model"
)

func (s *Server) handlePcapUpload(w http.ResponseWriter, r *http.Request) {
	// Leave headroom for the multipart framing around the capture itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field in upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	id, err := s.deps.Analysis.Submit(header.Filename, content)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": id,
		"message":     "File uploaded successfully. Analysis started.",
		"filename":    header.Filename,
		"file_size":   len(content),
	})
}

func (s *Server) handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := s.deps.Analysis.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// loadResult resolves the analysis result for the request, writing the
// error response itself when the job is unknown, unfinished, or failed.
func (s *Server) loadResult(w http.ResponseWriter, r *http.Request) (*model.AnalysisResult, bool) {
	id := mux.Vars(r)["id"]
	result, err := s.deps.Analysis.Results(id)
	switch {
	case err == nil:
		return result, true
	case errors.Is(err, analysis.ErrNotFound):
		writeError(w, http.StatusNotFound, "analysis not found")
	case errors.Is(err, analysis.ErrInProgress):
		writeError(w, http.StatusAccepted, "analysis is still in progress")
	default:
		var failed *analysis.FailedError
		if errors.As(err, &failed) {
			writeError(w, http.StatusInternalServerError, "Analysis failed: "+failed.Message)
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
	return nil, false
}

func (s *Server) handleAnalysisResults(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loadResult(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAnalysisSummary serves the report without the per-flow detail:
// the full summary and statistics plus a trimmed threat section.
func (s *Server) handleAnalysisSummary(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loadResult(w, r)
	if !ok {
		return
	}

	ips := result.Threats.MaliciousIPs
	trimmed := ips
	if len(trimmed) > 10 {
		trimmed = trimmed[:10]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": result.AnalysisID,
		"filename":    result.Filename,
		"timestamp":   result.Timestamp,
		"summary":     result.Summary,
		"threats": map[string]any{
			"malicious_ips_count": len(ips),
			"malicious_ips":       trimmed,
			"threat_types":        result.Threats.ThreatTypes,
			"top_threats":         result.Threats.TopThreats,
		},
		"statistics": result.Statistics,
	})
}

// handleAnalysisThreats serves the threat section plus every flow the
// classifier marked as an attack.
func (s *Server) handleAnalysisThreats(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loadResult(w, r)
	if !ok {
		return
	}

	malicious := make([]model.ScanResult, 0)
	for _, flow := range result.DetailedResults {
		if flow.Status == model.ClassAttack {
			malicious = append(malicious, flow)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id":     result.AnalysisID,
		"threats":         result.Threats,
		"malicious_flows": malicious,
	})
}

func (s *Server) handleAnalysisList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	writeJSON(w, http.StatusOK, s.deps.Analysis.List(limit, offset))
}

func (s *Server) handleAnalysisDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Analysis.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Analysis deleted"})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
