// Package analysis runs asynchronous capture-file analysis jobs. A job
// moves through queued -> processing -> completed|failed; completed jobs
// carry a full result payload that is fetched separately from the status.
package analysis

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sown0205/Anubis/internal/classifier"
	"github.com/Sown0205/Anubis/internal/core/model"
	"github.com/Sown0205/Anubis/pkg/capture"
)

// ErrNotFound is returned for unknown analysis ids.
var ErrNotFound = errors.New("analysis not found")

// ErrInProgress is returned when results are requested before the job
// reaches a terminal state.
var ErrInProgress = errors.New("analysis still in progress")

// FailedError wraps the user-facing message of a failed job.
type FailedError struct {
	Message string
}

func (e *FailedError) Error() string { return e.Message }

// Service owns the job stores and the background workers.
type Service struct {
	clf      *classifier.Classifier
	tempDir  string
	maxBytes int64

	mu       sync.Mutex
	statuses map[string]*model.AnalysisStatus
	results  map[string]*model.AnalysisResult
	names    map[string]string

	wg sync.WaitGroup
}

// NewService creates an analysis service writing temp files under tempDir.
func NewService(tempDir string, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Service{
		clf:      classifier.New(),
		tempDir:  tempDir,
		maxBytes: maxBytes,
		statuses: make(map[string]*model.AnalysisStatus),
		results:  make(map[string]*model.AnalysisResult),
		names:    make(map[string]string),
	}
}

// Submit validates the upload, persists it to a temp file, registers a
// queued job, and starts the background analysis. It returns the analysis
// id for tracking.
func (s *Service) Submit(filename string, content []byte) (string, error) {
	if err := ValidateUpload(filename, int64(len(content)), s.maxBytes); err != nil {
		return "", err
	}

	id := uuid.New().String()
	dir := filepath.Join(s.tempDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("analysis: create temp dir: %w", err)
	}
	path := filepath.Join(dir, "input"+filepath.Ext(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("analysis: save upload: %w", err)
	}

	s.mu.Lock()
	s.statuses[id] = &model.AnalysisStatus{
		AnalysisID: id,
		Status:     model.AnalysisQueued,
		Progress:   0,
		Message:    "File uploaded, queued for analysis",
		StartedAt:  time.Now().UTC(),
	}
	s.names[id] = filename
	s.mu.Unlock()

	s.wg.Add(1)
	go s.process(id, filename, path)

	log.Printf("analysis: started job %s for %s (%d bytes)", id, filename, len(content))
	return id, nil
}

// Status returns the current job status.
func (s *Service) Status(id string) (*model.AnalysisStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[id]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *st
	return &snapshot, nil
}

// Results returns the full payload of a completed job. A job that is not
// yet terminal yields ErrInProgress; a failed job yields a FailedError
// carrying its message.
func (s *Service) Results(id string) (*model.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statuses[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch st.Status {
	case model.AnalysisQueued, model.AnalysisProcessing:
		return nil, ErrInProgress
	case model.AnalysisFailed:
		return nil, &FailedError{Message: st.Message}
	}

	res, ok := s.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

// List returns a page of jobs, newest first.
func (s *Service) List(limit, offset int) model.AnalysisList {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.AnalysisListItem, 0, len(s.statuses))
	for id, st := range s.statuses {
		item := model.AnalysisListItem{
			AnalysisID:  id,
			Filename:    s.names[id],
			Status:      st.Status,
			Message:     st.Message,
			StartedAt:   st.StartedAt,
			CompletedAt: st.CompletedAt,
		}
		if res, ok := s.results[id]; ok {
			summary := res.Summary
			item.Summary = &summary
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].StartedAt.After(items[j].StartedAt)
	})

	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return model.AnalysisList{
		Analyses: items[offset:end],
		Total:    total,
		Offset:   offset,
		Limit:    limit,
	}
}

// Delete removes a job and its results.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statuses[id]; !ok {
		return ErrNotFound
	}
	delete(s.statuses, id)
	delete(s.results, id)
	delete(s.names, id)
	os.RemoveAll(filepath.Join(s.tempDir, id))
	return nil
}

// Wait blocks until every in-flight job has finished. Used on shutdown and
// in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) setProgress(id string, status string, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[id]
	if !ok {
		// Job was deleted mid-flight; nothing to update.
		return
	}
	st.Status = status
	st.Progress = progress
	st.Message = message
	if status == model.AnalysisCompleted || status == model.AnalysisFailed {
		now := time.Now().UTC()
		st.CompletedAt = &now
	}
}

func (s *Service) process(id, filename, path string) {
	defer s.wg.Done()
	defer os.RemoveAll(filepath.Dir(path))

	s.setProgress(id, model.AnalysisProcessing, 10, "Validating file...")

	s.setProgress(id, model.AnalysisProcessing, 25, "Extracting flow features...")
	packets, _, err := capture.ReadFile(path)
	if err != nil {
		log.Printf("analysis: job %s failed: %v", id, err)
		s.setProgress(id, model.AnalysisFailed, 0, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	flows := capture.AssembleFlows(packets)
	if len(flows) == 0 {
		s.setProgress(id, model.AnalysisFailed, 0, "Analysis failed: no network flows could be extracted from the capture")
		return
	}

	s.setProgress(id, model.AnalysisProcessing, 60, "Classifying flows...")
	results := make([]model.ScanResult, 0, len(flows))
	for i := range flows {
		flow := flows[i]
		prediction := s.clf.Classify(&flow)
		results = append(results, model.ScanResult{
			ID:           uuid.New().String(),
			FlowID:       flow.FlowID(),
			Timestamp:    flow.Timestamp,
			NetworkFlow:  flow,
			AIPrediction: prediction,
			Status:       prediction.Classification,
			ScanID:       id,
		})
	}

	s.setProgress(id, model.AnalysisProcessing, 90, "Building threat report...")
	report := buildResult(id, filename, packets, results)

	s.mu.Lock()
	s.results[id] = report
	s.mu.Unlock()

	s.setProgress(id, model.AnalysisCompleted, 100, "Analysis completed successfully")
	log.Printf("analysis: job %s completed (%d flows, %d malicious)",
		id, report.Summary.TotalFlows, report.Summary.MaliciousFlows)
}
