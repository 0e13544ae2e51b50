package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// jobServer fakes the capture analysis endpoints with a scripted status
// sequence and counts results fetches.
type jobServer struct {
	mu       sync.Mutex
	statuses []model.AnalysisStatus
	idx      int
	uploads  int
	fetches  int
	srv      *httptest.Server
}

func newJobServer(t *testing.T, statuses []model.AnalysisStatus) *jobServer {
	t.Helper()
	s := &jobServer{statuses: statuses}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/pcap/upload", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.uploads++
		s.mu.Unlock()
		if _, _, err := r.FormFile("file"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "missing file field in upload"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"analysis_id": "job-1",
			"message":     "File uploaded successfully. Analysis started.",
		})
	})
	mux.HandleFunc("/api/pcap/analysis/job-1/status", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		st := s.statuses[s.idx]
		if s.idx < len(s.statuses)-1 {
			s.idx++
		}
		s.mu.Unlock()
		json.NewEncoder(w).Encode(st)
	})
	mux.HandleFunc("/api/pcap/analysis/job-1/results", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.fetches++
		s.mu.Unlock()
		json.NewEncoder(w).Encode(model.AnalysisResult{
			AnalysisID: "job-1",
			Filename:   "office.pcap",
			Summary:    model.AnalysisSummary{TotalFlows: 2, BenignFlows: 1, MaliciousFlows: 1},
		})
	})

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *jobServer) counts() (uploads, fetches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads, s.fetches
}

func waitState(t *testing.T, tr *UploadTracker, state string) TrackerSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := tr.Snapshot()
		if snap.State == state {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := tr.Snapshot()
	t.Fatalf("Tracker never reached %q; last snapshot: %+v", state, snap)
	return snap
}

func TestTrackerValidatesLocally(t *testing.T) {
	srv := newJobServer(t, nil)
	tr := NewUploadTracker(newClient(t, srv.srv), time.Millisecond)

	err := tr.Upload(context.Background(), "notes.txt", 100, strings.NewReader("x"))
	if err == nil {
		t.Fatal("Invalid extension should be rejected locally")
	}
	if uploads, _ := srv.counts(); uploads != 0 {
		t.Errorf("Local validation failure must not hit the server, saw %d uploads", uploads)
	}
	if snap := tr.Snapshot(); snap.State != TrackerIdle {
		t.Errorf("Tracker should stay idle after local rejection, got %s", snap.State)
	}

	err = tr.Upload(context.Background(), "big.pcap", 101*1024*1024, strings.NewReader("x"))
	if err == nil {
		t.Fatal("Oversize capture should be rejected locally")
	}
}

func TestTrackerCompletesWithSingleResultsFetch(t *testing.T) {
	srv := newJobServer(t, []model.AnalysisStatus{
		{AnalysisID: "job-1", Status: model.AnalysisQueued, Progress: 0, Message: "Waiting for a worker..."},
		{AnalysisID: "job-1", Status: model.AnalysisProcessing, Progress: 25, Message: "Extracting flow features..."},
		{AnalysisID: "job-1", Status: model.AnalysisProcessing, Progress: 60, Message: "Classifying flows..."},
		{AnalysisID: "job-1", Status: model.AnalysisCompleted, Progress: 100, Message: "Analysis completed"},
	})
	tr := NewUploadTracker(newClient(t, srv.srv), time.Millisecond)

	if err := tr.Upload(context.Background(), "office.pcap", 2048, strings.NewReader("capture")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	tr.Wait()

	snap := waitState(t, tr, TrackerCompleted)
	if snap.Result == nil || snap.Result.Summary.TotalFlows != 2 {
		t.Errorf("Completed tracker should hold the report, got %+v", snap.Result)
	}
	if snap.Progress != 100 {
		t.Errorf("Expected progress 100, got %d", snap.Progress)
	}

	// Give any stray fetch a chance to land, then check the count.
	time.Sleep(20 * time.Millisecond)
	if _, fetches := srv.counts(); fetches != 1 {
		t.Errorf("Results must be fetched exactly once, saw %d", fetches)
	}
}

func TestTrackerFailureSurfacedOnce(t *testing.T) {
	srv := newJobServer(t, []model.AnalysisStatus{
		{AnalysisID: "job-1", Status: model.AnalysisProcessing, Progress: 10, Message: "Validating file..."},
		{AnalysisID: "job-1", Status: model.AnalysisFailed, Progress: 25,
			Message: "no network flows could be extracted from the capture"},
	})
	tr := NewUploadTracker(newClient(t, srv.srv), time.Millisecond)

	if err := tr.Upload(context.Background(), "bad.pcap", 2048, strings.NewReader("garbage")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	tr.Wait()
	waitState(t, tr, TrackerFailed)

	msg, ok := tr.Failure()
	if !ok {
		t.Fatal("First Failure call should return the message")
	}
	if msg != "no network flows could be extracted from the capture" {
		t.Errorf("Failure should carry the server message verbatim, got %q", msg)
	}
	if _, ok := tr.Failure(); ok {
		t.Error("Second Failure call should report nothing")
	}

	if _, fetches := srv.counts(); fetches != 0 {
		t.Errorf("Failed jobs must never fetch results, saw %d", fetches)
	}
}

func TestTrackerRequiresResetBetweenUploads(t *testing.T) {
	srv := newJobServer(t, []model.AnalysisStatus{
		{AnalysisID: "job-1", Status: model.AnalysisCompleted, Progress: 100, Message: "Analysis completed"},
	})
	tr := NewUploadTracker(newClient(t, srv.srv), time.Millisecond)

	if err := tr.Upload(context.Background(), "one.pcap", 2048, strings.NewReader("capture")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	tr.Wait()
	waitState(t, tr, TrackerCompleted)

	err := tr.Upload(context.Background(), "two.pcap", 2048, strings.NewReader("capture"))
	if err == nil {
		t.Fatal("Upload in a terminal state should fail until Reset")
	}

	if err := tr.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if snap := tr.Snapshot(); snap.State != TrackerIdle || snap.Result != nil {
		t.Errorf("Reset should return the tracker to a clean idle state, got %+v", snap)
	}

	if err := tr.Upload(context.Background(), "two.pcap", 2048, strings.NewReader("capture")); err != nil {
		t.Fatalf("Upload after reset failed: %v", err)
	}
	tr.Wait()
	waitState(t, tr, TrackerCompleted)
}

func TestTrackerUploadRejectionBecomesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "File too large. Maximum size is 100MB."})
	}))
	defer srv.Close()
	tr := NewUploadTracker(newClient(t, srv), time.Millisecond)

	err := tr.Upload(context.Background(), "sneaky.pcap", 2048, strings.NewReader("capture"))
	if err == nil {
		t.Fatal("Server rejection should surface as an error")
	}
	waitState(t, tr, TrackerFailed)

	msg, ok := tr.Failure()
	if !ok || msg != "File too large. Maximum size is 100MB." {
		t.Errorf("Failure should carry the server detail, got %q (ok=%v)", msg, ok)
	}
}
