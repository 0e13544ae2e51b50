package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Sown0205/Anubis/internal/analysis"
	"github.com/Sown0205/Anubis/internal/core/model"
)

// Tracker states. A terminal tracker (completed or failed) holds its
// outcome until Reset.
const (
	TrackerIdle      = "idle"
	TrackerUploading = "uploading"
	TrackerPolling   = "polling"
	TrackerCompleted = "completed"
	TrackerFailed    = "failed"
)

// DefaultTrackInterval is the job status poll cadence.
const DefaultTrackInterval = 2 * time.Second

// TrackerSnapshot is the tracker's externally visible state.
type TrackerSnapshot struct {
	State      string
	AnalysisID string
	Filename   string
	Progress   int
	Message    string
	// Result is set once, after the job completes.
	Result *model.AnalysisResult
}

// UploadTracker drives one capture upload end to end: local validation,
// the upload itself, progress polling, and the single results fetch
// once the job completes.
type UploadTracker struct {
	client   *Client
	interval time.Duration

	mu          sync.Mutex
	state       string
	analysisID  string
	filename    string
	progress    int
	message     string
	result      *model.AnalysisResult
	failure     string
	failureSeen bool

	wg sync.WaitGroup
}

// NewUploadTracker creates an idle tracker. Interval zero means
// DefaultTrackInterval.
func NewUploadTracker(c *Client, interval time.Duration) *UploadTracker {
	if interval <= 0 {
		interval = DefaultTrackInterval
	}
	return &UploadTracker{client: c, interval: interval, state: TrackerIdle}
}

// ValidateCapture checks a capture file locally, before any bytes are
// sent: extension and size limits match what the server enforces.
func (t *UploadTracker) ValidateCapture(filename string, size int64) error {
	return analysis.ValidateUpload(filename, size, analysis.DefaultMaxUploadBytes)
}

// Upload validates and sends a capture, then starts polling the job.
// It returns an error without changing state when the file fails local
// validation or when the tracker is not idle.
func (t *UploadTracker) Upload(ctx context.Context, filename string, size int64, content io.Reader) error {
	if err := t.ValidateCapture(filename, size); err != nil {
		return err
	}

	t.mu.Lock()
	if t.state != TrackerIdle {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("tracker: upload not allowed in state %q, reset first", state)
	}
	t.state = TrackerUploading
	t.filename = filename
	t.mu.Unlock()

	resp, err := t.client.UploadCapture(ctx, filename, content)
	if err != nil {
		t.fail(uploadErrorMessage(err))
		return err
	}

	t.mu.Lock()
	t.state = TrackerPolling
	t.analysisID = resp.AnalysisID
	t.progress = 0
	t.message = resp.Message
	t.mu.Unlock()

	t.wg.Add(1)
	go t.track(ctx, resp.AnalysisID)
	return nil
}

// Wait blocks until the tracking loop has exited.
func (t *UploadTracker) Wait() {
	t.wg.Wait()
}

func (t *UploadTracker) track(ctx context.Context, id string) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if done := t.step(ctx, id); done {
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			t.fail("analysis tracking cancelled")
			return
		}
	}
}

// step polls the job once. It reports true when the tracker reached a
// terminal state.
func (t *UploadTracker) step(ctx context.Context, id string) bool {
	status, err := t.client.AnalysisStatus(ctx, id)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// The job is gone on the server; retrying cannot help.
			t.fail(apiErr.Detail)
			return true
		}
		// Transient network failure: keep the last known progress and retry.
		log.Printf("upload tracker: poll failed: %v", err)
		return false
	}

	t.mu.Lock()
	t.progress = status.Progress
	t.message = status.Message
	t.mu.Unlock()

	switch status.Status {
	case model.AnalysisCompleted:
		t.complete(ctx, id)
		return true
	case model.AnalysisFailed:
		t.fail(status.Message)
		return true
	default:
		return false
	}
}

// complete fetches the report once and settles the tracker.
func (t *UploadTracker) complete(ctx context.Context, id string) {
	result, err := t.client.AnalysisResults(ctx, id)
	if err != nil {
		t.fail("analysis completed but results could not be loaded: " + err.Error())
		return
	}

	t.mu.Lock()
	t.state = TrackerCompleted
	t.result = result
	t.progress = 100
	t.mu.Unlock()
}

func (t *UploadTracker) fail(message string) {
	t.mu.Lock()
	t.state = TrackerFailed
	t.failure = message
	t.failureSeen = false
	t.mu.Unlock()
}

// Snapshot returns the current tracker state.
func (t *UploadTracker) Snapshot() TrackerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerSnapshot{
		State:      t.state,
		AnalysisID: t.analysisID,
		Filename:   t.filename,
		Progress:   t.progress,
		Message:    t.message,
		Result:     t.result,
	}
}

// Failure returns the failure message once: the first call after a
// failure returns it with true, later calls report false until the next
// failure. The dashboard uses this to show each error a single time.
func (t *UploadTracker) Failure() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TrackerFailed || t.failureSeen {
		return "", false
	}
	t.failureSeen = true
	return t.failure, true
}

// Reset returns a terminal tracker to idle so a new capture can be
// uploaded. It refuses while an upload or poll is still running.
func (t *UploadTracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TrackerUploading || t.state == TrackerPolling {
		return fmt.Errorf("tracker: cannot reset while %s", t.state)
	}
	t.state = TrackerIdle
	t.analysisID = ""
	t.filename = ""
	t.progress = 0
	t.message = ""
	t.result = nil
	t.failure = ""
	t.failureSeen = false
	return nil
}

func uploadErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return "upload failed: " + err.Error()
}
