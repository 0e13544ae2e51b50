package client

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// DefaultPollInterval is the dashboard refresh cadence.
const DefaultPollInterval = 2 * time.Second

// ScanSnapshot is the poller's current view of the monitoring state.
type ScanSnapshot struct {
	// IsScanning is the effective flag: a pending start/stop request
	// overrides the last confirmed server state until a poll confirms it.
	IsScanning bool
	// Pending reports whether a start/stop request is awaiting server
	// confirmation.
	Pending       bool
	Session       *model.ScanSession
	RecentResults []model.ScanResult
	TotalResults  int
	// LastUpdated is the time of the last successful poll. Zero until the
	// first poll succeeds.
	LastUpdated time.Time
	// LastError is the error of the most recent poll attempt, nil after a
	// success. A non-nil value means the snapshot is stale, not invalid.
	LastError error
}

// ScanView keeps a live view of the scan status by polling the server.
// Poll failures never stop the loop and never clear previously fetched
// data; they are logged at a bounded rate.
type ScanView struct {
	client   *Client
	interval time.Duration
	logLimit *rate.Limiter

	mu        sync.Mutex
	confirmed bool  // server-reported scanning flag
	requested *bool // optimistic flag set by StartScan/StopScan, nil when settled
	session   *model.ScanSession
	recent    []model.ScanResult
	total     int
	updated   time.Time
	lastErr   error

	wg sync.WaitGroup
}

// NewScanView creates a poller over the given client. Interval zero
// means the 2 second default.
func NewScanView(c *Client, interval time.Duration) *ScanView {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ScanView{
		client:   c,
		interval: interval,
		// At most one failure log per 30 seconds.
		logLimit: rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

// Start launches the poll loop: one immediate poll, then one per
// interval until ctx is cancelled.
func (v *ScanView) Start(ctx context.Context) {
	v.wg.Add(1)
	go v.loop(ctx)
}

// Wait blocks until the poll loop has exited.
func (v *ScanView) Wait() {
	v.wg.Wait()
}

func (v *ScanView) loop(ctx context.Context) {
	defer v.wg.Done()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	v.poll(ctx)
	for {
		select {
		case <-ticker.C:
			v.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (v *ScanView) poll(ctx context.Context) {
	status, err := v.client.ScanStatus(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil {
		v.lastErr = err
		if ctx.Err() == nil && v.logLimit.Allow() {
			log.Printf("scan view: poll failed: %v", err)
		}
		return
	}

	v.lastErr = nil
	v.updated = time.Now()
	v.confirmed = status.IsScanning
	v.session = status.Session
	v.total = status.TotalResults

	// A transiently empty result list must not blank a dashboard that
	// already shows traffic.
	if len(status.RecentResults) > 0 || len(v.recent) == 0 {
		v.recent = status.RecentResults
	}

	// The server has caught up with a pending start/stop request.
	if v.requested != nil && *v.requested == status.IsScanning {
		v.requested = nil
	}
}

// Snapshot returns the current view state.
func (v *ScanView) Snapshot() ScanSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := ScanSnapshot{
		IsScanning:   v.confirmed,
		Pending:      v.requested != nil,
		TotalResults: v.total,
		LastUpdated:  v.updated,
		LastError:    v.lastErr,
	}
	if v.requested != nil {
		snap.IsScanning = *v.requested
	}
	if v.session != nil {
		s := *v.session
		snap.Session = &s
	}
	snap.RecentResults = append(snap.RecentResults, v.recent...)
	return snap
}

// StartScan requests a new scan session. On success the view flips to
// scanning immediately; the next poll confirms it. Errors are returned
// to the caller and leave the view unchanged.
func (v *ScanView) StartScan(ctx context.Context, settings map[string]any) error {
	if _, err := v.client.StartScan(ctx, settings); err != nil {
		return err
	}
	v.setRequested(true)
	return nil
}

// StopScan requests the end of the running session. On success the view
// flips to not-scanning immediately; the next poll confirms it.
func (v *ScanView) StopScan(ctx context.Context) error {
	if _, err := v.client.StopScan(ctx); err != nil {
		return err
	}
	v.setRequested(false)
	return nil
}

func (v *ScanView) setRequested(scanning bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.confirmed == scanning {
		v.requested = nil
		return
	}
	v.requested = &scanning
}
