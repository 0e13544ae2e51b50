// Package scanner runs live scan sessions: a ticker-driven loop pulls
// flows from a source, classifies each one, and accumulates results and
// session counters until the session is stopped.
package scanner

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sown0205/Anubis/internal/classifier"
	"github.com/Sown0205/Anubis/internal/core/model"
)

const recentResultCount = 10

// Options configure a Scanner.
type Options struct {
	// Interval between scan cycles.
	Interval time.Duration
	// MaxResults bounds the in-memory result list; older results are
	// dropped once the bound is reached. Zero means 10000.
	MaxResults int
	// Source provides the flows for each cycle. Nil means synthetic
	// traffic.
	Source FlowSource
	// OnSessionEnd, when set, is called with the finished session and its
	// results after Stop. It runs outside the scanner lock.
	OnSessionEnd func(session model.ScanSession, results []model.ScanResult)
}

// Scanner owns at most one scan session at a time.
type Scanner struct {
	clf      *classifier.Classifier
	source   FlowSource
	interval time.Duration
	maxKept  int
	onEnd    func(model.ScanSession, []model.ScanResult)

	mu       sync.Mutex
	scanning bool
	session  *model.ScanSession
	results  []model.ScanResult
	dropped  int

	// stopChan asks the current loop to exit; done is closed by that
	// loop on exit. Both are replaced on every Start so a racing Start
	// cannot hand Stop another session's lifecycle.
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10000
	}
	if opts.Source == nil {
		opts.Source = NewSyntheticSource()
	}
	return &Scanner{
		clf:      classifier.New(),
		source:   opts.Source,
		interval: opts.Interval,
		maxKept:  opts.MaxResults,
		onEnd:    opts.OnSessionEnd,
	}
}

// Start begins a new scan session. It fails when a session is already
// running.
func (s *Scanner) Start(settings map[string]any) (*model.ScanSession, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, fmt.Errorf("scanning is already in progress")
	}

	session := &model.ScanSession{
		ID:        uuid.New().String(),
		StartTime: time.Now().UTC(),
		Status:    model.SessionRunning,
		Settings:  settings,
	}
	s.session = session
	s.results = nil
	s.dropped = 0
	s.scanning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(session, s.stopChan, s.done)

	snapshot := *session
	s.mu.Unlock()

	log.Printf("scanner: started session %s", snapshot.ID)
	return &snapshot, nil
}

// Stop ends the current session. It returns nil when nothing is running.
func (s *Scanner) Stop() *model.ScanSession {
	s.mu.Lock()
	if !s.scanning {
		s.mu.Unlock()
		return nil
	}
	s.scanning = false
	close(s.stopChan)

	// Capture this session's state before releasing the lock: a Start
	// racing with the shutdown may install a new session, and that one
	// must stay untouched. The results are final here because cycle()
	// refuses to append once the session is no longer current.
	session := s.session
	done := s.done
	results := make([]model.ScanResult, len(s.results))
	copy(results, s.results)
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	now := time.Now().UTC()
	session.Status = model.SessionCompleted
	session.EndTime = &now
	finished := *session
	s.mu.Unlock()

	log.Printf("scanner: stopped session %s (%d flows, %d attacks)",
		finished.ID, finished.TotalFlows, finished.AttackCount)

	if s.onEnd != nil {
		s.onEnd(finished, results)
	}
	return &finished
}

// Status returns the current scanning state and the most recent results.
func (s *Scanner) Status() model.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := model.ScanStatus{
		IsScanning:    s.scanning,
		RecentResults: []model.ScanResult{},
	}
	if s.session == nil {
		return status
	}

	snapshot := *s.session
	status.Session = &snapshot
	status.TotalResults = len(s.results) + s.dropped

	start := len(s.results) - recentResultCount
	if start < 0 {
		start = 0
	}
	status.RecentResults = append(status.RecentResults, s.results[start:]...)
	return status
}

// Results returns a copy of every retained result of the current session.
func (s *Scanner) Results() []model.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ScanResult, len(s.results))
	copy(out, s.results)
	return out
}

// Analysis summarizes the current session for the dashboard.
func (s *Scanner) Analysis() model.ScanAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.TotalFlows == 0 {
		return model.ScanAnalysis{
			ScanningTime:  "0 minutes",
			OverallStatus: model.StatusNoData,
		}
	}

	end := time.Now().UTC()
	if s.session.EndTime != nil {
		end = *s.session.EndTime
	}

	total := s.session.TotalFlows
	attacks := s.session.AttackCount
	benign := s.session.BenignCount

	return model.ScanAnalysis{
		ScanningTime:     model.FormatScanDuration(end.Sub(s.session.StartTime)),
		TotalFlows:       total,
		BenignFlows:      benign,
		AttackFlows:      attacks,
		BenignPercentage: pct(benign, total),
		AttackPercentage: pct(attacks, total),
		OverallStatus:    model.OverallStatus(total, attacks),
	}
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// loop is the scan cycle. The first cycle runs immediately; subsequent
// cycles follow the ticker until stop is closed.
func (s *Scanner) loop(session *model.ScanSession, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(session)
	for {
		select {
		case <-ticker.C:
			s.cycle(session)
		case <-stop:
			return
		}
	}
}

func (s *Scanner) cycle(session *model.ScanSession) {
	flows := s.source.Flows()

	s.mu.Lock()
	defer s.mu.Unlock()
	// An in-flight cycle of a stopped loop must not write into a newer
	// session that took over while it was collecting flows.
	if !s.scanning || s.session != session {
		return
	}

	for i := range flows {
		flow := flows[i]
		prediction := s.clf.Classify(&flow)

		result := model.ScanResult{
			ID:           uuid.New().String(),
			FlowID:       flow.FlowID(),
			Timestamp:    flow.Timestamp,
			NetworkFlow:  flow,
			AIPrediction: prediction,
			Status:       prediction.Classification,
			ScanID:       session.ID,
		}
		s.results = append(s.results, result)

		session.TotalFlows++
		if prediction.Classification == model.ClassBenign {
			session.BenignCount++
		} else {
			session.AttackCount++
		}
	}

	if over := len(s.results) - s.maxKept; over > 0 {
		s.results = s.results[over:]
		s.dropped += over
	}
}
