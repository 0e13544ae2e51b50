// Package model defines the domain types shared by the ANUBIS server and
// its clients. All entities are produced by the server; clients treat them
// as read-only snapshots.
package model

import (
	"fmt"
	"time"
)

// Flow classification outcomes.
const (
	ClassBenign = "BENIGN"
	ClassAttack = "ATTACK"
)

// Scan session states.
const (
	SessionRunning   = "RUNNING"
	SessionCompleted = "COMPLETED"
	SessionStopped   = "STOPPED"
)

// Analysis job states.
const (
	AnalysisQueued     = "queued"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

// NetworkFlow is one network connection record (5-tuple plus stats).
type NetworkFlow struct {
	SrcIP        string    `json:"src_ip"`
	SrcPort      int       `json:"src_port"`
	DstIP        string    `json:"dst_ip"`
	DstPort      int       `json:"dst_port"`
	Protocol     string    `json:"protocol"`
	FlowDuration float64   `json:"flow_duration,omitempty"`
	TotalBytes   int64     `json:"total_bytes,omitempty"`
	PacketCount  int       `json:"packet_count,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// FlowID derives the canonical flow identifier from the 5-tuple.
func (f *NetworkFlow) FlowID() string {
	return fmt.Sprintf("%s:%d->%s:%d:%s", f.SrcIP, f.SrcPort, f.DstIP, f.DstPort, f.Protocol)
}

// Prediction is the classifier verdict for a single flow.
type Prediction struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	ThreatType     string  `json:"threat_type,omitempty"`
	RiskScore      float64 `json:"risk_score"`
}

// ScanResult pairs a flow with its prediction. Results are append-only.
type ScanResult struct {
	ID           string      `json:"id"`
	FlowID       string      `json:"flow_id"`
	Timestamp    time.Time   `json:"timestamp"`
	NetworkFlow  NetworkFlow `json:"network_flow"`
	AIPrediction Prediction  `json:"ai_prediction"`
	Status       string      `json:"status"`
	ScanID       string      `json:"scan_id,omitempty"`
}

// ScanSession is one bounded or continuous run of flow classification.
// It becomes immutable once Status leaves RUNNING.
type ScanSession struct {
	ID          string         `json:"id"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	Status      string         `json:"status"`
	TotalFlows  int            `json:"total_flows"`
	BenignCount int            `json:"benign_count"`
	AttackCount int            `json:"attack_count"`
	Settings    map[string]any `json:"settings,omitempty"`
}

// ScanStatus is the poll payload for GET /api/scan/status.
type ScanStatus struct {
	IsScanning    bool         `json:"is_scanning"`
	Session       *ScanSession `json:"session"`
	RecentResults []ScanResult `json:"recent_results"`
	TotalResults  int          `json:"total_results"`
}

// Overall health labels derived from the attack ratio of a scan.
const (
	StatusNoData      = "No Data"
	StatusHealthy     = "Healthy"
	StatusWarning     = "Warning"
	StatusCompromised = "Compromised"
)

// ScanAnalysis summarizes a session for the dashboard cards.
type ScanAnalysis struct {
	ScanningTime     string  `json:"scanning_time"`
	TotalFlows       int     `json:"total_flows"`
	BenignFlows      int     `json:"benign_flows"`
	AttackFlows      int     `json:"attack_flows"`
	BenignPercentage float64 `json:"benign_percentage"`
	AttackPercentage float64 `json:"attack_percentage"`
	OverallStatus    string  `json:"overall_status"`
}

// OverallStatus maps an attack ratio to a health label. More than 30% attack
// flows marks the network compromised, more than 15% a warning.
func OverallStatus(total, attacks int) string {
	if total == 0 {
		return StatusNoData
	}
	ratio := float64(attacks) / float64(total)
	switch {
	case ratio > 0.30:
		return StatusCompromised
	case ratio > 0.15:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// AnalysisStatus tracks an asynchronous capture analysis job.
type AnalysisStatus struct {
	AnalysisID  string     `json:"analysis_id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether no further transition can occur without new
// user action.
func (s *AnalysisStatus) Terminal() bool {
	return s.Status == AnalysisCompleted || s.Status == AnalysisFailed
}

// AnalysisSummary aggregates one capture analysis.
type AnalysisSummary struct {
	TotalFlows          int     `json:"total_flows"`
	BenignFlows         int     `json:"benign_flows"`
	MaliciousFlows      int     `json:"malicious_flows"`
	BenignPercentage    float64 `json:"benign_percentage"`
	MaliciousPercentage float64 `json:"malicious_percentage"`
	OverallStatus       string  `json:"overall_status"`
	OverallRiskScore    float64 `json:"overall_risk_score"`
}

// ThreatEntry is one high-risk flow in the threat report.
type ThreatEntry struct {
	FlowID     string  `json:"flow_id"`
	SrcIP      string  `json:"src_ip"`
	DstIP      string  `json:"dst_ip"`
	ThreatType string  `json:"threat_type"`
	RiskScore  float64 `json:"risk_score"`
}

// ThreatInfo is the threat section of an analysis result.
type ThreatInfo struct {
	MaliciousIPs []string       `json:"malicious_ips"`
	ThreatTypes  map[string]int `json:"threat_types"`
	TopThreats   []ThreatEntry  `json:"top_threats"`
}

// AnalysisResult is the full payload fetched once a job completes.
type AnalysisResult struct {
	AnalysisID      string          `json:"analysis_id"`
	Filename        string          `json:"filename"`
	Timestamp       time.Time       `json:"timestamp"`
	Summary         AnalysisSummary `json:"summary"`
	Threats         ThreatInfo      `json:"threats"`
	DetailedResults []ScanResult    `json:"detailed_results"`
	Statistics      AnalysisStats   `json:"statistics"`
}

// AnalysisStats carries per-capture traffic statistics.
type AnalysisStats struct {
	TotalPackets      int            `json:"total_packets"`
	TotalBytes        int64          `json:"total_bytes"`
	ProtocolBreakdown map[string]int `json:"protocol_breakdown"`
	TopTalkers        []TalkerEntry  `json:"top_talkers"`
}

// TalkerEntry ranks a source address by traffic volume.
type TalkerEntry struct {
	IP    string `json:"ip"`
	Flows int    `json:"flows"`
	Bytes int64  `json:"bytes"`
}

// HistoryItem is the compact row shown in the scan history list.
type HistoryItem struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Duration   string `json:"duration"`
	TotalFlows int    `json:"total_flows"`
	Threats    int    `json:"threats"`
	Status     string `json:"status"`
}

// HistoryDetail is the drill-down payload for a single recorded scan.
type HistoryDetail struct {
	ScanID       string       `json:"scan_id"`
	Session      ScanSession  `json:"session"`
	Results      []ScanResult `json:"results"`
	TotalResults int          `json:"total_results"`
}

// AnalysisListItem is one row in the analysis listing.
type AnalysisListItem struct {
	AnalysisID  string           `json:"analysis_id"`
	Filename    string           `json:"filename,omitempty"`
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Summary     *AnalysisSummary `json:"summary,omitempty"`
}

// AnalysisList is the paginated analysis listing payload.
type AnalysisList struct {
	Analyses []AnalysisListItem `json:"analyses"`
	Total    int                `json:"total"`
	Offset   int                `json:"offset"`
	Limit    int                `json:"limit"`
}

// FormatScanDuration renders a session duration the way the dashboard
// displays it, e.g. "2 minutes and 5 seconds".
func FormatScanDuration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	switch {
	case hours > 0:
		return fmt.Sprintf("%s, %s and %s", plural(hours, "hour"), plural(minutes, "minute"), plural(seconds, "second"))
	case minutes > 0:
		return fmt.Sprintf("%s and %s", plural(minutes, "minute"), plural(seconds, "second"))
	default:
		return plural(seconds, "second")
	}
}

// FormatShortDuration renders the compact duration used by history rows,
// e.g. "2h 15m" or "45m".
func FormatShortDuration(d time.Duration) string {
	total := int(d.Minutes())
	hours := total / 60
	minutes := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
