package analysis

import (
	"sort"
	"time"

	"github.com/Sown0205/Anubis/internal/core/model"
	"github.com/Sown0205/Anubis/pkg/capture"
)

const (
	topThreatCount = 10
	topTalkerCount = 5
)

// buildResult assembles the full analysis payload from the classified
// flows and raw packet statistics.
func buildResult(id, filename string, packets []*capture.PacketInfo, results []model.ScanResult) *model.AnalysisResult {
	total := len(results)
	malicious := 0
	riskSum := 0.0

	ipSet := make(map[string]bool)
	threatTypes := make(map[string]int)
	var threats []model.ThreatEntry

	for _, r := range results {
		riskSum += r.AIPrediction.RiskScore
		if r.Status != model.ClassAttack {
			continue
		}
		malicious++
		ipSet[r.NetworkFlow.SrcIP] = true
		if r.AIPrediction.ThreatType != "" {
			threatTypes[r.AIPrediction.ThreatType]++
		}
		threats = append(threats, model.ThreatEntry{
			FlowID:     r.FlowID,
			SrcIP:      r.NetworkFlow.SrcIP,
			DstIP:      r.NetworkFlow.DstIP,
			ThreatType: r.AIPrediction.ThreatType,
			RiskScore:  r.AIPrediction.RiskScore,
		})
	}

	sort.SliceStable(threats, func(i, j int) bool {
		return threats[i].RiskScore > threats[j].RiskScore
	})
	if len(threats) > topThreatCount {
		threats = threats[:topThreatCount]
	}

	maliciousIPs := make([]string, 0, len(ipSet))
	for ip := range ipSet {
		maliciousIPs = append(maliciousIPs, ip)
	}
	sort.Strings(maliciousIPs)

	benign := total - malicious
	overallRisk := 0.0
	if total > 0 {
		overallRisk = riskSum / float64(total)
	}

	summary := model.AnalysisSummary{
		TotalFlows:          total,
		BenignFlows:         benign,
		MaliciousFlows:      malicious,
		BenignPercentage:    pct(benign, total),
		MaliciousPercentage: pct(malicious, total),
		OverallStatus:       model.OverallStatus(total, malicious),
		OverallRiskScore:    overallRisk,
	}

	return &model.AnalysisResult{
		AnalysisID: id,
		Filename:   filename,
		Timestamp:  time.Now().UTC(),
		Summary:    summary,
		Threats: model.ThreatInfo{
			MaliciousIPs: maliciousIPs,
			ThreatTypes:  threatTypes,
			TopThreats:   threats,
		},
		DetailedResults: results,
		Statistics:      buildStats(packets, results),
	}
}

func buildStats(packets []*capture.PacketInfo, results []model.ScanResult) model.AnalysisStats {
	stats := model.AnalysisStats{
		TotalPackets:      len(packets),
		ProtocolBreakdown: make(map[string]int),
	}
	for _, p := range packets {
		stats.TotalBytes += int64(p.Length)
	}

	type talker struct {
		flows int
		bytes int64
	}
	talkers := make(map[string]*talker)
	for _, r := range results {
		stats.ProtocolBreakdown[r.NetworkFlow.Protocol]++
		tk, ok := talkers[r.NetworkFlow.SrcIP]
		if !ok {
			tk = &talker{}
			talkers[r.NetworkFlow.SrcIP] = tk
		}
		tk.flows++
		tk.bytes += r.NetworkFlow.TotalBytes
	}

	entries := make([]model.TalkerEntry, 0, len(talkers))
	for ip, tk := range talkers {
		entries = append(entries, model.TalkerEntry{IP: ip, Flows: tk.flows, Bytes: tk.bytes})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Bytes != entries[j].Bytes {
			return entries[i].Bytes > entries[j].Bytes
		}
		return entries[i].IP < entries[j].IP
	})
	if len(entries) > topTalkerCount {
		entries = entries[:topTalkerCount]
	}
	stats.TopTalkers = entries
	return stats
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
