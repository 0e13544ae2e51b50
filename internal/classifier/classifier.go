// Package classifier scores network flows. It is a deterministic heuristic
// stand-in for the external inference service: destination-port reputation,
// packet-rate anomalies, and payload-size patterns drive a risk score that
// is mapped to a BENIGN/ATTACK verdict.
package classifier

import (
	"math"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// Threat type labels reported for attack flows.
const (
	ThreatPortScan   = "PORT_SCAN"
	ThreatDoS        = "DOS"
	ThreatBruteForce = "BRUTE_FORCE"
	ThreatBotnet     = "BOTNET"
)

// Thresholds control when a flow is considered anomalous.
type Thresholds struct {
	// AttackScore is the risk score at which a flow is classified ATTACK.
	AttackScore float64
	// PacketsPerSecond above which a flow counts as a flood.
	PacketsPerSecond float64
	// SmallPayloadBytes is the per-packet size under which traffic looks
	// like probing rather than data transfer.
	SmallPayloadBytes float64
}

// DefaultThresholds returns the thresholds used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AttackScore:       0.5,
		PacketsPerSecond:  100,
		SmallPayloadBytes: 64,
	}
}

// Ports frequently targeted by lateral movement and remote-access attacks,
// with the threat type each one suggests.
var suspiciousPorts = map[int]string{
	22:   ThreatBruteForce,
	23:   ThreatBruteForce,
	135:  ThreatPortScan,
	139:  ThreatPortScan,
	445:  ThreatPortScan,
	1433: ThreatBruteForce,
	3389: ThreatBruteForce,
	4444: ThreatBotnet,
	5432: ThreatBruteForce,
}

// Classifier scores flows against a set of thresholds.
type Classifier struct {
	thresholds Thresholds
}

// New creates a classifier with default thresholds.
func New() *Classifier {
	return &Classifier{thresholds: DefaultThresholds()}
}

// NewWithThresholds creates a classifier with custom thresholds.
func NewWithThresholds(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Classify scores a single flow and returns the prediction.
func (c *Classifier) Classify(flow *model.NetworkFlow) model.Prediction {
	risk := 0.0
	threat := ""

	// Destination-port reputation carries the most weight.
	if t, ok := suspiciousPorts[flow.DstPort]; ok {
		risk += 0.40
		threat = t
	}

	// Packet-rate anomaly: sustained high packet rates look like flooding.
	if flow.FlowDuration > 0 && flow.PacketCount > 0 {
		pps := float64(flow.PacketCount) / flow.FlowDuration
		if pps > c.thresholds.PacketsPerSecond {
			over := math.Min(pps/(c.thresholds.PacketsPerSecond*4), 1.0)
			risk += 0.25 + 0.15*over
			if threat == "" {
				threat = ThreatDoS
			}
		}
	}

	// Many small packets suggest scanning or SYN probing.
	if flow.PacketCount > 3 && flow.TotalBytes > 0 {
		avg := float64(flow.TotalBytes) / float64(flow.PacketCount)
		if avg < c.thresholds.SmallPayloadBytes {
			risk += 0.20
			if threat == "" {
				threat = ThreatPortScan
			}
		}
	}

	if risk > 1.0 {
		risk = 1.0
	}

	classification := model.ClassBenign
	if risk >= c.thresholds.AttackScore {
		classification = model.ClassAttack
	} else {
		threat = ""
	}

	// Confidence grows with the margin from the decision boundary.
	margin := math.Abs(risk-c.thresholds.AttackScore) / c.thresholds.AttackScore
	confidence := 0.55 + 0.45*math.Min(margin, 1.0)

	return model.Prediction{
		Classification: classification,
		Confidence:     round2(confidence),
		ThreatType:     threat,
		RiskScore:      round2(risk),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
