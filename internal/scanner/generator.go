package scanner

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// FlowSource produces the flows examined during a scan cycle. The default
// source synthesizes traffic; tests inject deterministic sources.
type FlowSource interface {
	Flows() []model.NetworkFlow
}

// SyntheticSource generates plausible network traffic: mostly internal
// hosts talking to well-known services, with a configurable fraction of
// connections to suspicious ports.
type SyntheticSource struct {
	rng             *rand.Rand
	SuspiciousRatio float64
}

// NewSyntheticSource creates a source seeded from the clock.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		SuspiciousRatio: 0.2,
	}
}

var (
	externalIPs     = []string{"8.8.8.8", "1.1.1.1", "4.4.4.4", "208.67.222.222"}
	commonPorts     = []int{80, 443, 53, 25, 110, 993, 995}
	suspiciousPorts = []int{22, 23, 135, 139, 445, 1433, 3389, 4444, 5432}
)

// Flows returns between one and five synthetic flows.
func (s *SyntheticSource) Flows() []model.NetworkFlow {
	n := s.rng.Intn(5) + 1
	flows := make([]model.NetworkFlow, 0, n)

	for i := 0; i < n; i++ {
		srcIP := fmt.Sprintf("192.168.1.%d", s.rng.Intn(100)+100)

		dstIP := externalIPs[s.rng.Intn(len(externalIPs))]
		if s.rng.Float64() < 0.3 {
			dstIP = fmt.Sprintf("192.168.1.%d", s.rng.Intn(100)+100)
		}

		dstPort := commonPorts[s.rng.Intn(len(commonPorts))]
		if s.rng.Float64() < s.SuspiciousRatio {
			dstPort = suspiciousPorts[s.rng.Intn(len(suspiciousPorts))]
		}

		protocol := "TCP"
		if s.rng.Float64() >= 0.8 {
			protocol = "UDP"
		}

		flows = append(flows, model.NetworkFlow{
			SrcIP:        srcIP,
			SrcPort:      s.rng.Intn(64512) + 1024,
			DstIP:        dstIP,
			DstPort:      dstPort,
			Protocol:     protocol,
			FlowDuration: 0.1 + s.rng.Float64()*9.9,
			TotalBytes:   int64(s.rng.Intn(1437) + 64),
			PacketCount:  s.rng.Intn(100) + 1,
			Timestamp:    time.Now().UTC(),
		})
	}
	return flows
}
