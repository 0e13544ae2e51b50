// Package capture reads packet capture files and assembles their packets
// into network flow records. Only offline files are supported; the reader
// is pure Go and needs no libpcap.
package capture

import (
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FiveTuple identifies a flow.
type FiveTuple struct {
	SrcIP    net.IP
	DstIP    net.IP
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// Key returns the canonical map key for the tuple.
func (t FiveTuple) Key() string {
	return fmt.Sprintf("%s:%d->%s:%d:%d", t.SrcIP, t.SrcPort, t.DstIP, t.DstPort, t.Protocol)
}

// ProtocolName maps the IP protocol number to the label used in flow
// records.
func (t FiveTuple) ProtocolName() string {
	switch t.Protocol {
	case 6:
		return "TCP"
	case 17:
		return "UDP"
	default:
		return fmt.Sprintf("IP_%d", t.Protocol)
	}
}

// PacketInfo holds the metadata extracted from a single packet.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	Length    int
}

// ParsePacket decodes a raw Ethernet frame and extracts the 5-tuple.
// Non-IPv4 and non-TCP/UDP packets are rejected with an error.
func ParsePacket(data []byte, ts time.Time) (*PacketInfo, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	info := &PacketInfo{
		Timestamp: ts,
		Length:    len(data),
	}
	if info.Timestamp.IsZero() {
		if meta := packet.Metadata(); meta != nil {
			info.Timestamp = meta.Timestamp
		}
	}

	var tuple FiveTuple

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		tuple.SrcIP = ip.SrcIP
		tuple.DstIP = ip.DstIP
		tuple.Protocol = uint8(ip.Protocol)
	} else {
		return nil, fmt.Errorf("not an IPv4 packet")
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		tuple.SrcPort = uint16(tcp.SrcPort)
		tuple.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		tuple.SrcPort = uint16(udp.SrcPort)
		tuple.DstPort = uint16(udp.DstPort)
	} else {
		return nil, fmt.Errorf("not a TCP or UDP packet")
	}

	info.FiveTuple = tuple
	return info, nil
}
