package capture

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/gopacket/pcapgo"
)

// ReadFile reads every parseable packet from a pcap or pcapng file.
// Packets the parser rejects (non-IPv4, non-TCP/UDP) are skipped; the
// skipped count is returned alongside the parsed packets.
func ReadFile(path string) ([]*PacketInfo, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("capture: open file: %w", err)
	}
	defer f.Close()

	packets, skipped, err := readClassic(f)
	if err == nil {
		return packets, skipped, nil
	}

	// Not a classic pcap; rewind and try the pcapng framing.
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, 0, fmt.Errorf("capture: rewind file: %w", serr)
	}
	packets, skipped, ngErr := readNg(f)
	if ngErr != nil {
		return nil, 0, fmt.Errorf("capture: unreadable capture file: %w", ngErr)
	}
	return packets, skipped, nil
}

func readClassic(r io.Reader) ([]*PacketInfo, int, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, 0, err
	}
	return drain(func() ([]byte, time.Time, error) {
		data, ci, err := pr.ReadPacketData()
		return data, ci.Timestamp, err
	})
}

func readNg(r io.Reader) ([]*PacketInfo, int, error) {
	pr, err := pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return nil, 0, err
	}
	return drain(func() ([]byte, time.Time, error) {
		data, ci, err := pr.ReadPacketData()
		return data, ci.Timestamp, err
	})
}

func drain(next func() ([]byte, time.Time, error)) ([]*PacketInfo, int, error) {
	var packets []*PacketInfo
	skipped := 0

	for {
		data, ts, err := next()
		if err == io.EOF {
			return packets, skipped, nil
		}
		if err != nil {
			// A truncated tail should not discard what was already read.
			if len(packets) > 0 {
				log.Printf("capture: stopping at malformed packet: %v", err)
				return packets, skipped, nil
			}
			return nil, 0, err
		}

		info, perr := ParsePacket(data, ts)
		if perr != nil {
			skipped++
			continue
		}
		packets = append(packets, info)
	}
}
