package capture

import (
	"sort"
	"time"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// flowState accumulates packets sharing a 5-tuple.
type flowState struct {
	tuple   FiveTuple
	first   time.Time
	last    time.Time
	bytes   int64
	packets int
}

// AssembleFlows groups packets by 5-tuple and produces one NetworkFlow per
// tuple. Flows come back ordered by first-seen time so downstream results
// remain stable for identical inputs.
func AssembleFlows(packets []*PacketInfo) []model.NetworkFlow {
	states := make(map[string]*flowState)
	var order []string

	for _, p := range packets {
		key := p.FiveTuple.Key()
		st, ok := states[key]
		if !ok {
			st = &flowState{tuple: p.FiveTuple, first: p.Timestamp, last: p.Timestamp}
			states[key] = st
			order = append(order, key)
		}
		if p.Timestamp.Before(st.first) {
			st.first = p.Timestamp
		}
		if p.Timestamp.After(st.last) {
			st.last = p.Timestamp
		}
		st.bytes += int64(p.Length)
		st.packets++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return states[order[i]].first.Before(states[order[j]].first)
	})

	flows := make([]model.NetworkFlow, 0, len(order))
	for _, key := range order {
		st := states[key]
		flows = append(flows, model.NetworkFlow{
			SrcIP:        st.tuple.SrcIP.String(),
			SrcPort:      int(st.tuple.SrcPort),
			DstIP:        st.tuple.DstIP.String(),
			DstPort:      int(st.tuple.DstPort),
			Protocol:     st.tuple.ProtocolName(),
			FlowDuration: st.last.Sub(st.first).Seconds(),
			TotalBytes:   st.bytes,
			PacketCount:  st.packets,
			Timestamp:    st.first,
		})
	}
	return flows
}
