package query

import (
	"honnef.co/go/tracestore/addrtree"
	"honnef.co/go/tracestore/eventset"

	"golang.org/x/exp/slices"
)

// NUMABytes returns, per NUMA node, the number of bytes moved by the lane's communication events in [start, end]
// whose kind is any of kinds. An event's bytes are split between nodes according to how its memory object overlaps
// the frames. ok reports whether any bytes could be attributed to a node.
func (l *Lane) NUMABytes(f eventset.Filter, kinds []eventset.CommKind, start, end eventset.Timestamp, frames *addrtree.Tree) (bytes []uint64, ok bool) {
	bytes = make([]uint64, frames.NumNodes())
	s := l.Events
	idx := s.FirstCommInInterval(start, end)
	if idx == eventset.NoEvent {
		return bytes, false
	}
	for ; idx < len(s.Comms) && s.Comms[idx].Time <= end; idx++ {
		ev := &s.Comms[idx]
		if !slices.Contains(kinds, ev.Kind) || (f != nil && !f.HasComm(ev)) {
			continue
		}
		if frames.Distribute(ev.What, ev.Size, bytes) > 0 {
			ok = true
		}
	}
	return bytes, ok
}

// MajorNUMANode returns the NUMA node targeted by the most bytes of the lane's communication events in [start, end],
// attributing each event to the node holding the object's first byte.
func (l *Lane) MajorNUMANode(f eventset.Filter, kinds []eventset.CommKind, start, end eventset.Timestamp, frames *addrtree.Tree) (int, bool) {
	return l.Events.MajorNUMANode(f, kinds, start, end, frames.NodeOf, frames.NumNodes())
}
