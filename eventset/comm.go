package eventset

import (
	"sort"

	"golang.org/x/exp/slices"
)

// firstAtOrAfter returns the smallest index i in [0, n) for which at(i) >= t, or n.
func firstAtOrAfter(n int, at func(i int) Timestamp, t Timestamp) int {
	return sort.Search(n, func(i int) bool { return at(i) >= t })
}

// lastAtOrBefore returns the largest index i in [0, n) for which at(i) <= t, or -1.
func lastAtOrBefore(n int, at func(i int) Timestamp, t Timestamp) int {
	return sort.Search(n, func(i int) bool { return at(i) > t }) - 1
}

func (s *Set) commTime(i int) Timestamp { return s.Comms[i].Time }

// NextComm returns the index of the first communication event after idx of the given kind.
func (s *Set) NextComm(idx int, kind CommKind) int {
	for i := idx + 1; i < len(s.Comms); i++ {
		if s.Comms[i].Kind == kind {
			return i
		}
	}
	return NoEvent
}

// NextCommOfKinds returns the index of the first communication event after idx whose kind is any of kinds.
func (s *Set) NextCommOfKinds(idx int, kinds []CommKind) int {
	for i := idx + 1; i < len(s.Comms); i++ {
		if slices.Contains(kinds, s.Comms[i].Kind) {
			return i
		}
	}
	return NoEvent
}

// FirstCommInInterval returns the index of the first communication event in [start, end].
func (s *Set) FirstCommInInterval(start, end Timestamp) int {
	idx := firstAtOrAfter(len(s.Comms), s.commTime, start)
	if idx == len(s.Comms) || s.Comms[idx].Time > end {
		return NoEvent
	}
	return idx
}

// LastCommInInterval returns the index of the last communication event in [start, end].
func (s *Set) LastCommInInterval(start, end Timestamp) int {
	idx := lastAtOrBefore(len(s.Comms), s.commTime, end)
	if idx < 0 || s.Comms[idx].Time < start {
		return NoEvent
	}
	return idx
}

func (s *Set) FirstCommOfKindInInterval(start, end Timestamp, kind CommKind) int {
	idx := s.FirstCommInInterval(start, end)
	if idx == NoEvent {
		return NoEvent
	}
	for ; idx < len(s.Comms) && s.Comms[idx].Time <= end; idx++ {
		if s.Comms[idx].Kind == kind {
			return idx
		}
	}
	return NoEvent
}

func (s *Set) LastCommOfKindInInterval(start, end Timestamp, kind CommKind) int {
	idx := s.LastCommInInterval(start, end)
	if idx == NoEvent {
		return NoEvent
	}
	for ; idx >= 0 && s.Comms[idx].Time >= start; idx-- {
		if s.Comms[idx].Kind == kind {
			return idx
		}
	}
	return NoEvent
}

// CommByKind returns the indices of all communication events, ordered by kind and then by time. The ordering is
// computed on first use and cached until the next call to AddComm.
func (s *Set) CommByKind() []int {
	s.commMu.Lock()
	defer s.commMu.Unlock()
	if !s.commSorted {
		order := make([]int, len(s.Comms))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return int(s.Comms[a].Kind) - int(s.Comms[b].Kind)
		})
		s.commByKind, s.commSorted = order, true
	}
	return s.commByKind
}

// NodeLookup maps a memory address to the NUMA node holding it.
type NodeLookup func(addr uint64) (node int, ok bool)

// NUMABytes adds, for every NUMA node, the number of bytes moved by the communication events in [start, end] whose
// kind is any of kinds to out, which must have room for every node returned by nodeOf. Events whose memory object
// can't be mapped to a node are ignored. It reports whether any event was accounted for.
func (s *Set) NUMABytes(f Filter, kinds []CommKind, start, end Timestamp, nodeOf NodeLookup, out []uint64) bool {
	idx := s.FirstCommInInterval(start, end)
	if idx == NoEvent {
		return false
	}
	found := false
	for ; idx < len(s.Comms) && s.Comms[idx].Time <= end; idx++ {
		ev := &s.Comms[idx]
		if !slices.Contains(kinds, ev.Kind) || !filterHasComm(f, ev) {
			continue
		}
		node, ok := nodeOf(ev.What)
		if !ok {
			continue
		}
		out[node] += ev.Size
		found = true
	}
	return found
}

// MajorNUMANode returns the NUMA node that was the target of the most bytes in [start, end].
func (s *Set) MajorNUMANode(f Filter, kinds []CommKind, start, end Timestamp, nodeOf NodeLookup, numNodes int) (int, bool) {
	bytes := make([]uint64, numNodes)
	if !s.NUMABytes(f, kinds, start, end, nodeOf, bytes) {
		return 0, false
	}
	best, node := uint64(0), 0
	for n, b := range bytes {
		if b > best {
			best, node = b, n
		}
	}
	return node, best > 0
}
