package eventset

import (
	"sort"
)

func clippedDuration(s *State, start, end Timestamp) Timestamp {
	return min(s.End, end) - max(s.Start, start)
}

// FirstStateInInterval returns the index of the first state event overlapping the closed interval [start, end].
func (s *Set) FirstStateInInterval(start, end Timestamp) int {
	idx := sort.Search(len(s.States), func(i int) bool {
		return s.States[i].End >= start
	})
	if idx == len(s.States) || s.States[idx].Start > end {
		return NoEvent
	}
	return idx
}

// FirstStateStartingInInterval returns the index of the first state event whose start lies in [start, end].
func (s *Set) FirstStateStartingInInterval(start, end Timestamp) int {
	idx := sort.Search(len(s.States), func(i int) bool {
		return s.States[i].Start >= start
	})
	if idx == len(s.States) || s.States[idx].Start > end {
		return NoEvent
	}
	return idx
}

// FirstStateOfTypeStartingInInterval is like FirstStateStartingInInterval but only considers states with the given
// ID.
func (s *Set) FirstStateOfTypeStartingInInterval(start, end Timestamp, state int) int {
	idx := s.FirstStateStartingInInterval(start, end)
	if idx == NoEvent {
		return NoEvent
	}
	for ; idx < len(s.States) && s.States[idx].Start <= end; idx++ {
		if s.States[idx].ID == state {
			return idx
		}
	}
	return NoEvent
}

// NextState returns the index of the first state event after idx with the given ID. Passing NoEvent for idx starts
// the search at the first event.
func (s *Set) NextState(idx int, state int) int {
	for i := idx + 1; i < len(s.States); i++ {
		if s.States[i].ID == state {
			return i
		}
	}
	return NoEvent
}

// EnclosingState returns the index of the state event that contains t.
func (s *Set) EnclosingState(t Timestamp) int {
	idx := s.FirstStateInInterval(t, t)
	if idx == NoEvent {
		return NoEvent
	}
	if ev := &s.States[idx]; ev.Start > t || ev.End < t {
		return NoEvent
	}
	return idx
}

// MajorState returns the ID of the state that occupies the largest part of [start, end], considering only the parts
// of states inside the interval. Ties are resolved in favour of the lowest state ID. ok is false if no state that
// passes the filter overlaps the interval with a non-zero duration.
func (s *Set) MajorState(f Filter, start, end Timestamp) (state int, ok bool) {
	if s.NumStates == 0 {
		return 0, false
	}
	durations := make([]Timestamp, s.NumStates)
	if !s.StateDurations(f, start, end, durations, false, false) {
		return 0, false
	}

	var best Timestamp
	for id, d := range durations {
		if d > best {
			best = d
			state = id
		}
	}
	return state, best > 0
}

// StateDurations adds, for every state ID, the time spent in that state within [start, end] to durations, which
// must have room for s.NumStates entries. If init is set, durations is zeroed first. If breakHalf is set, the scan
// stops as soon as one state accounts for more than half of the interval.
//
// It reports whether any state event that passes the filter overlaps the interval.
func (s *Set) StateDurations(f Filter, start, end Timestamp, durations []Timestamp, init, breakHalf bool) bool {
	if init {
		clear(durations)
	}
	if end < start {
		return false
	}

	idx := s.FirstStateInInterval(start, end)
	if idx == NoEvent {
		return false
	}

	half := (end - start) / 2
	found := false
	for i := idx; i < len(s.States) && s.States[i].Start <= end; i++ {
		ev := &s.States[i]
		if !filterHasState(f, ev) {
			continue
		}
		found = true
		d := &durations[ev.ID]
		*d += clippedDuration(ev, start, end)
		if breakHalf && *d > half {
			break
		}
	}
	return found
}

// HasStateInInterval reports whether any state event that passes the filter overlaps [start, end].
func (s *Set) HasStateInInterval(f Filter, start, end Timestamp) bool {
	if end < start {
		return false
	}
	idx := s.FirstStateInInterval(start, end)
	if idx == NoEvent {
		return false
	}
	for i := idx; i < len(s.States) && s.States[i].Start <= end; i++ {
		if filterHasState(f, &s.States[i]) {
			return true
		}
	}
	return false
}
