package eventset

func (s *Set) singleTime(i int) Timestamp { return s.Singles[i].Time }

// NextSingle returns the index of the first point event after idx of the given kind.
func (s *Set) NextSingle(idx int, kind SingleKind) int {
	for i := idx + 1; i < len(s.Singles); i++ {
		if s.Singles[i].Kind == kind {
			return i
		}
	}
	return NoEvent
}

// FirstSingleInInterval returns the index of the first point event in [start, end].
func (s *Set) FirstSingleInInterval(start, end Timestamp) int {
	idx := firstAtOrAfter(len(s.Singles), s.singleTime, start)
	if idx == len(s.Singles) || s.Singles[idx].Time > end {
		return NoEvent
	}
	return idx
}

// LastSingleInInterval returns the index of the last point event in [start, end].
func (s *Set) LastSingleInInterval(start, end Timestamp) int {
	idx := lastAtOrBefore(len(s.Singles), s.singleTime, end)
	if idx < 0 || s.Singles[idx].Time < start {
		return NoEvent
	}
	return idx
}

func (s *Set) FirstSingleOfKindInInterval(start, end Timestamp, kind SingleKind) int {
	idx := s.FirstSingleInInterval(start, end)
	if idx == NoEvent {
		return NoEvent
	}
	for ; idx < len(s.Singles) && s.Singles[idx].Time <= end; idx++ {
		if s.Singles[idx].Kind == kind {
			return idx
		}
	}
	return NoEvent
}

func (s *Set) LastSingleOfKindInInterval(start, end Timestamp, kind SingleKind) int {
	idx := s.LastSingleInInterval(start, end)
	if idx == NoEvent {
		return NoEvent
	}
	for ; idx >= 0 && s.Singles[idx].Time >= start; idx-- {
		if s.Singles[idx].Kind == kind {
			return idx
		}
	}
	return NoEvent
}
