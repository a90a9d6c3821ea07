package eventset

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnterminatedExecution = errors.New("task execution has no end event")
	ErrFrameMismatch         = errors.New("task execution start and end refer to different frames")
)

// Execution is one execution of a task, delimited by a texec start and a texec end point event.
type Execution struct {
	Start, End Timestamp
	// Indices into Set.Singles.
	StartEvent, EndEvent int
	Task                 uint64
	Frame                uint64
}

func (e *Execution) Duration() Timestamp { return e.End - e.Start }

// Executions returns the task executions found by the last call to LinkTaskExecutionBounds, sorted by start.
func (s *Set) Executions() []Execution { return s.executions }

// LinkTaskExecutionBounds pairs every texec start event with the next texec end event and links events to the
// executions around them:
//
//   - every point event points to the previous and next texec start and end events,
//   - state and communication events inside an execution point to its start and end events.
//
// It returns an error if an execution has no end or if its start and end events refer to different frames.
func (s *Set) LinkTaskExecutionBounds() error {
	s.executions = s.executions[:0]
	for i := range s.Singles {
		ev := &s.Singles[i]
		ev.PrevTexecStart, ev.PrevTexecEnd = NoEvent, NoEvent
		ev.NextTexecStart, ev.NextTexecEnd = NoEvent, NoEvent
	}

	lastStart, lastEnd := NoEvent, NoEvent
	endIdx := NoEvent
	for {
		startIdx := s.NextSingle(endIdx, SingleTexecStart)
		if startIdx == NoEvent {
			break
		}
		endIdx = s.NextSingle(startIdx, SingleTexecEnd)
		if endIdx == NoEvent {
			return fmt.Errorf("execution starting at %d: %w", s.Singles[startIdx].Time, ErrUnterminatedExecution)
		}

		ese, eee := &s.Singles[startIdx], &s.Singles[endIdx]
		if ese.Frame != eee.Frame {
			return fmt.Errorf("execution starting at %d: %w", ese.Time, ErrFrameMismatch)
		}

		from := max(lastStart, 0)
		for i := from; i < startIdx; i++ {
			s.Singles[i].NextTexecStart = startIdx
		}
		for i := lastEnd + 1; i < endIdx; i++ {
			ev := &s.Singles[i]
			ev.NextTexecEnd = endIdx
			ev.PrevTexecEnd = lastEnd
			if i > startIdx {
				ev.PrevTexecStart = startIdx
			} else {
				ev.PrevTexecStart = lastStart
			}
		}
		eee.PrevTexecStart = startIdx
		eee.PrevTexecEnd = lastEnd

		if si := s.FirstStateStartingInInterval(ese.Time, eee.Time); si != NoEvent {
			for ; si < len(s.States) && s.States[si].Start < eee.Time; si++ {
				s.States[si].TexecStart = startIdx
				s.States[si].TexecEnd = endIdx
			}
		}
		if ci := s.FirstCommInInterval(ese.Time, eee.Time); ci != NoEvent {
			for ; ci < len(s.Comms) && s.Comms[ci].Time <= eee.Time; ci++ {
				s.Comms[ci].TexecStart = startIdx
				s.Comms[ci].TexecEnd = endIdx
			}
		}

		s.executions = append(s.executions, Execution{
			Start:      ese.Time,
			End:        eee.Time,
			StartEvent: startIdx,
			EndEvent:   endIdx,
			Task:       ese.Task,
			Frame:      ese.Frame,
		})
		lastStart, lastEnd = startIdx, endIdx
	}

	for i := lastEnd + 1; lastEnd != NoEvent && i < len(s.Singles); i++ {
		s.Singles[i].PrevTexecStart = lastStart
		s.Singles[i].PrevTexecEnd = lastEnd
	}
	return nil
}

// NextTexecStartForFrame returns the index of the first texec start event at or after t that executes the given
// frame. It relies on the links established by LinkTaskExecutionBounds.
func (s *Set) NextTexecStartForFrame(t Timestamp, frame uint64) int {
	idx := firstAtOrAfter(len(s.Singles), s.singleTime, t)
	if idx == len(s.Singles) {
		return NoEvent
	}
	if s.Singles[idx].Kind != SingleTexecStart {
		idx = s.Singles[idx].NextTexecStart
	}
	for idx != NoEvent && s.Singles[idx].Frame != frame {
		idx = s.Singles[idx].NextTexecStart
	}
	return idx
}

// firstExecutionEndingAtOrAfter returns the index of the first execution that ends at or after t.
func (s *Set) firstExecutionEndingAtOrAfter(t Timestamp) int {
	return sort.Search(len(s.executions), func(i int) bool { return s.executions[i].End >= t })
}

// AverageTaskLength returns the average duration of the task executions overlapping [start, end]. Executions that
// only partially overlap the interval count proportionally to the overlap, and count is the resulting, possibly
// fractional, number of executions.
func (s *Set) AverageTaskLength(f Filter, start, end Timestamp) (avg Timestamp, count float64) {
	var total float64
	for i := s.firstExecutionEndingAtOrAfter(start); i < len(s.executions); i++ {
		e := &s.executions[i]
		if e.Start > end {
			break
		}
		if !filterHasTask(f, e.Task) || e.Duration() == 0 {
			continue
		}
		overlap := min(e.End, end) - max(e.Start, start)
		count += float64(overlap) / float64(e.Duration())
		total += float64(overlap)
	}
	if count == 0 {
		return 0, 0
	}
	return Timestamp(math.Round(total / count)), count
}

// MinMaxTaskDuration returns the shortest and longest executions that start and end within [start, end].
func (s *Set) MinMaxTaskDuration(f Filter, start, end Timestamp) (lo, hi Timestamp, ok bool) {
	for i := s.firstExecutionEndingAtOrAfter(start); i < len(s.executions); i++ {
		e := &s.executions[i]
		if e.Start > end {
			break
		}
		if e.Start < start || e.End > end || !filterHasTask(f, e.Task) {
			continue
		}
		d := e.Duration()
		if !ok {
			lo, hi, ok = d, d, true
			continue
		}
		lo = min(lo, d)
		hi = max(hi, d)
	}
	return lo, hi, ok
}

func (s *Set) MinTaskDuration(f Filter, start, end Timestamp) (Timestamp, bool) {
	lo, _, ok := s.MinMaxTaskDuration(f, start, end)
	return lo, ok
}

func (s *Set) MaxTaskDuration(f Filter, start, end Timestamp) (Timestamp, bool) {
	_, hi, ok := s.MinMaxTaskDuration(f, start, end)
	return hi, ok
}

// TaskDurations adds, per task, the time spent executing it within [start, end] to out.
func (s *Set) TaskDurations(f Filter, start, end Timestamp, out map[uint64]Timestamp) {
	for i := s.firstExecutionEndingAtOrAfter(start); i < len(s.executions); i++ {
		e := &s.executions[i]
		if e.Start > end {
			break
		}
		if !filterHasTask(f, e.Task) {
			continue
		}
		out[e.Task] += min(e.End, end) - max(e.Start, start)
	}
}
