package eventset

import (
	"fmt"

	"honnef.co/go/tracestore/arith"
)

type CounterSample struct {
	Time  Timestamp
	Value int64
	// Rate of change since the previous sample of the same counter, 0 for the first sample.
	Slope float64
	// Task active when the sample was taken, 0 if none.
	Task uint64
}

// Counter is the time-ordered sample stream of one counter on one lane. No two samples share a timestamp.
type Counter struct {
	ID      int
	Samples []CounterSample
}

func slope(prev, cur *CounterSample) float64 {
	return (float64(cur.Value) - float64(prev.Value)) / float64(cur.Time-prev.Time)
}

// AddCounterSample appends a sample to the counter with the given ID, creating the counter if necessary. The
// sample's slope is computed from the previous sample. Samples must be added in strictly increasing time order.
func (s *Set) AddCounterSample(id int, smp CounterSample) error {
	ci, ok := s.counterIndex[id]
	if !ok {
		ci = len(s.Counters)
		s.Counters = append(s.Counters, Counter{ID: id})
		if s.counterIndex == nil {
			s.counterIndex = make(map[int]int)
		}
		s.counterIndex[id] = ci
	}
	c := &s.Counters[ci]

	if n := len(c.Samples); n > 0 {
		prev := &c.Samples[n-1]
		if smp.Time <= prev.Time {
			return fmt.Errorf("counter %d: sample at %d after sample at %d: %w", id, smp.Time, prev.Time, ErrOutOfOrder)
		}
		smp.Slope = slope(prev, &smp)
	} else {
		smp.Slope = 0
	}
	c.Samples = append(c.Samples, smp)
	s.extend(smp.Time, smp.Time)
	return nil
}

// CounterIndex returns the position in s.Counters of the counter with the given ID.
func (s *Set) CounterIndex(id int) int {
	if ci, ok := s.counterIndex[id]; ok {
		return ci
	}
	return NoEvent
}

// Counter returns the counter with the given ID, or nil.
func (s *Set) Counter(id int) *Counter {
	if ci, ok := s.counterIndex[id]; ok {
		return &s.Counters[ci]
	}
	return nil
}

func (s *Set) HasCounter(id int) bool {
	_, ok := s.counterIndex[id]
	return ok
}

// CountersMonotonic reports whether every counter's value never decreases. If not, it returns the ID of the first
// offending counter.
func (s *Set) CountersMonotonic() (bool, int) {
	for i := range s.Counters {
		c := &s.Counters[i]
		for j := 1; j < len(c.Samples); j++ {
			if c.Samples[j].Value < c.Samples[j-1].Value {
				return false, c.ID
			}
		}
	}
	return true, 0
}

// Interpolate returns the value at t on the line between left and right, with left.Time <= t <= right.Time.
func Interpolate(left, right *CounterSample, t Timestamp) (int64, arith.Status) {
	if t == left.Time {
		return left.Value, arith.Exact
	}
	if left.Time >= right.Time || t < left.Time || t > right.Time {
		panic(fmt.Sprintf("interpolating at %d between samples at %d and %d", t, left.Time, right.Time))
	}
	dv, st := arith.Sub(right.Value, left.Value)
	if st != arith.Exact {
		return 0, st
	}
	off, st := arith.MulDivMixed[int64](dv, t-left.Time, right.Time-left.Time)
	if st != arith.Exact {
		return 0, st
	}
	return arith.Add(left.Value, off)
}

func (c *Counter) sampleTime(i int) Timestamp { return c.Samples[i].Time }

// FirstSampleAtOrAfter returns the index of the first sample at or after t, or len(c.Samples).
func (c *Counter) FirstSampleAtOrAfter(t Timestamp) int {
	return firstAtOrAfter(len(c.Samples), c.sampleTime, t)
}

// FirstSampleInInterval returns the index of the first sample in [start, end].
func (c *Counter) FirstSampleInInterval(start, end Timestamp) int {
	idx := c.FirstSampleAtOrAfter(start)
	if idx == len(c.Samples) || c.Samples[idx].Time > end {
		return NoEvent
	}
	return idx
}

// ValueAt returns the counter's value at t, interpolating between the two samples surrounding t. ok is false if t
// lies outside of the counter's samples or if the interpolation isn't representable.
func (c *Counter) ValueAt(t Timestamp) (v int64, ok bool) {
	idx := c.FirstSampleAtOrAfter(t)
	if idx == len(c.Samples) {
		return 0, false
	}
	if c.Samples[idx].Time == t {
		return c.Samples[idx].Value, true
	}
	if idx == 0 {
		return 0, false
	}
	v, st := Interpolate(&c.Samples[idx-1], &c.Samples[idx], t)
	return v, st == arith.Exact
}
