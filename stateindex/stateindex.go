// Package stateindex accelerates per-state duration queries over the state events of an event set.
//
// The index stores, for every group of events, the cumulative time spent in each state up to the end of the group.
// A query looks up the groups bracketing the bounds of the queried interval and only scans the few events between
// a group's end and the interval bounds. State events of a set must not overlap.
package stateindex

import (
	"errors"
	"fmt"

	"honnef.co/go/tracestore/eventset"
)

const DefaultFactor = 30

var ErrFactor = errors.New("factor must be positive")

// Index is built once per event set and filter. Queries don't modify it and may run concurrently.
type Index struct {
	set    *eventset.Set
	filter eventset.Filter
	factor int
	rows   Monotonic
}

// New allocates a state index for set, with one row per factor state events. Call Update to populate it.
func New(set *eventset.Set, numStates, factor int) (*Index, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("factor %d: %w", factor, ErrFactor)
	}
	if numStates < set.NumStates {
		return nil, fmt.Errorf("index for %d states can't hold events with state %d", numStates, set.NumStates-1)
	}
	n := len(set.States)
	idx := &Index{set: set, factor: factor}
	idx.rows.reset(numStates, (n+factor-1)/factor)
	return idx, nil
}

func (idx *Index) Factor() int             { return idx.factor }
func (idx *Index) Rows() *Monotonic        { return &idx.rows }
func (idx *Index) Set() *eventset.Set      { return idx.set }
func (idx *Index) NumStates() int          { return idx.rows.Dimensions() }
func (idx *Index) Filter() eventset.Filter { return idx.filter }

// row returns the row that event i belongs to. Row r ends with event r*factor; the last row also holds any
// remaining events.
func (idx *Index) row(i int) int {
	return min((i+idx.factor-1)/idx.factor, idx.rows.Rows()-1)
}

// Update populates the index in a single pass over the state events, only counting events that pass the filter.
// Subsequent queries use the same filter.
func (idx *Index) Update(f eventset.Filter) {
	idx.filter = f
	rows := idx.rows.Rows()
	idx.rows.reset(idx.rows.Dimensions(), rows)
	if rows == 0 {
		return
	}

	acc := make([]eventset.Timestamp, idx.rows.Dimensions())
	var ts eventset.Timestamp
	nonEmpty := 0
	valid := 0
	cur := 0
	curHasState := false
	for i := range idx.set.States {
		ev := &idx.set.States[i]
		if r := idx.row(i); r != cur {
			idx.rows.Set(cur, ts, acc, valid)
			cur = r
			valid = nonEmpty
			curHasState = false
		}
		if f != nil && !f.HasState(ev) {
			continue
		}
		acc[ev.ID] += ev.Duration()
		ts = ev.End
		if !curHasState {
			curHasState = true
			nonEmpty++
		}
	}
	idx.rows.Set(cur, ts, acc, valid)
}

// Resolves reports whether a query over [start, end] can use the row table. If it can't, StateDurations scans the
// events in the interval instead.
func (idx *Index) Resolves(start, end eventset.Timestamp) bool {
	if end < start {
		return false
	}
	lend, ok := idx.rows.LIndex(end)
	if !ok {
		return false
	}
	lstart, ok := idx.rows.LIndex(start)
	return !ok || lstart != lend
}

// StateDurations adds, for every state, the time spent in it within [start, end] to durations, which must have room
// for NumStates entries. If init is set, durations is zeroed first. breakHalf is passed on to the event set when
// the index can't be used. It reports whether any state event passing the filter overlaps the interval.
func (idx *Index) StateDurations(start, end eventset.Timestamp, durations []eventset.Timestamp, init, breakHalf bool) bool {
	dims := idx.rows.Dimensions()
	if init {
		clear(durations[:dims])
	}
	if end < start {
		return false
	}

	set, f := idx.set, idx.filter
	lend, ok := idx.rows.LIndex(end)
	if !ok {
		// Neither bound is covered by the index.
		return set.StateDurations(f, start, end, durations, false, breakHalf)
	}
	lstart, startOK := idx.rows.LIndex(start)
	if startOK && lstart == lend {
		// Both bounds lie between the same two rows.
		return set.StateDurations(f, start, end, durations, false, breakHalf)
	}

	atStart := make([]eventset.Timestamp, dims)
	atEnd := make([]eventset.Timestamp, dims)
	hasState := false

	// Durations in [0, start]
	var next eventset.Timestamp
	var validStart int
	if startOK {
		ts, _ := idx.rows.Get(lstart, atStart)
		set.StateDurations(f, ts, start, atStart, false, false)
		next, validStart = idx.rows.Timestamp(lstart+1), idx.rows.Valid(lstart+1)
	} else {
		set.StateDurations(f, 0, start, atStart, false, false)
		next, validStart = idx.rows.Timestamp(0), idx.rows.Valid(0)
	}

	// Rows that contain states between the two bounds, or states between start and the next row.
	if idx.rows.Valid(lend)-validStart > 0 || set.HasStateInInterval(f, start, next) {
		hasState = true
	}

	// Durations in [0, end]
	ts, _ := idx.rows.Get(lend, atEnd)
	if set.StateDurations(f, ts, end, atEnd, false, false) {
		hasState = true
	}

	for i := range dims {
		durations[i] += atEnd[i] - atStart[i]
	}
	return hasState
}

// MajorState returns the state occupying the largest part of [start, end]. Ties are resolved in favour of the
// lowest state ID.
func (idx *Index) MajorState(start, end eventset.Timestamp) (state int, ok bool) {
	durations := make([]eventset.Timestamp, idx.NumStates())
	if !idx.StateDurations(start, end, durations, true, true) {
		return 0, false
	}
	var best eventset.Timestamp
	for id, d := range durations {
		if d > best {
			best, state = d, id
		}
	}
	return state, best > 0
}
