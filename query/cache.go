package query

import (
	"errors"
	"fmt"

	"honnef.co/go/tracestore/container"
	"honnef.co/go/tracestore/counterindex"
	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/mysync"
	"honnef.co/go/tracestore/tinylfu"
)

type queryKind uint8

const (
	kindCounterValue queryKind = iota
	kindCounterSlope
	kindStateDurations
	kindMajorState
)

func (k queryKind) String() string {
	switch k {
	case kindCounterValue:
		return "counter_value"
	case kindCounterSlope:
		return "counter_slope"
	case kindStateDurations:
		return "state_durations"
	case kindMajorState:
		return "major_state"
	default:
		return "unknown"
	}
}

type cacheKey struct {
	gen        uint64
	kind       queryKind
	lane, id   int
	start, end uint64
}

type result struct {
	lo, hi    int64
	slo, shi  float64
	durations []eventset.Timestamp
	state     int
	ok        bool
	err       error
}

// cached returns the cached result for key or computes and caches it. Errors other than missing data aren't cached.
func (tr *Trace) cached(key cacheKey, compute func() result) result {
	// Results computed from a newer build than gen are still correct, they just won't be hit again.
	key.gen = tr.gen.Load()
	kind := key.kind.String()
	tr.metrics.Queries.WithLabelValues(kind).Inc()
	if tr.cache == nil {
		return compute()
	}

	hit := mysync.Locked(tr.cache, func(c *tinylfu.T[cacheKey, result]) container.Option[result] {
		if res, ok := c.Get(key); ok {
			return container.Some(res)
		}
		return container.None[result]()
	})
	if res, ok := hit.Get(); ok {
		tr.metrics.CacheHits.WithLabelValues(kind).Inc()
		return res
	}
	tr.metrics.CacheMisses.WithLabelValues(kind).Inc()

	res := compute()
	if res.err == nil || errors.Is(res.err, counterindex.ErrNoData) || errors.Is(res.err, ErrNoStateData) {
		tr.cache.With(func(c *tinylfu.T[cacheKey, result]) { c.Add(key, res) })
	}
	return res
}

func (tr *Trace) purge() {
	if tr.cache == nil {
		return
	}
	tr.cache.With((*tinylfu.T[cacheKey, result]).Purge)
}

func (tr *Trace) counterIndex(lane, counter int) (*counterindex.Index, error) {
	l, err := tr.indexedLane(lane)
	if err != nil {
		return nil, err
	}
	idx, ok := l.Counters[counter]
	if !ok {
		return nil, fmt.Errorf("counter %d on lane %d: %w", counter, lane, ErrNoCounter)
	}
	return idx, nil
}

// CounterMinMax returns the smallest and largest value of a counter on a lane within [start, end], interpolating at
// the bounds. Negative bounds are clamped to zero.
func (tr *Trace) CounterMinMax(lane, counter int, start, end int64) (lo, hi int64, err error) {
	key := cacheKey{kind: kindCounterValue, lane: lane, id: counter, start: uint64(start), end: uint64(end)}
	res := tr.cached(key, func() result {
		idx, err := tr.counterIndex(lane, counter)
		if err != nil {
			return result{err: err}
		}
		lo, hi, err := idx.MinMaxValue(start, end)
		return result{lo: lo, hi: hi, err: err}
	})
	return res.lo, res.hi, res.err
}

// CounterSlopeMinMax is like CounterMinMax, but for the counter's rate of change.
func (tr *Trace) CounterSlopeMinMax(lane, counter int, start, end int64) (lo, hi float64, err error) {
	key := cacheKey{kind: kindCounterSlope, lane: lane, id: counter, start: uint64(start), end: uint64(end)}
	res := tr.cached(key, func() result {
		idx, err := tr.counterIndex(lane, counter)
		if err != nil {
			return result{err: err}
		}
		lo, hi, err := idx.MinMaxSlope(start, end)
		return result{slo: lo, shi: hi, err: err}
	})
	return res.slo, res.shi, res.err
}

func (tr *Trace) stateQuery(l Lane, start, end eventset.Timestamp) {
	if !l.States.Resolves(start, end) {
		tr.metrics.Fallbacks.Inc()
	}
}

// StateDurations returns, for every state, the time spent in it on a lane within [start, end]. ok reports whether any
// state event overlaps the interval.
func (tr *Trace) StateDurations(lane int, start, end eventset.Timestamp) (durations []eventset.Timestamp, ok bool, err error) {
	key := cacheKey{kind: kindStateDurations, lane: lane, start: uint64(start), end: uint64(end)}
	res := tr.cached(key, func() result {
		l, err := tr.indexedLane(lane)
		if err != nil {
			return result{err: err}
		}
		tr.stateQuery(l, start, end)
		d := make([]eventset.Timestamp, l.States.NumStates())
		ok := l.States.StateDurations(start, end, d, true, false)
		return result{durations: d, ok: ok}
	})
	if res.err != nil {
		return nil, false, res.err
	}
	return append([]eventset.Timestamp(nil), res.durations...), res.ok, nil
}

// MajorState returns the state a lane spent the most time in within [start, end].
func (tr *Trace) MajorState(lane int, start, end eventset.Timestamp) (state int, err error) {
	key := cacheKey{kind: kindMajorState, lane: lane, start: uint64(start), end: uint64(end)}
	res := tr.cached(key, func() result {
		l, err := tr.indexedLane(lane)
		if err != nil {
			return result{err: err}
		}
		tr.stateQuery(l, start, end)
		state, ok := l.States.MajorState(start, end)
		if !ok {
			return result{err: fmt.Errorf("lane %d [%d, %d]: %w", lane, start, end, ErrNoStateData)}
		}
		return result{state: state, ok: true}
	})
	return res.state, res.err
}
