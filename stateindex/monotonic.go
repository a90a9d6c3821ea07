package stateindex

import (
	"sort"

	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/mem"
)

// Monotonic is a table of rows, each consisting of a timestamp, one cumulative value per dimension and a validity
// marker. Timestamps and values must not decrease from one row to the next.
type Monotonic struct {
	dims       int
	timestamps []eventset.Timestamp
	// Row i occupies samples[i*dims : (i+1)*dims].
	samples []eventset.Timestamp
	valid   []int
}

func NewMonotonic(dims, rows int) *Monotonic {
	m := &Monotonic{}
	m.reset(dims, rows)
	return m
}

func (m *Monotonic) reset(dims, rows int) {
	m.dims = dims
	m.timestamps = mem.EnsureLen(m.timestamps[:0], rows)
	m.samples = mem.EnsureLen(m.samples[:0], rows*dims)
	m.valid = mem.EnsureLen(m.valid[:0], rows)
	clear(m.timestamps)
	clear(m.samples)
	clear(m.valid)
}

func (m *Monotonic) Rows() int       { return len(m.timestamps) }
func (m *Monotonic) Dimensions() int { return m.dims }

func (m *Monotonic) row(i int) []eventset.Timestamp {
	return m.samples[i*m.dims : (i+1)*m.dims]
}

// Set stores row i.
func (m *Monotonic) Set(i int, t eventset.Timestamp, sample []eventset.Timestamp, valid int) {
	m.timestamps[i] = t
	m.valid[i] = valid
	copy(m.row(i), sample)
}

// Get copies the values of row i into sample and returns the row's timestamp and validity marker.
func (m *Monotonic) Get(i int, sample []eventset.Timestamp) (t eventset.Timestamp, valid int) {
	copy(sample, m.row(i))
	return m.timestamps[i], m.valid[i]
}

func (m *Monotonic) Timestamp(i int) eventset.Timestamp { return m.timestamps[i] }
func (m *Monotonic) Valid(i int) int                    { return m.valid[i] }

// LIndex returns the last row whose timestamp is at or before t. ok is false if there are no rows or t precedes the
// first row.
func (m *Monotonic) LIndex(t eventset.Timestamp) (i int, ok bool) {
	if len(m.timestamps) == 0 || t < m.timestamps[0] {
		return 0, false
	}
	return sort.Search(len(m.timestamps), func(i int) bool { return m.timestamps[i] > t }) - 1, true
}
