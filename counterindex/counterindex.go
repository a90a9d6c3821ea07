// Package counterindex implements a static, fixed fan-out summary tree over the samples of a single counter. Every
// node caches the minimum and maximum value and slope of the samples it covers, which answers range queries in
// logarithmic time, interpolating at interval bounds that don't coincide with samples.
package counterindex

import (
	"errors"
	"fmt"
	"sort"

	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/slices"

	"golang.org/x/exp/constraints"
)

const DefaultFanOut = 10

var (
	// ErrNoData is returned by queries whose interval doesn't overlap the indexed samples, and by Build when there
	// are no samples.
	ErrNoData = errors.New("no data in interval")
	ErrFanOut = errors.New("fan-out must be at least 2")
)

const noChild = -1

type Node struct {
	ValueMin, ValueMax int64
	SlopeMin, SlopeMax float64

	// Indices of the first and last sample covered by the node, inclusive.
	FirstSample, LastSample int
	// Indices of the first and last child in Index.Nodes, inclusive. -1 for leaves.
	FirstChild, LastChild int
}

func (n *Node) IsLeaf() bool { return n.FirstChild == noChild }

func (n *Node) NumChildren() int {
	if n.IsLeaf() {
		return 0
	}
	return n.LastChild - n.FirstChild + 1
}

func (n *Node) NumSamples() int { return n.LastSample - n.FirstSample + 1 }

// Index is immutable once built and safe for concurrent queries.
type Index struct {
	// Nodes holds all levels of the tree, starting with the root and ending with the leaves. Within a level, nodes
	// are ordered by time.
	Nodes   []Node
	Samples []eventset.CounterSample
	FanOut  int
}

func numParents(nodes, fanOut int) int {
	return (nodes + fanOut - 1) / fanOut
}

// Build constructs the index for samples, which must be sorted by time without duplicate timestamps. The index
// refers to samples and doesn't copy them; they must not be modified afterwards.
func Build(samples []eventset.CounterSample, fanOut int) (*Index, error) {
	if fanOut < 2 {
		return nil, fmt.Errorf("fan-out %d: %w", fanOut, ErrFanOut)
	}
	if len(samples) == 0 {
		return nil, ErrNoData
	}

	// Sizes of all levels, leaves first.
	var levels []int
	total := 0
	for n := len(samples); ; {
		n = numParents(n, fanOut)
		levels = append(levels, n)
		total += n
		if n <= 1 {
			break
		}
	}

	idx := &Index{
		Nodes:   make([]Node, total),
		Samples: samples,
		FanOut:  fanOut,
	}

	off := total - levels[0]
	i := 0
	for first, last := range slices.Groups(len(samples), fanOut) {
		n := &idx.Nodes[off+i]
		i++
		*n = Node{
			ValueMin:    samples[first].Value,
			ValueMax:    samples[first].Value,
			SlopeMin:    samples[first].Slope,
			SlopeMax:    samples[first].Slope,
			FirstSample: first,
			LastSample:  last,
			FirstChild:  noChild,
			LastChild:   noChild,
		}
		for j := first + 1; j <= last; j++ {
			s := &samples[j]
			n.ValueMin = min(n.ValueMin, s.Value)
			n.ValueMax = max(n.ValueMax, s.Value)
			n.SlopeMin = min(n.SlopeMin, s.Slope)
			n.SlopeMax = max(n.SlopeMax, s.Slope)
		}
	}

	childOff, numChildren := off, levels[0]
	for _, size := range levels[1:] {
		off -= size
		i := 0
		for first, last := range slices.Groups(numChildren, fanOut) {
			first, last = childOff+first, childOff+last
			fc, lc := &idx.Nodes[first], &idx.Nodes[last]
			n := &idx.Nodes[off+i]
			i++
			*n = Node{
				ValueMin:    fc.ValueMin,
				ValueMax:    fc.ValueMax,
				SlopeMin:    fc.SlopeMin,
				SlopeMax:    fc.SlopeMax,
				FirstSample: fc.FirstSample,
				LastSample:  lc.LastSample,
				FirstChild:  first,
				LastChild:   last,
			}
			for j := first + 1; j <= last; j++ {
				c := &idx.Nodes[j]
				n.ValueMin = min(n.ValueMin, c.ValueMin)
				n.ValueMax = max(n.ValueMax, c.ValueMax)
				n.SlopeMin = min(n.SlopeMin, c.SlopeMin)
				n.SlopeMax = max(n.SlopeMax, c.SlopeMax)
			}
		}
		childOff, numChildren = off, size
	}

	return idx, nil
}

func (idx *Index) Root() *Node { return &idx.Nodes[0] }

// Height returns the number of levels of the tree.
func (idx *Index) Height() int {
	h := 1
	for n := idx.Root(); !n.IsLeaf(); n = &idx.Nodes[n.FirstChild] {
		h++
	}
	return h
}

func (idx *Index) firstTime(n *Node) eventset.Timestamp { return idx.Samples[n.FirstSample].Time }
func (idx *Index) lastTime(n *Node) eventset.Timestamp  { return idx.Samples[n.LastSample].Time }

// clamp converts a query interval to timestamps. Negative bounds are clamped to zero. It returns ErrNoData if the
// interval doesn't overlap the samples.
func (idx *Index) clamp(start, end int64) (eventset.Timestamp, eventset.Timestamp, error) {
	if end < start {
		return 0, 0, fmt.Errorf("[%d, %d]: %w", start, end, eventset.ErrInvalidInterval)
	}
	s := eventset.Timestamp(max(start, 0))
	e := eventset.Timestamp(max(end, 0))
	root := idx.Root()
	if s > idx.lastTime(root) || e < idx.firstTime(root) {
		return 0, 0, ErrNoData
	}
	return s, e, nil
}

// MinMaxValue returns the smallest and largest value of the counter in [start, end], interpolating at the bounds.
func (idx *Index) MinMaxValue(start, end int64) (lo, hi int64, err error) {
	s, e, err := idx.clamp(start, end)
	if err != nil {
		return 0, 0, err
	}
	r, err := query[int64](idx, valueMetric{idx.Samples}, 0, s, e)
	return r.lo, r.hi, err
}

// MinMaxSlope returns the smallest and largest slope of the counter in [start, end]. At a bound that falls between
// two samples, the slope of the earlier sample applies.
func (idx *Index) MinMaxSlope(start, end int64) (lo, hi float64, err error) {
	s, e, err := idx.clamp(start, end)
	if err != nil {
		return 0, 0, err
	}
	r, err := query[float64](idx, slopeMetric{idx.Samples}, 0, s, e)
	return r.lo, r.hi, err
}

// metric abstracts over the two quantities tracked by the index.
type metric[T constraints.Ordered] interface {
	// sample returns the quantity at sample i.
	sample(i int) T
	// between returns the quantity at t, which lies strictly between the samples i and i+1.
	between(i int, t eventset.Timestamp) (T, error)
	// node returns the cached bounds of n.
	node(n *Node) (T, T)
}

type valueMetric struct{ samples []eventset.CounterSample }

func (m valueMetric) sample(i int) int64          { return m.samples[i].Value }
func (m valueMetric) node(n *Node) (int64, int64) { return n.ValueMin, n.ValueMax }

func (m valueMetric) between(i int, t eventset.Timestamp) (int64, error) {
	v, st := eventset.Interpolate(&m.samples[i], &m.samples[i+1], t)
	if err := st.Err(); err != nil {
		return 0, fmt.Errorf("interpolating at %d: %w", t, err)
	}
	return v, nil
}

type slopeMetric struct{ samples []eventset.CounterSample }

func (m slopeMetric) sample(i int) float64            { return m.samples[i].Slope }
func (m slopeMetric) node(n *Node) (float64, float64) { return n.SlopeMin, n.SlopeMax }

func (m slopeMetric) between(i int, t eventset.Timestamp) (float64, error) {
	return m.samples[i].Slope, nil
}

type bounds[T constraints.Ordered] struct {
	lo, hi T
	ok     bool
}

func (b *bounds[T]) add(v T) { b.merge(v, v) }

func (b *bounds[T]) merge(lo, hi T) {
	if !b.ok {
		b.lo, b.hi, b.ok = lo, hi, true
		return
	}
	b.lo = min(b.lo, lo)
	b.hi = max(b.hi, hi)
}

// query computes the bounds of m in [start, end] within the subtree rooted at the node with index ni. The interval
// must overlap the node.
func query[T constraints.Ordered, M metric[T]](idx *Index, m M, ni int, start, end eventset.Timestamp) (bounds[T], error) {
	var out bounds[T]
	n := &idx.Nodes[ni]
	start = max(start, idx.firstTime(n))
	end = min(end, idx.lastTime(n))

	if n.IsLeaf() {
		samples := idx.Samples[n.FirstSample : n.LastSample+1]
		at := func(t eventset.Timestamp) (int, T, error) {
			i := n.FirstSample + sort.Search(len(samples), func(i int) bool { return samples[i].Time >= t })
			if idx.Samples[i].Time == t {
				return i, m.sample(i), nil
			}
			v, err := m.between(i-1, t)
			return i, v, err
		}

		first, v, err := at(start)
		if err != nil {
			return out, err
		}
		out.add(v)
		last, v, err := at(end)
		if err != nil {
			return out, err
		}
		out.add(v)
		for i := first; i < last; i++ {
			out.add(m.sample(i))
		}
		return out, nil
	}

	children := idx.Nodes[n.FirstChild : n.LastChild+1]
	cs := sort.Search(len(children), func(i int) bool { return idx.lastTime(&children[i]) >= start })

	if start < idx.firstTime(&children[cs]) {
		// Start lies in the gap between two children.
		gap := children[cs-1].LastSample
		v, err := m.between(gap, start)
		if err != nil {
			return out, err
		}
		out.add(v)
		if end < idx.firstTime(&children[cs]) {
			v, err := m.between(gap, end)
			if err != nil {
				return out, err
			}
			out.add(v)
			return out, nil
		}
		start = idx.firstTime(&children[cs])
	}

	ce := cs + sort.Search(len(children)-cs, func(i int) bool { return idx.lastTime(&children[cs+i]) >= end })
	if end < idx.firstTime(&children[ce]) {
		// End lies in the gap between two children.
		v, err := m.between(children[ce-1].LastSample, end)
		if err != nil {
			return out, err
		}
		out.add(v)
		ce--
		end = idx.lastTime(&children[ce])
	}

	if cs == ce {
		r, err := query[T, M](idx, m, n.FirstChild+cs, start, end)
		if err != nil {
			return out, err
		}
		out.merge(r.lo, r.hi)
		return out, nil
	}

	r, err := query[T, M](idx, m, n.FirstChild+cs, start, idx.lastTime(&children[cs]))
	if err != nil {
		return out, err
	}
	out.merge(r.lo, r.hi)
	r, err = query[T, M](idx, m, n.FirstChild+ce, idx.firstTime(&children[ce]), end)
	if err != nil {
		return out, err
	}
	out.merge(r.lo, r.hi)
	for i := cs + 1; i < ce; i++ {
		out.merge(m.node(&children[i]))
	}
	return out, nil
}
