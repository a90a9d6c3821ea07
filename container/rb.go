package container

import (
	"honnef.co/go/tracestore/slices"

	"golang.org/x/exp/constraints"
)

type Direction uint8

const (
	Left  Direction = 0
	Right Direction = 1
)

// Interval is a closed interval.
type Interval[T constraints.Ordered] struct {
	Min, Max T
}

func (ival Interval[T]) Compare(oval Interval[T]) int {
	switch {
	case ival.Min < oval.Min:
		return -1
	case ival.Min > oval.Min:
		return 1
	case ival.Max < oval.Max:
		return -1
	case ival.Max > oval.Max:
		return 1
	default:
		return 0
	}
}

func (ival Interval[T]) Overlaps(oval Interval[T]) bool {
	return ival.Min <= oval.Max && ival.Max >= oval.Min
}

func (ival Interval[T]) Contains(v T) bool {
	return ival.Min <= v && v <= ival.Max
}

// IntervalTree is a red-black tree of intervals, ordered by their lower and then upper bounds. Every node knows the
// largest upper bound in its subtree, which lets queries skip subtrees that can't overlap the query.
type IntervalTree[T constraints.Ordered, V any] struct {
	root *IntervalNode[T, V]
	n    int
}

type IntervalNode[T constraints.Ordered, V any] struct {
	Interval Interval[T]
	Value    V

	parent     *IntervalNode[T, V]
	children   [2]*IntervalNode[T, V]
	red        bool
	maxSubtree T
}

func NewIntervalTree[T constraints.Ordered, V any]() *IntervalTree[T, V] {
	return &IntervalTree[T, V]{}
}

func (t *IntervalTree[T, V]) Len() int { return t.n }

func (n *IntervalNode[T, V]) childDir() Direction {
	if n.parent.children[Right] == n {
		return Right
	}
	return Left
}

func (n *IntervalNode[T, V]) updateMax() {
	m := n.Interval.Max
	for _, c := range n.children {
		if c != nil && c.maxSubtree > m {
			m = c.maxSubtree
		}
	}
	n.maxSubtree = m
}

// rotate moves p down in direction dir, replacing it with its child on the opposite side.
func (t *IntervalTree[T, V]) rotate(p *IntervalNode[T, V], dir Direction) *IntervalNode[T, V] {
	g := p.parent
	s := p.children[1-dir]
	c := s.children[dir]
	p.children[1-dir] = c
	if c != nil {
		c.parent = p
	}
	s.children[dir] = p
	p.parent = s
	s.parent = g
	if g != nil {
		if p == g.children[Right] {
			g.children[Right] = s
		} else {
			g.children[Left] = s
		}
	} else {
		t.root = s
	}

	// The set of intervals below g didn't change, only p and s need updating.
	p.updateMax()
	s.updateMax()
	return s
}

// Insert adds the interval [min, max] with the given value. If the interval is already present, its value is
// replaced.
func (t *IntervalTree[T, V]) Insert(min, max T, value V) *IntervalNode[T, V] {
	key := Interval[T]{min, max}
	var p *IntervalNode[T, V]
	var dir Direction
	for x := t.root; x != nil; x = x.children[dir] {
		c := key.Compare(x.Interval)
		if c == 0 {
			x.Value = value
			return x
		}
		p = x
		if c < 0 {
			dir = Left
		} else {
			dir = Right
		}
	}

	n := &IntervalNode[T, V]{
		Interval:   key,
		Value:      value,
		parent:     p,
		red:        true,
		maxSubtree: max,
	}
	t.n++
	if p == nil {
		t.root = n
		n.red = false
		return n
	}
	p.children[dir] = n
	for a := p; a != nil && a.maxSubtree < max; a = a.parent {
		a.maxSubtree = max
	}
	t.rebalance(n)
	return n
}

func (t *IntervalTree[T, V]) rebalance(n *IntervalNode[T, V]) {
	for {
		p := n.parent
		if p == nil {
			n.red = false
			return
		}
		if !p.red {
			return
		}
		g := p.parent
		if g == nil {
			p.red = false
			return
		}

		dir := p.childDir()
		u := g.children[1-dir]
		if u == nil || !u.red {
			if n == p.children[1-dir] {
				t.rotate(p, dir)
				p = g.children[dir]
			}
			t.rotate(g, 1-dir)
			p.red = false
			g.red = true
			return
		}

		p.red = false
		u.red = false
		g.red = true
		n = g
	}
}

// Find calls fn, in order, for every interval that overlaps [min, max], until fn returns false.
func (t *IntervalTree[T, V]) Find(min, max T, fn func(n *IntervalNode[T, V]) bool) {
	query := Interval[T]{min, max}
	var stack []*IntervalNode[T, V]
	n := t.root
	for {
		// Subtrees whose largest upper bound lies before min can't contain overlapping intervals.
		for n != nil && n.maxSubtree >= min {
			stack = append(stack, n)
			n = n.children[Left]
		}
		var ok bool
		n, stack, ok = slices.Pop(stack)
		if !ok {
			return
		}
		if n.Interval.Min > max {
			// All remaining intervals start even later.
			return
		}
		if n.Interval.Overlaps(query) && !fn(n) {
			return
		}
		n = n.children[Right]
	}
}

// Collect appends all intervals overlapping [min, max] to out, in order.
func (t *IntervalTree[T, V]) Collect(min, max T, out []*IntervalNode[T, V]) []*IntervalNode[T, V] {
	t.Find(min, max, func(n *IntervalNode[T, V]) bool {
		out = append(out, n)
		return true
	})
	return out
}

// blackHeight verifies the red-black properties and returns the number of black nodes on every path from n to a
// leaf, or -1 if the properties are violated.
func (n *IntervalNode[T, V]) blackHeight() int {
	if n == nil {
		return 1
	}
	for _, c := range n.children {
		if c == nil {
			continue
		}
		if c.parent != n || (n.red && c.red) {
			return -1
		}
	}
	l, r := n.children[Left].blackHeight(), n.children[Right].blackHeight()
	if l == -1 || l != r {
		return -1
	}
	if n.red {
		return l
	}
	return l + 1
}
