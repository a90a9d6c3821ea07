// Package addrtree maps memory addresses to the frames and NUMA nodes that hold them.
package addrtree

import (
	"errors"
	"fmt"

	"honnef.co/go/tracestore/container"
	"honnef.co/go/tracestore/eventset"
)

var (
	ErrEmptyFrame = errors.New("frame has no size")
	ErrOverlap    = errors.New("frame overlaps existing frame")
)

// Frame is a contiguous range of memory located on a single NUMA node.
type Frame struct {
	Addr     uint64
	Size     uint64
	NUMANode int
}

// Last returns the last address of the frame.
func (f Frame) Last() uint64 { return f.Addr + f.Size - 1 }

func (f Frame) String() string {
	return fmt.Sprintf("[%#x, %#x] on node %d", f.Addr, f.Last(), f.NUMANode)
}

// Tree holds non-overlapping frames.
type Tree struct {
	frames   *container.IntervalTree[uint64, Frame]
	numNodes int
}

func New() *Tree {
	return &Tree{frames: container.NewIntervalTree[uint64, Frame]()}
}

func (t *Tree) Len() int { return t.frames.Len() }

// NumNodes returns one more than the highest NUMA node of any frame.
func (t *Tree) NumNodes() int { return t.numNodes }

func (t *Tree) Insert(f Frame) error {
	if f.Size == 0 {
		return fmt.Errorf("frame at %#x: %w", f.Addr, ErrEmptyFrame)
	}
	if f.Addr+f.Size-1 < f.Addr {
		return fmt.Errorf("frame at %#x with size %d wraps around", f.Addr, f.Size)
	}
	if f.NUMANode < 0 {
		return fmt.Errorf("frame at %#x has negative NUMA node %d", f.Addr, f.NUMANode)
	}
	var other Frame
	t.frames.Find(f.Addr, f.Last(), func(n *container.IntervalNode[uint64, Frame]) bool {
		other = n.Value
		return false
	})
	if other.Size != 0 {
		return fmt.Errorf("%s and %s: %w", f, other, ErrOverlap)
	}
	t.frames.Insert(f.Addr, f.Last(), f)
	t.numNodes = max(t.numNodes, f.NUMANode+1)
	return nil
}

// Lookup returns the frame containing addr.
func (t *Tree) Lookup(addr uint64) container.Option[Frame] {
	res := container.None[Frame]()
	t.frames.Find(addr, addr, func(n *container.IntervalNode[uint64, Frame]) bool {
		res = container.Some(n.Value)
		return false
	})
	return res
}

// NodeOf returns the NUMA node holding addr.
func (t *Tree) NodeOf(addr uint64) (int, bool) {
	return container.MapOption(t.Lookup(addr), func(f Frame) int { return f.NUMANode }).Get()
}

var _ eventset.NodeLookup = (*Tree)(nil).NodeOf

// Walk calls fn for all frames overlapping [min, max] in address order, passing the result of each call to the next
// one. The walk ends early when fn returns false. It returns the final accumulator.
func Walk[A any](t *Tree, min, max uint64, acc A, fn func(acc A, f Frame) (A, bool)) A {
	t.frames.Find(min, max, func(n *container.IntervalNode[uint64, Frame]) bool {
		var cont bool
		acc, cont = fn(acc, n.Value)
		return cont
	})
	return acc
}

// Collect returns all frames overlapping [min, max] in address order.
func (t *Tree) Collect(min, max uint64) []Frame {
	return Walk(t, min, max, []Frame(nil), func(acc []Frame, f Frame) ([]Frame, bool) {
		return append(acc, f), true
	})
}

// Distribute adds the bytes of the memory object [addr, addr+size) that lie in each NUMA node to out, which must have
// room for NumNodes entries. It returns the number of bytes that were found in any frame.
func (t *Tree) Distribute(addr, size uint64, out []uint64) uint64 {
	if size == 0 {
		return 0
	}
	last := addr + size - 1
	if last < addr {
		last = ^uint64(0)
	}
	return Walk(t, addr, last, uint64(0), func(acc uint64, f Frame) (uint64, bool) {
		n := min(last, f.Last()) - max(addr, f.Addr) + 1
		out[f.NUMANode] += n
		return acc + n, true
	})
}
