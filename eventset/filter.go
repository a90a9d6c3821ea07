package eventset

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"
)

// Filter decides which events take part in queries and index construction. A nil Filter admits everything.
type Filter interface {
	HasState(s *State) bool
	HasComm(c *Comm) bool
	HasTask(task uint64) bool
	HasCounter(id int) bool
}

func filterHasState(f Filter, s *State) bool { return f == nil || f.HasState(s) }
func filterHasComm(f Filter, c *Comm) bool   { return f == nil || f.HasComm(c) }
func filterHasTask(f Filter, task uint64) bool {
	return f == nil || f.HasTask(task)
}

// SetFilter is a Filter backed by sets of admitted values. A nil set admits every value.
type SetFilter struct {
	States    *roaring.Bitmap
	CommKinds *roaring.Bitmap
	Counters  *roaring.Bitmap
	Tasks     *roaring64.Bitmap

	// Comm events with a size outside of [MinSize, MaxSize] are rejected. MaxSize == 0 means no upper bound.
	MinSize, MaxSize uint64
}

var _ Filter = (*SetFilter)(nil)

func containsInt(b *roaring.Bitmap, v int) bool {
	if b == nil {
		return true
	}
	if v < 0 || v > int(^uint32(0)) {
		return false
	}
	return b.Contains(uint32(v))
}

func (f *SetFilter) HasTask(task uint64) bool {
	return f.Tasks == nil || f.Tasks.Contains(task)
}

func (f *SetFilter) HasState(s *State) bool {
	return containsInt(f.States, s.ID) && f.HasTask(s.Task)
}

func (f *SetFilter) HasComm(c *Comm) bool {
	if !containsInt(f.CommKinds, int(c.Kind)) {
		return false
	}
	if c.Size < f.MinSize || (f.MaxSize != 0 && c.Size > f.MaxSize) {
		return false
	}
	return f.HasTask(c.Task)
}

func (f *SetFilter) HasCounter(id int) bool {
	return containsInt(f.Counters, id)
}

// StateFilter returns a filter that only admits states with the given IDs.
func StateFilter(ids ...int) *SetFilter {
	b := roaring.New()
	for _, id := range ids {
		b.Add(uint32(id))
	}
	return &SetFilter{States: b}
}

// TaskFilter returns a filter that only admits events of the given tasks.
func TaskFilter(tasks ...uint64) *SetFilter {
	return &SetFilter{Tasks: roaring64.BitmapOf(tasks...)}
}
