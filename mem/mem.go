// Package mem provides containers with predictable allocation behavior.
package mem

import "iter"

const bucketSize = 64

// BucketSlice is like a slice, but grows one fixed-size bucket at a time. Growing never moves existing elements, so
// pointers to elements stay valid, and there is no exponential overallocation.
type BucketSlice[T any] struct {
	n       int
	buckets [][]T
}

func (l *BucketSlice[T]) index(i int) (int, int) {
	return i / bucketSize, i % bucketSize
}

// Grow grows the slice by one and returns a pointer to the new element, without overwriting it.
func (l *BucketSlice[T]) Grow() *T {
	a, _ := l.index(l.n)
	if a >= len(l.buckets) {
		l.buckets = append(l.buckets, make([]T, 0, bucketSize))
	}
	l.buckets[a] = l.buckets[a][:len(l.buckets[a])+1]
	l.n++
	return &l.buckets[a][len(l.buckets[a])-1]
}

// Append appends v and returns a pointer to the new element.
func (l *BucketSlice[T]) Append(v T) *T {
	ptr := l.Grow()
	*ptr = v
	return ptr
}

func (l *BucketSlice[T]) Ptr(i int) *T {
	a, b := l.index(i)
	return &l.buckets[a][b]
}

func (l *BucketSlice[T]) Get(i int) T    { return *l.Ptr(i) }
func (l *BucketSlice[T]) Set(i int, v T) { *l.Ptr(i) = v }
func (l *BucketSlice[T]) Len() int       { return l.n }

func (l *BucketSlice[T]) Swap(i, j int) {
	pi, pj := l.Ptr(i), l.Ptr(j)
	*pi, *pj = *pj, *pi
}

// Truncate shortens the slice to n elements. Buckets are kept for reuse.
func (l *BucketSlice[T]) Truncate(n int) {
	if n >= l.n {
		return
	}
	a, b := l.index(n)
	l.buckets[a] = l.buckets[a][:b]
	for i := a + 1; i < len(l.buckets); i++ {
		l.buckets[i] = l.buckets[i][:0]
	}
	l.n = n
}

func (l *BucketSlice[T]) Reset() { l.Truncate(0) }

// All yields the index of and a pointer to every element, starting at index from.
func (l *BucketSlice[T]) All(from int) iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := max(from, 0); i < l.n; i++ {
			if !yield(i, l.Ptr(i)) {
				return
			}
		}
	}
}

// GrowLen increases the slice's length by n elements.
func GrowLen[S ~[]E, E any](s S, n int) S {
	return append(s, make([]E, n)...)
}

// EnsureLen grows s to at least n elements.
func EnsureLen[S ~[]E, E any](s S, n int) S {
	if len(s) >= n {
		return s
	}
	return GrowLen(s, n-len(s))
}
