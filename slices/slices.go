// Package slices contains slice helpers missing from the standard library's slices package.
package slices

import "iter"

// Pop removes the last element of s, returning it and the shortened slice.
func Pop[E any, S ~[]E](s S) (E, S, bool) {
	if len(s) == 0 {
		return *new(E), s, false
	}
	e := s[len(s)-1]
	s = s[:len(s)-1]
	return e, s, true
}

// Groups partitions the indices [0, n) into consecutive groups of size elements, the last group holding the
// remainder. It yields the first and last index of every group.
func Groups(n, size int) iter.Seq2[int, int] {
	if size < 1 {
		panic("group size must be positive")
	}
	return func(yield func(int, int) bool) {
		for first := 0; first < n; first += size {
			if !yield(first, min(first+size, n)-1) {
				return
			}
		}
	}
}
