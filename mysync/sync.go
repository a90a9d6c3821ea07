// Package mysync provides a mutex that owns the value it protects.
package mysync

import "sync"

// Mutex guards a value of type T. The value is only reachable while the lock is held.
type Mutex[T any] struct {
	mu sync.Mutex
	v  T
}

func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{v: v}
}

// Lock acquires the lock and returns the value together with the function that releases it.
func (mu *Mutex[T]) Lock() (T, func()) {
	mu.mu.Lock()
	return mu.v, mu.mu.Unlock
}

// With calls fn with the value while holding the lock.
func (mu *Mutex[T]) With(fn func(v T)) {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	fn(mu.v)
}

// Locked is like Mutex.With, but returns fn's result.
func Locked[T, R any](mu *Mutex[T], fn func(v T) R) R {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	return fn(mu.v)
}
