// Package tinylfu implements the W-TinyLFU cache admission policy.
//
// New keys enter a small LRU window. Keys evicted from the window only replace the main cache's eviction candidate if
// a frequency sketch estimates that they are used at least as often. See http://arxiv.org/abs/1512.00727.
package tinylfu

import (
	"hash/maphash"

	"honnef.co/go/tracestore/tinylfu/internal/list"
)

// T is a W-TinyLFU cache. It is not safe for concurrent use.
type T[K comparable, V any] struct {
	c       *cm4
	bouncer *doorkeeper
	w       int
	samples int
	lru     *lruCache[K, V]
	slru    *slruCache[K, V]
	data    map[K]*list.Element[*slruItem[K, V]]
	seed    maphash.Seed
}

// New returns a cache holding up to size items. Frequency estimates are aged after every samples accesses.
func New[K comparable, V any](size int, samples int) *T[K, V] {
	const windowPct = 1

	size = max(size, 2)
	lruSize := max((windowPct*size)/100, 1)
	slruSize := max(size-lruSize, 1)
	probationSize := max(slruSize/5, 1)

	data := make(map[K]*list.Element[*slruItem[K, V]], size)
	return &T[K, V]{
		c:       newCM4(size),
		samples: max(samples, 1),
		bouncer: newDoorkeeper(samples, 0.01),
		data:    data,
		lru:     newLRU(lruSize, data),
		slru:    newSLRU(probationSize, slruSize-probationSize, data),
		seed:    maphash.MakeSeed(),
	}
}

func (t *T[K, V]) hash(key K) uint64 {
	return maphash.Comparable(t.seed, key)
}

// touch counts an access and ages the frequency estimates once enough accesses have been counted.
func (t *T[K, V]) touch(keyh uint64) {
	t.w++
	if t.w == t.samples {
		t.c.reset()
		t.bouncer.reset()
		t.w = 0
	}
	t.c.add(keyh)
}

func (t *T[K, V]) promote(e *list.Element[*slruItem[K, V]]) {
	if e.Value.listid == listWindow {
		t.lru.get(e)
	} else {
		t.slru.get(e)
	}
}

func (t *T[K, V]) Get(key K) (V, bool) {
	e, ok := t.data[key]
	if !ok {
		t.touch(t.hash(key))
		return *new(V), false
	}
	item := e.Value
	t.touch(item.keyh)
	v := item.value
	t.promote(e)
	return v, true
}

func (t *T[K, V]) Add(key K, val V) {
	if e, ok := t.data[key]; ok {
		// Updating a key counts as an access.
		item := e.Value
		item.value = val
		t.c.add(item.keyh)
		t.promote(e)
		return
	}

	oitem, evicted := t.lru.add(slruItem[K, V]{listWindow, key, val, t.hash(key)})
	if !evicted {
		return
	}

	victim := t.slru.victim()
	if victim == nil {
		t.slru.add(oitem)
		return
	}
	if !t.bouncer.allow(oitem.keyh) {
		return
	}
	if t.c.estimate(oitem.keyh) < t.c.estimate(victim.keyh) {
		return
	}
	t.slru.add(oitem)
}

// Remove removes key from the cache and reports whether it was present.
func (t *T[K, V]) Remove(key K) bool {
	e, ok := t.data[key]
	if !ok {
		return false
	}
	if e.Value.listid == listWindow {
		t.lru.remove(e)
	} else {
		t.slru.remove(e)
	}
	return true
}

// Purge removes all items. Frequency estimates are kept.
func (t *T[K, V]) Purge() {
	clear(t.data)
	t.lru.purge()
	t.slru.purge()
}

func (t *T[K, V]) Len() int { return len(t.data) }
