package tinylfu

import "honnef.co/go/tracestore/tinylfu/internal/list"

// Which list an item lives on.
const (
	listWindow = iota
	listProbation
	listProtected
)

type slruItem[K comparable, V any] struct {
	listid int
	key    K
	value  V
	keyh   uint64
}

// slruCache is a segmented LRU: items enter on probation and get promoted to the protected segment when they're hit
// again.
type slruCache[K comparable, V any] struct {
	data                  map[K]*list.Element[*slruItem[K, V]]
	probationCap, protCap int
	probation, protected  *list.List[*slruItem[K, V]]
}

func newSLRU[K comparable, V any](probationCap, protCap int, data map[K]*list.Element[*slruItem[K, V]]) *slruCache[K, V] {
	return &slruCache[K, V]{
		data:         data,
		probationCap: probationCap,
		protCap:      protCap,
		probation:    list.New[*slruItem[K, V]](),
		protected:    list.New[*slruItem[K, V]](),
	}
}

func (slru *slruCache[K, V]) get(v *list.Element[*slruItem[K, V]]) {
	item := v.Value
	if item.listid == listProtected {
		slru.protected.MoveToFront(v)
		return
	}

	if slru.protected.Len() < slru.protCap {
		slru.probation.Remove(v)
		item.listid = listProtected
		slru.data[item.key] = slru.protected.PushFront(item)
		return
	}

	// The protected segment is full; swap the item with the protected segment's least recently used one.
	back := slru.protected.Back()
	bitem := back.Value
	*bitem, *item = *item, *bitem
	bitem.listid = listProtected
	item.listid = listProbation
	slru.data[item.key] = v
	slru.data[bitem.key] = back
	slru.probation.MoveToFront(v)
	slru.protected.MoveToFront(back)
}

func (slru *slruCache[K, V]) add(newitem slruItem[K, V]) {
	newitem.listid = listProbation
	if slru.probation.Len() < slru.probationCap || slru.Len() < slru.probationCap+slru.protCap {
		slru.data[newitem.key] = slru.probation.PushFront(&newitem)
		return
	}

	// Reuse the tail element.
	e := slru.probation.Back()
	item := e.Value
	delete(slru.data, item.key)
	*item = newitem
	slru.data[item.key] = e
	slru.probation.MoveToFront(e)
}

// victim returns the item that would be evicted by the next add, or nil if the cache isn't full.
func (slru *slruCache[K, V]) victim() *slruItem[K, V] {
	if slru.Len() < slru.probationCap+slru.protCap {
		return nil
	}
	return slru.probation.Back().Value
}

func (slru *slruCache[K, V]) Len() int { return slru.probation.Len() + slru.protected.Len() }

func (slru *slruCache[K, V]) remove(e *list.Element[*slruItem[K, V]]) {
	if e.Value.listid == listProtected {
		slru.protected.Remove(e)
	} else {
		slru.probation.Remove(e)
	}
	delete(slru.data, e.Value.key)
}

func (slru *slruCache[K, V]) purge() {
	slru.probation.Init()
	slru.protected.Init()
}
