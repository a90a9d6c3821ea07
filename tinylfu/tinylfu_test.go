package tinylfu

import (
	"fmt"
	"testing"
)

func TestAddAlreadyInCache(t *testing.T) {
	c := New[string, string](100, 10000)

	c.Add("foo", "bar")

	val, _ := c.Get("foo")
	if val != "bar" {
		t.Errorf("c.Get(foo)=%q, want %q", val, "bar")
	}

	c.Add("foo", "baz")

	val, _ = c.Get("foo")
	if val != "baz" {
		t.Errorf("c.Get(foo)=%q, want %q", val, "baz")
	}
	if c.Len() != 1 {
		t.Errorf("c.Len()=%d, want 1", c.Len())
	}
}

type key struct {
	lane       int
	start, end uint64
}

func TestStructKeys(t *testing.T) {
	c := New[key, int](100, 10000)
	for i := range 50 {
		c.Add(key{i % 5, uint64(i), uint64(i + 1)}, i)
	}
	for i := range 50 {
		v, ok := c.Get(key{i % 5, uint64(i), uint64(i + 1)})
		if !ok || v != i {
			t.Errorf("key %d: got (%d, %t), want (%d, true)", i, v, ok, i)
		}
	}
	if _, ok := c.Get(key{0, 1, 2}); ok {
		t.Error("found key that was never added")
	}
}

func TestBounded(t *testing.T) {
	c := New[int, int](100, 1000)
	for i := range 10000 {
		c.Add(i, i)
	}
	if c.Len() > 100 {
		t.Errorf("cache holds %d items, want at most 100", c.Len())
	}
}

func TestFrequentSurvives(t *testing.T) {
	c := New[string, int](100, 100000)
	for i := range 100 {
		c.Add(fmt.Sprint("hot", i), i)
	}
	for range 5 {
		for i := range 100 {
			c.Get(fmt.Sprint("hot", i))
		}
	}
	// A scan of keys seen only once mustn't flush the frequently used ones.
	for i := range 1000 {
		c.Add(fmt.Sprint("cold", i), i)
	}
	hits := 0
	for i := range 100 {
		if _, ok := c.Get(fmt.Sprint("hot", i)); ok {
			hits++
		}
	}
	if hits < 90 {
		t.Errorf("only %d of 100 frequent keys survived a scan", hits)
	}
}

func TestRemovePurge(t *testing.T) {
	c := New[int, int](10, 1000)
	for i := range 10 {
		c.Add(i, i)
	}
	n := c.Len()
	if !c.Remove(9) {
		t.Fatal("most recently added key wasn't found")
	}
	if c.Remove(9) {
		t.Fatal("removed key was removed again")
	}
	if c.Len() != n-1 {
		t.Fatalf("c.Len()=%d, want %d", c.Len(), n-1)
	}
	if _, ok := c.Get(9); ok {
		t.Fatal("removed key is still present")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("c.Len()=%d after purge, want 0", c.Len())
	}
	c.Add(1, 1)
	if v, ok := c.Get(1); !ok || v != 1 {
		t.Fatal("cache unusable after purge")
	}
}

func TestDoorkeeper(t *testing.T) {
	d := newDoorkeeper(1000, 0.01)
	if d.allow(42) {
		t.Fatal("unseen key allowed")
	}
	if !d.allow(42) {
		t.Fatal("seen key not allowed")
	}
	d.reset()
	if d.allow(42) {
		t.Fatal("key allowed after reset")
	}
}

var SinkInt int
var SinkBool bool

func BenchmarkGet(b *testing.B) {
	t := New[key, int](64, 640)
	k := key{1, 2, 3}
	t.Add(k, 42)
	for i := 0; i < b.N; i++ {
		SinkInt, SinkBool = t.Get(k)
	}
}
