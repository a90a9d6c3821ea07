package tinylfu

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// doorkeeper is a bloom filter that keeps keys seen only once out of the main cache.
type doorkeeper struct {
	bits *bitset.BitSet
	m    uint32
	k    uint32
}

func newDoorkeeper(capacity int, falsePositiveRate float64) *doorkeeper {
	n := float64(max(capacity, 1))
	m := nextPowerOfTwo(uint32(math.Ceil(-n * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2))))
	k := uint32(math.Ceil(math.Ln2 * float64(m) / n))
	return &doorkeeper{
		bits: bitset.New(uint(m)),
		m:    m,
		k:    k,
	}
}

// allow reports whether keyh has been seen before, recording it if it hasn't.
func (d *doorkeeper) allow(keyh uint64) bool {
	h1, h2 := uint32(keyh), uint32(keyh>>32)
	seen := true
	for i := range d.k {
		bit := uint((h1 + i*h2) & (d.m - 1))
		if !d.bits.Test(bit) {
			seen = false
			d.bits.Set(bit)
		}
	}
	return seen
}

func (d *doorkeeper) reset() {
	d.bits.ClearAll()
}

func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
