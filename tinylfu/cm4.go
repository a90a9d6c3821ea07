package tinylfu

const depth = 4

// cm4 is a count-min sketch with 4-bit saturating counters, estimating how often a key hash has been seen since the
// last reset.
type cm4 struct {
	rows [depth]nvec
	mask uint32
}

func newCM4(w int) *cm4 {
	if w < 1 {
		panic("cm4: bad width")
	}

	// Four counters per key and row, 8 bytes per key in total.
	w32 := nextPowerOfTwo(uint32(w) * 4)
	c := &cm4{mask: w32 - 1}
	for i := range c.rows {
		c.rows[i] = newNvec(int(w32))
	}
	return c
}

func (c *cm4) offset(keyh uint64, row uint32) uint32 {
	h1, h2 := uint32(keyh), uint32(keyh>>32)
	return (h1 + row*h2) & c.mask
}

func (c *cm4) add(keyh uint64) {
	for i := range c.rows {
		c.rows[i].inc(c.offset(keyh, uint32(i)))
	}
}

func (c *cm4) estimate(keyh uint64) byte {
	est := byte(15)
	for i := range c.rows {
		est = min(est, c.rows[i].get(c.offset(keyh, uint32(i))))
	}
	return est
}

// reset halves all counters.
func (c *cm4) reset() {
	for _, n := range c.rows {
		n.reset()
	}
}

// nvec is a vector of nybbles.
type nvec []byte

func newNvec(w int) nvec {
	return make(nvec, w/2)
}

func (n nvec) get(i uint32) byte {
	return (n[i/2] >> ((i & 1) * 4)) & 0x0f
}

func (n nvec) inc(i uint32) {
	idx := i / 2
	shift := (i & 1) * 4
	if (n[idx]>>shift)&0x0f < 15 {
		n[idx] += 1 << shift
	}
}

func (n nvec) reset() {
	for i := range n {
		n[i] = (n[i] >> 1) & 0x77
	}
}
