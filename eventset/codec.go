package eventset

import (
	"encoding/binary"
	"errors"
	"fmt"
)

func zigzag(v uint64) uint64 {
	d := int64(v)
	return uint64(d>>63 ^ d<<1)
}

func unzigzag(v uint64) uint64 {
	return v>>1 ^ -(v & 1)
}

// deltaZigZagEncode replaces every value but the first with the zigzag encoded difference to its predecessor.
// Sorted timestamps turn into small numbers that varint-encode compactly.
func deltaZigZagEncode(vs []uint64) {
	if len(vs) == 0 {
		return
	}
	for i := len(vs) - 1; i > 0; i-- {
		d := int64(vs[i] - vs[i-1])
		vs[i] = zigzag(uint64(d))
	}
	vs[0] = zigzag(vs[0])
}

func deltaZigZagDecode(vs []uint64) {
	var n uint64
	for i, v := range vs {
		sv := int64(unzigzag(v))
		n = uint64(int64(n) + sv)
		vs[i] = n
	}
}

type encoder struct {
	buf     []byte
	scratch []uint64
}

func (e *encoder) uvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }
func (e *encoder) varint(v int64)   { e.uvarint(zigzag(uint64(v))) }

func (e *encoder) string(s string) {
	e.uvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// column writes n values produced by at, delta encoded.
func (e *encoder) column(n int, at func(i int) uint64) {
	e.scratch = e.scratch[:0]
	for i := range n {
		e.scratch = append(e.scratch, at(i))
	}
	deltaZigZagEncode(e.scratch)
	for _, v := range e.scratch {
		e.uvarint(v)
	}
}

// plain writes n values produced by at as they are.
func (e *encoder) plain(n int, at func(i int) uint64) {
	for i := range n {
		e.uvarint(at(i))
	}
}

var errShortBuffer = errors.New("unexpected end of data")

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.err = fmt.Errorf("offset %d: %w", d.off, errShortBuffer)
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) varint() int64 { return int64(unzigzag(d.uvarint())) }

// count reads a length prefix and makes sure it can't exceed the remaining input, assuming at least one byte per
// element.
func (d *decoder) count() int {
	n := d.uvarint()
	if d.err == nil && n > uint64(len(d.buf)-d.off) {
		d.err = fmt.Errorf("offset %d: count %d exceeds remaining data: %w", d.off, n, errShortBuffer)
		return 0
	}
	return int(n)
}

func (d *decoder) string() string {
	n := d.count()
	if d.err != nil {
		return ""
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += n
	return s
}

func (d *decoder) column(n int) []uint64 {
	vs := d.plain(n)
	deltaZigZagDecode(vs)
	return vs
}

func (d *decoder) plain(n int) []uint64 {
	vs := make([]uint64, n)
	for i := range vs {
		vs[i] = d.uvarint()
	}
	return vs
}
