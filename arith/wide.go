package arith

import (
	"math/bits"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// wide is a sign-magnitude integer with a 128-bit magnitude. It is wide enough to hold the exact result of adding,
// subtracting or multiplying any two 64-bit integers, signed or not.
//
// Zero is never negative.
type wide struct {
	neg    bool
	hi, lo uint64
}

func isSigned[T constraints.Integer]() bool {
	var zero T
	return ^zero < 0
}

func bitSize[T constraints.Integer]() uint {
	var zero T
	return uint(unsafe.Sizeof(zero)) * 8
}

func fromInt[T constraints.Integer](v T) wide {
	if isSigned[T]() {
		x := int64(v)
		if x < 0 {
			// For math.MinInt64, -x wraps to itself and converts to 1<<63, which is the correct magnitude.
			return wide{neg: true, lo: uint64(-x)}
		}
		return wide{lo: uint64(x)}
	}
	return wide{lo: uint64(v)}
}

func maxWide[T constraints.Integer]() wide {
	n := bitSize[T]()
	if isSigned[T]() {
		return wide{lo: ^uint64(0) >> (65 - n)}
	}
	return wide{lo: ^uint64(0) >> (64 - n)}
}

func minWide[T constraints.Integer]() wide {
	if isSigned[T]() {
		return wide{neg: true, lo: 1 << (bitSize[T]() - 1)}
	}
	return wide{}
}

// toInt converts w to T. w must be within T's range.
func toInt[T constraints.Integer](w wide) T {
	if w.neg {
		return T(-int64(w.lo))
	}
	return T(w.lo)
}

func (w wide) isZero() bool { return w.hi == 0 && w.lo == 0 }

func (w wide) normalize() wide {
	if w.isZero() {
		w.neg = false
	}
	return w
}

func cmpMag(a, b wide) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	default:
		return 0
	}
}

func (w wide) cmp(o wide) int {
	switch {
	case w.neg && !o.neg:
		return -1
	case !w.neg && o.neg:
		return 1
	case w.neg:
		return -cmpMag(w, o)
	default:
		return cmpMag(w, o)
	}
}

func (w wide) negate() wide {
	w.neg = !w.neg
	return w.normalize()
}

func (w wide) add(o wide) wide {
	if w.neg == o.neg {
		lo, carry := bits.Add64(w.lo, o.lo, 0)
		hi, _ := bits.Add64(w.hi, o.hi, carry)
		return wide{neg: w.neg, hi: hi, lo: lo}
	}

	// Signs differ: subtract the smaller magnitude from the larger one.
	big, small := w, o
	if cmpMag(w, o) < 0 {
		big, small = o, w
	}
	lo, borrow := bits.Sub64(big.lo, small.lo, 0)
	hi, _ := bits.Sub64(big.hi, small.hi, borrow)
	return wide{neg: big.neg, hi: hi, lo: lo}.normalize()
}

func (w wide) sub(o wide) wide {
	return w.add(o.negate())
}

// mul multiplies two values whose magnitudes fit in 64 bits.
func (w wide) mul(o wide) wide {
	if w.hi != 0 || o.hi != 0 {
		panic("arith: multiplication operand wider than 64 bits")
	}
	hi, lo := bits.Mul64(w.lo, o.lo)
	return wide{neg: w.neg != o.neg, hi: hi, lo: lo}.normalize()
}

// div divides w by a non-zero divisor whose magnitude fits in 64 bits, truncating towards zero.
func (w wide) div(o wide) wide {
	if o.hi != 0 {
		panic("arith: divisor wider than 64 bits")
	}
	if o.lo == 0 {
		panic("arith: division by zero")
	}
	qhi := w.hi / o.lo
	r := w.hi % o.lo
	qlo, _ := bits.Div64(r, w.lo, o.lo)
	return wide{neg: w.neg != o.neg, hi: qhi, lo: qlo}.normalize()
}

// narrow converts w to T, clamping to T's range.
func narrow[T constraints.Integer](w wide) (T, Status) {
	if min := minWide[T](); w.cmp(min) < 0 {
		return toInt[T](min), Underflow
	}
	if max := maxWide[T](); w.cmp(max) > 0 {
		return toInt[T](max), Overflow
	}
	return toInt[T](w), Exact
}
