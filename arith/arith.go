// Package arith implements overflow-checked, saturating integer arithmetic.
//
// Every operation computes the mathematically exact result using a 128-bit intermediate and then classifies it
// against the range of the result type. The checked functions (Add, Sub, Mul, MulDiv, ...) return the result
// together with a Status; when the status isn't Exact, the returned value is clamped to the minimum or maximum
// representable value, which is what the Sat* variants return on their own.
package arith

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

type Status uint8

const (
	Exact Status = iota
	Underflow
	Overflow
)

var (
	ErrOverflow  = errors.New("arithmetic overflow")
	ErrUnderflow = errors.New("arithmetic underflow")
)

func (s Status) String() string {
	switch s {
	case Exact:
		return "exact"
	case Underflow:
		return "underflow"
	case Overflow:
		return "overflow"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Err returns nil for Exact and ErrUnderflow or ErrOverflow otherwise.
func (s Status) Err() error {
	switch s {
	case Exact:
		return nil
	case Underflow:
		return ErrUnderflow
	case Overflow:
		return ErrOverflow
	default:
		panic(fmt.Sprintf("unhandled status %d", s))
	}
}

// MinOf returns the smallest value representable by T.
func MinOf[T constraints.Integer]() T { return toInt[T](minWide[T]()) }

// MaxOf returns the largest value representable by T.
func MaxOf[T constraints.Integer]() T { return toInt[T](maxWide[T]()) }

func Add[T constraints.Integer](a, b T) (T, Status) {
	return narrow[T](fromInt(a).add(fromInt(b)))
}

func Sub[T constraints.Integer](a, b T) (T, Status) {
	return narrow[T](fromInt(a).sub(fromInt(b)))
}

func Mul[T constraints.Integer](a, b T) (T, Status) {
	return narrow[T](fromInt(a).mul(fromInt(b)))
}

// MulDiv computes a*b/c without intermediate overflow, truncating towards zero. It panics if c is zero.
func MulDiv[T constraints.Integer](a, b, c T) (T, Status) {
	return narrow[T](fromInt(a).mul(fromInt(b)).div(fromInt(c)))
}

// Negate returns -a.
func Negate[T constraints.Integer](a T) (T, Status) {
	return narrow[T](fromInt(a).negate())
}

func SatAdd[T constraints.Integer](a, b T) T       { r, _ := Add(a, b); return r }
func SatSub[T constraints.Integer](a, b T) T       { r, _ := Sub(a, b); return r }
func SatMul[T constraints.Integer](a, b T) T       { r, _ := Mul(a, b); return r }
func SatMulDiv[T constraints.Integer](a, b, c T) T { r, _ := MulDiv(a, b, c); return r }

// AddMixed adds two integers of possibly different types and signedness and converts the exact sum to R.
func AddMixed[R, A, B constraints.Integer](a A, b B) (R, Status) {
	return narrow[R](fromInt(a).add(fromInt(b)))
}

// SubMixed computes a-b for integers of possibly different types and signedness and converts the exact difference
// to R.
func SubMixed[R, A, B constraints.Integer](a A, b B) (R, Status) {
	return narrow[R](fromInt(a).sub(fromInt(b)))
}

// MulDivMixed computes a*b/c for integers of possibly different types. It panics if c is zero.
func MulDivMixed[R, A, B, C constraints.Integer](a A, b B, c C) (R, Status) {
	return narrow[R](fromInt(a).mul(fromInt(b)).div(fromInt(c)))
}

// AddUint64Int64 shifts the unsigned timestamp a by the signed duration b.
func AddUint64Int64(a uint64, b int64) (uint64, Status) { return AddMixed[uint64](a, b) }

// SubUint64Int64 shifts the unsigned timestamp a by the negated signed duration b.
func SubUint64Int64(a uint64, b int64) (uint64, Status) { return SubMixed[uint64](a, b) }

// AddInt64Uint64 adds the unsigned duration b to the signed value a.
func AddInt64Uint64(a int64, b uint64) (int64, Status) { return AddMixed[int64](a, b) }

// SubInt64Uint64 subtracts the unsigned duration b from the signed value a.
func SubInt64Uint64(a int64, b uint64) (int64, Status) { return SubMixed[int64](a, b) }

// RightOpenSize returns the number of values in [left, right). It returns Underflow if right < left. The size of an
// interval of signed values with left < 0 <= right is computed without overflowing the intermediate.
func RightOpenSize[R, T constraints.Integer](left, right T) (R, Status) {
	if right < left {
		return 0, Underflow
	}
	return narrow[R](fromInt(right).sub(fromInt(left)))
}

// ClosedSize returns the number of values in [left, right]. It returns Underflow if right < left, and Overflow if the
// size isn't representable by R, which is always the case for the full range of a type of the same width.
func ClosedSize[R, T constraints.Integer](left, right T) (R, Status) {
	if right < left {
		return 0, Underflow
	}
	return narrow[R](fromInt(right).sub(fromInt(left)).add(wide{lo: 1}))
}
