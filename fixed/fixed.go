// Package fixed provides the fixed-point numeric types shared by the
// outline, rasterizer, and transform packages.
//
// Two formats are used throughout the core:
//   - Pos26_6: 26.6 signed fixed point, used for sub-pixel outline and
//     raster coordinates.
//   - Fixed16_16: 16.16 signed fixed point, used for matrix coefficients.
package fixed

import "math"

// Pos26_6 is a 26.6 fixed-point coordinate: 6 fractional bits.
type Pos26_6 int32

// FromFloat converts a float64 to 26.6 fixed point, rounding to nearest.
func FromFloat(v float64) Pos26_6 {
	return Pos26_6(math.Round(v * 64))
}

// ToFloat converts a 26.6 fixed-point value to float64.
func (p Pos26_6) ToFloat() float64 {
	return float64(p) / 64
}

// Int returns the integer (truncated) part of the coordinate.
func (p Pos26_6) Int() int32 {
	return int32(p) >> 6
}

// Frac returns the fractional part (0..63) of the coordinate.
func (p Pos26_6) Frac() int32 {
	return int32(p) & 63
}

// Round rounds to the nearest integer pixel, returned in 26.6 units.
func (p Pos26_6) Round() Pos26_6 {
	return (p + 32) &^ 63
}

// MaxCoord is the largest coordinate magnitude the subdivision arithmetic
// supports without overflowing 32-bit intermediates: |x|, |y| < 2^28.
const MaxCoord = 1 << 28

// InRange reports whether a 26.6 coordinate satisfies the engine's
// |x| < 2^28 invariant.
func InRange(v int32) bool {
	return v > -MaxCoord && v < MaxCoord
}

// Fixed16_16 is a 16.16 fixed-point value, used for matrix coefficients
// and quantization steps.
type Fixed16_16 int32

// F16FromFloat converts a float64 into 16.16 fixed point.
func F16FromFloat(v float64) Fixed16_16 {
	return Fixed16_16(math.Round(v * 65536))
}

// ToFloat converts a 16.16 fixed-point value to float64.
func (f Fixed16_16) ToFloat() float64 {
	return float64(f) / 65536
}

// MulDiv computes a*b/c with 64-bit intermediate precision, rounding to
// nearest, for products where a plain int32 multiply would overflow.
// The rasterizer does not use it; it works in float64.
func MulDiv(a, b, c int32) int32 {
	if c == 0 {
		return 0
	}
	num := int64(a) * int64(b)
	den := int64(c)
	if (num < 0) != (den < 0) {
		return int32((num - den/2) / den)
	}
	return int32((num + den/2) / den)
}

// Clamp255 clamps an integer into the 8-bit coverage/alpha range.
func Clamp255(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
