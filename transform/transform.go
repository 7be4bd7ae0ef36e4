// Package transform implements the quantized transform contract between
// an outline and its rasterized bitmap: per-axis quantization step
// derivation, the integer cache key, the perspective-too-close guard,
// and restore_transform for lazy bitmap cache reconstruction.
package transform

import (
	"errors"
	"math"

	"github.com/vectype/core/outline"
)

// PositionPrecision bounds the worst-case per-pixel position error
// introduced by quantizing a transform, in pixels.
const PositionPrecision = 8.0 / 64

// SubpixelOrder is the number of low bits of the integer position that
// carry sub-pixel offset in the Key.
const SubpixelOrder = 3

// MaxPerspScale bounds how close a glyph may approach the camera plane
// before the transform is rejected as unrenderable.
const MaxPerspScale = 16

// ErrTooClose is returned when the transformed bounding box would dip
// below the perspective guard's minimum z.
var ErrTooClose = errors.New("transform: glyph too close to camera")

// ErrDegenerateBounds is returned when the outline has zero extent
// along an axis, making quantization step derivation meaningless.
var ErrDegenerateBounds = errors.New("transform: degenerate outline bounds")

// Steps holds the per-axis quantization step sizes derived from one
// outline's bounding box and a matrix's perspective range.
type Steps struct {
	Qx, Qy, Qzx, Qzy float64
}

// DeriveSteps computes the quantization steps for an outline with
// half-extents (dx, dy) and minimum projected z over its bounding box
// z0, against a matrix whose bounding-box scale is bounded by w.
func DeriveSteps(dx, dy, z0, w float64) (Steps, error) {
	if dx <= 0 || dy <= 0 {
		return Steps{}, ErrDegenerateBounds
	}
	if w <= 0 {
		w = 1
	}
	qx := PositionPrecision * z0 / dx
	qy := PositionPrecision * z0 / dy
	return Steps{Qx: qx, Qy: qy, Qzx: qx / w, Qzy: qy / w}, nil
}

// Key is the integer bitmap cache key for one (outline, matrix) pair:
// the matrix coefficients divided by their quantization steps and
// rounded, plus a sub-pixel position offset occupying the low
// SubpixelOrder bits of the integer position.
type Key struct {
	Mx, My, Mz   [3]int32
	SubPixelX    int32
	SubPixelY    int32
	OutlineToken uint64
}

// Quantize derives the bitmap cache key for transforming src by m,
// guarding against excessive perspective foreshortening. offsetHint, if
// non-nil, supplies the sub-pixel integer position directly (used when
// the driver already knows the device-space placement); otherwise the
// sub-pixel offset is taken from the matrix's own translation.
func Quantize(src *outline.Store, m outline.Matrix3D, outlineToken uint64, offsetHint *[2]int32) (Key, Steps, error) {
	dx, dy := src.Bounds()
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	// Bounds are 26.6 units; the matrix operates on pixels.
	dxPx, dyPx := float64(dx)/64, float64(dy)/64
	minZ, maxZ, err := boundingZ(m, dxPx, dyPx)
	if err != nil {
		return Key{}, Steps{}, err
	}
	if minZ < m.M[2][2]/MaxPerspScale {
		return Key{}, Steps{}, ErrTooClose
	}
	w := maxZ
	steps, err := DeriveSteps(dxPx, dyPx, minZ, w)
	if err != nil {
		return Key{}, Steps{}, err
	}

	var k Key
	k.OutlineToken = outlineToken
	k.Mx = [3]int32{quant(m.M[0][0], steps.Qx), quant(m.M[0][1], steps.Qx), quant(m.M[0][2], steps.Qzx)}
	k.My = [3]int32{quant(m.M[1][0], steps.Qy), quant(m.M[1][1], steps.Qy), quant(m.M[1][2], steps.Qzy)}
	k.Mz = [3]int32{quant(m.M[2][0], steps.Qzx), quant(m.M[2][1], steps.Qzy), quant(m.M[2][2], 1)}

	if offsetHint != nil {
		k.SubPixelX = offsetHint[0] & (1<<SubpixelOrder - 1)
		k.SubPixelY = offsetHint[1] & (1<<SubpixelOrder - 1)
	} else {
		k.SubPixelX = int32(math.Round(m.M[0][2]*64)) & (1<<SubpixelOrder - 1)
		k.SubPixelY = int32(math.Round(m.M[1][2]*64)) & (1<<SubpixelOrder - 1)
	}
	return k, steps, nil
}

func quant(v, step float64) int32 {
	if step == 0 {
		return 0
	}
	return int32(math.Round(v / step))
}

// boundingZ approximates the min/max homogeneous w over an outline's
// bounding box corners, used by the perspective guard and by the
// quantization step derivation's w bound.
func boundingZ(m outline.Matrix3D, dx, dy float64) (minZ, maxZ float64, err error) {
	corners := [4][2]float64{{-dx, -dy}, {dx, -dy}, {-dx, dy}, {dx, dy}}
	for i, c := range corners {
		_, _, w := m.ApplyHomogeneous(c[0], c[1])
		if i == 0 || w < minZ {
			minZ = w
		}
		if i == 0 || w > maxZ {
			maxZ = w
		}
	}
	return minZ, maxZ, nil
}

// Restore reconstructs an exemplar 3x3 matrix that, fed to the
// rasterizer, reproduces the bitmap associated with key given the
// quantization steps used to build it. Used for lazy bitmap
// construction when a cache lookup misses but the key is already known
// (e.g. a composite key referencing a component that was evicted).
func Restore(k Key, s Steps) outline.Matrix3D {
	var m outline.Matrix3D
	m.M[0][0] = float64(k.Mx[0]) * s.Qx
	m.M[0][1] = float64(k.Mx[1]) * s.Qx
	m.M[0][2] = float64(k.Mx[2]) * s.Qzx
	m.M[1][0] = float64(k.My[0]) * s.Qy
	m.M[1][1] = float64(k.My[1]) * s.Qy
	m.M[1][2] = float64(k.My[2]) * s.Qzy
	m.M[2][0] = float64(k.Mz[0]) * s.Qzx
	m.M[2][1] = float64(k.Mz[1]) * s.Qzy
	m.M[2][2] = float64(k.Mz[2])
	return m
}
