package transform

import (
	"math"

	"github.com/vectype/core/outline"
)

// Compose builds the 3x3 matrix for one glyph transform from its style
// parameters: an in-plane scale+shear (\fscx/\fscy, \fax/\fay), a 3D
// rotation (\frx, \fry, \frz, applied Z then Y then X) of the glyph's
// z=0 plane, and a fixed-distance perspective projection. Angles are
// radians; tx, ty is the in-plane translation (device position), added
// after the rotation and kept out of the perspective row, matching the
// glyph's own outline coordinates already being centered on its
// rotation origin.
//
// Because every source point starts on the z=0 plane, a full 3D
// rotation reduces to a linear map of (x, y) alone: the rotation
// matrix's third row only ever multiplies the (always zero) input z,
// so it contributes nothing to the point's own depth before rotation,
// and after rotation that row becomes the z the perspective divide
// uses. This lets the whole stack collapse into one 3x3 matrix over
// homogeneous (x, y, 1), exactly the shape Quantize/Restore operate on.
func Compose(scaleX, scaleY, shearX, shearY, tx, ty, rotX, rotY, rotZ, perspectiveDistance float64) outline.Matrix3D {
	a00, a01 := scaleX, shearX*scaleY
	a10, a11 := shearY*scaleX, scaleY

	r := rotateX(rotX).mul(rotateY(rotY)).mul(rotateZ(rotZ))

	// Rxy is R's first two columns: the image of the in-plane basis
	// vectors under the 3D rotation.
	m00 := r[0][0]*a00 + r[0][1]*a10
	m01 := r[0][0]*a01 + r[0][1]*a11
	m10 := r[1][0]*a00 + r[1][1]*a10
	m11 := r[1][0]*a01 + r[1][1]*a11
	m20 := r[2][0]*a00 + r[2][1]*a10
	m21 := r[2][0]*a01 + r[2][1]*a11

	var out outline.Matrix3D
	out.M[0][0], out.M[0][1], out.M[0][2] = m00, m01, tx
	out.M[1][0], out.M[1][1], out.M[1][2] = m10, m11, ty
	if perspectiveDistance == 0 {
		out.M[2][0], out.M[2][1], out.M[2][2] = 0, 0, 1
		return out
	}
	out.M[2][0] = -m20 / perspectiveDistance
	out.M[2][1] = -m21 / perspectiveDistance
	out.M[2][2] = 1
	return out
}

type mat3x3 [3][3]float64

func (m mat3x3) mul(other mat3x3) mat3x3 {
	var out mat3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += m[i][k] * other[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

func rotateX(theta float64) mat3x3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat3x3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func rotateY(theta float64) mat3x3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat3x3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

func rotateZ(theta float64) mat3x3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat3x3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}
