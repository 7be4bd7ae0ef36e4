package outline

import (
	"errors"

	"github.com/vectype/core/fixed"
)

// ErrScaleOverflow is returned by ScalePow2 when a resulting coordinate
// would exceed the engine's maximum outline coordinate.
var ErrScaleOverflow = errors.New("outline: scale_pow2 overflow")

// ScalePow2 produces a new outline with every coordinate shifted by
// ordX/ordY bits (positive grows, negative shrinks). Fails if any
// resulting coordinate would exceed fixed.MaxCoord.
func ScalePow2(src *Store, ordX, ordY int) (*Store, error) {
	out := src.Clone()
	for i, p := range out.Points {
		x := shiftPow2(int32(p.X), ordX)
		y := shiftPow2(int32(p.Y), ordY)
		if x <= -fixed.MaxCoord || x >= fixed.MaxCoord || y <= -fixed.MaxCoord || y >= fixed.MaxCoord {
			return nil, ErrScaleOverflow
		}
		out.Points[i] = Point{X: fixed.Pos26_6(x), Y: fixed.Pos26_6(y)}
	}
	return out, nil
}

// shiftPow2 shifts in 64 bits so a left shift past MaxCoord is seen by
// the range check instead of wrapping around in int32.
func shiftPow2(v int32, ord int) int64 {
	if ord >= 0 {
		return int64(v) << uint(ord)
	}
	return int64(v) >> uint(-ord)
}

// Matrix2D is a 2x3 affine matrix:
//
//	x' = A*x + B*y + Tx
//	y' = C*x + D*y + Ty
type Matrix2D struct {
	A, B, C, D float64
	Tx, Ty     float64
}

// Identity2D returns the 2x3 identity matrix.
func Identity2D() Matrix2D {
	return Matrix2D{A: 1, D: 1}
}

// Apply applies the matrix to a floating-point point.
func (m Matrix2D) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.Tx, m.C*x + m.D*y + m.Ty
}

// Transform2D produces a new outline with every point passed through the
// 2x3 matrix. Unlike the 3D variant, this never needs to subdivide
// segments: affine maps preserve Bézier order exactly.
func Transform2D(src *Store, m Matrix2D) *Store {
	out := src.Clone()
	for i, p := range out.Points {
		x, y := m.Apply(p.X.ToFloat(), p.Y.ToFloat())
		out.Points[i] = Point{X: fixed.FromFloat(x), Y: fixed.FromFloat(y)}
	}
	return out
}

// Matrix3D is a 3x3 matrix encoding scale, shear, rotation, and
// perspective. It maps (x, y, 1) to homogeneous (x', y', w'); the
// projected point is (x'/w', y'/w').
type Matrix3D struct {
	M [3][3]float64
}

// Identity3D returns the 3x3 identity matrix.
func Identity3D() Matrix3D {
	return Matrix3D{M: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// Multiply returns m composed with other, applied as m * other (other
// first).
func (m Matrix3D) Multiply(other Matrix3D) Matrix3D {
	var out Matrix3D
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += m.M[i][k] * other.M[k][j]
			}
			out.M[i][j] = s
		}
	}
	return out
}

// ApplyHomogeneous maps (x, y) through the matrix, returning homogeneous
// (x', y', w').
func (m Matrix3D) ApplyHomogeneous(x, y float64) (xp, yp, w float64) {
	xp = m.M[0][0]*x + m.M[0][1]*y + m.M[0][2]
	yp = m.M[1][0]*x + m.M[1][1]*y + m.M[1][2]
	w = m.M[2][0]*x + m.M[2][1]*y + m.M[2][2]
	return
}

// Project maps (x, y) through the matrix and performs the perspective
// divide. ok is false if w is non-positive (point behind the camera).
func (m Matrix3D) Project(x, y float64) (px, py float64, ok bool) {
	xp, yp, w := m.ApplyHomogeneous(x, y)
	if w <= 0 {
		return 0, 0, false
	}
	return xp / w, yp / w, true
}

// DepthHorizon is the configurable z-plane, in the matrix's own units,
// used to decide whether a segment's bounding box crosses into
// near-camera territory and needs subdivision before projection.
const DepthHorizon = 1.0 / 256

// Transform3D produces a new outline with every segment passed through
// the 3x3 matrix and perspective-projected. Bézier order is preserved by
// subdividing (via de Casteljau, at the parametric midpoint) any segment
// whose control-point bounding box straddles DepthHorizon near w=0 — the
// naive projection of such a segment would distort badly or divide by a
// near-zero w.
func Transform3D(src *Store, m Matrix3D) (*Store, bool) {
	out := New(0, 0)
	anyValid := false
	src.Contours(func(pStart, pEnd, segStart, segEnd int) bool {
		pIdx := pStart + 1
		first := true
		for _, seg := range src.Segments[segStart:segEnd] {
			n := seg.Tag.PointCount()
			pts := src.Points[pIdx : pIdx+n]
			pIdx += n
			if first {
				// Emit the contour's implicit start point: the point
				// before the first segment's own points, which is the
				// last point of the previous segment (pStart itself on
				// first iteration).
				startPt := src.Points[pStart]
				if !emitProjected(out, m, startPt, true) {
					// Whole contour unprojectable; skip it.
					return true
				}
				first = false
			}
			ok := transformSegment3D(out, m, seg.Tag, pts, pStart)
			if ok {
				anyValid = true
			}
		}
		out.CloseContour()
		return true
	})
	return out, anyValid
}

func emitProjected(out *Store, m Matrix3D, p Point, start bool) bool {
	px, py, ok := m.Project(p.X.ToFloat(), p.Y.ToFloat())
	if !ok {
		return false
	}
	_ = out.AddPoint(Point{X: fixed.FromFloat(px), Y: fixed.FromFloat(py)})
	return true
}

// transformSegment3D projects one segment's points, subdividing at the
// midpoint if the segment's bounding box crosses DepthHorizon in z. For
// simplicity z-crossing is approximated by checking whether the segment's
// homogeneous w changes sign or gets very small across its points, which
// is the condition that makes the naive per-point projection unstable.
func transformSegment3D(out *Store, m Matrix3D, tag Tag, pts []Point, contourStart int) bool {
	floatPts := make([][2]float64, len(pts))
	for i, p := range pts {
		floatPts[i] = [2]float64{p.X.ToFloat(), p.Y.ToFloat()}
	}
	if crossesHorizon(m, floatPts) {
		return subdivideAndProject(out, m, tag, floatPts, 0)
	}
	for _, fp := range floatPts {
		px, py, ok := m.Project(fp[0], fp[1])
		if !ok {
			return false
		}
		_ = out.AddPoint(Point{X: fixed.FromFloat(px), Y: fixed.FromFloat(py)})
	}
	_ = out.AddSegment(tag)
	return true
}

func crossesHorizon(m Matrix3D, pts [][2]float64) bool {
	minW, maxW := minMaxW(m, pts)
	return minW < DepthHorizon && maxW > DepthHorizon || minW <= 0
}

func minMaxW(m Matrix3D, pts [][2]float64) (minW, maxW float64) {
	for i, p := range pts {
		_, _, w := m.ApplyHomogeneous(p[0], p[1])
		if i == 0 || w < minW {
			minW = w
		}
		if i == 0 || w > maxW {
			maxW = w
		}
	}
	return
}

// subdivideAndProject splits the segment at t=1/2 via de Casteljau and
// recurses on each half, bounded by a fixed recursion depth to guarantee
// termination even pathologically near the camera plane.
func subdivideAndProject(out *Store, m Matrix3D, tag Tag, pts [][2]float64, depth int) bool {
	const maxDepth = 8
	full := append([][2]float64{lastEmitted(out)}, pts...)
	if depth >= maxDepth {
		for _, fp := range pts {
			px, py, ok := m.Project(fp[0], fp[1])
			if !ok {
				px, py = fp[0], fp[1] // last resort: keep unclipped coords
			}
			_ = out.AddPoint(Point{X: fixed.FromFloat(px), Y: fixed.FromFloat(py)})
		}
		_ = out.AddSegment(tag)
		return true
	}
	left, right := splitDeCasteljau(full)
	leftPts := left[1:]
	rightPts := right[1:]
	ok1 := transformSegment3DFloat(out, m, tag, leftPts, depth+1)
	ok2 := transformSegment3DFloat(out, m, tag, rightPts, depth+1)
	return ok1 && ok2
}

func transformSegment3DFloat(out *Store, m Matrix3D, tag Tag, pts [][2]float64, depth int) bool {
	if crossesHorizon(m, pts) {
		return subdivideAndProject(out, m, tag, pts, depth)
	}
	for _, fp := range pts {
		px, py, ok := m.Project(fp[0], fp[1])
		if !ok {
			return false
		}
		_ = out.AddPoint(Point{X: fixed.FromFloat(px), Y: fixed.FromFloat(py)})
	}
	_ = out.AddSegment(tag)
	return true
}

func lastEmitted(out *Store) [2]float64 {
	if len(out.Points) == 0 {
		return [2]float64{}
	}
	p := out.Points[len(out.Points)-1]
	return [2]float64{p.X.ToFloat(), p.Y.ToFloat()}
}

// splitDeCasteljau splits a Bézier curve (given as start point plus 1-3
// control/end points, 2-4 total) at t=1/2 using repeated linear
// interpolation, returning the two halves each as a full point list
// (start..end) of the same length as the input.
func splitDeCasteljau(pts [][2]float64) (left, right [][2]float64) {
	n := len(pts)
	work := make([][2]float64, n)
	copy(work, pts)
	left = make([][2]float64, 0, n)
	right = make([][2]float64, 0, n)
	left = append(left, work[0])
	right = append(right, work[n-1])
	for n > 1 {
		next := make([][2]float64, n-1)
		for i := 0; i < n-1; i++ {
			next[i] = lerp(work[i], work[i+1], 0.5)
		}
		left = append(left, next[0])
		right = append(right, next[len(next)-1])
		work = next
		n--
	}
	reverse(right)
	return left, right
}

func lerp(a, b [2]float64, t float64) [2]float64 {
	return [2]float64{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

func reverse(pts [][2]float64) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
