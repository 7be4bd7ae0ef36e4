package outline

import "github.com/vectype/core/fixed"

// Polyline is a flattened, closed sequence of points approximating one
// contour's curves to within a tolerance.
type Polyline []Point

// Flatten converts every contour's line/quad/cubic segments into closed
// polylines, subdividing curves adaptively until within tolerance (26.6
// units) of the true curve. It is the rasterizer's sole consumer of
// Bézier geometry: everything past this point is straight segments.
func Flatten(src *Store, tolerance fixed.Pos26_6) []Polyline {
	tol := tolerance.ToFloat()
	if tol <= 0 {
		tol = 1.0 / 64
	}
	var out []Polyline
	src.Contours(func(pStart, pEnd, segStart, segEnd int) bool {
		poly := flattenContour(src, pStart, pEnd, segStart, segEnd, tol)
		pts := make(Polyline, len(poly))
		for i, v := range poly {
			pts[i] = vecToPt(v)
		}
		out = append(out, pts)
		return true
	})
	return out
}
