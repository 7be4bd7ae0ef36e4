package outline

import (
	"math"

	"github.com/vectype/core/fixed"
)

// mergeCos is the cosine threshold below which successive normals are
// considered a "sharp" corner requiring an inserted arc rather than a
// blended average normal.
const mergeCos = 0.98

// vec2 is a float64 2D vector used internally by the stroker. It is kept
// separate from Point (which is fixed-point) because all stroker geometry
// is computed in floating point and only rounded to fixed point on emit.
type vec2 struct{ X, Y float64 }

func (a vec2) add(b vec2) vec2   { return vec2{a.X + b.X, a.Y + b.Y} }
func (a vec2) sub(b vec2) vec2   { return vec2{a.X - b.X, a.Y - b.Y} }
func (a vec2) scale(s float64) vec2 { return vec2{a.X * s, a.Y * s} }
func (a vec2) len() float64      { return math.Hypot(a.X, a.Y) }
func (a vec2) norm() vec2 {
	l := a.len()
	if l < 1e-9 {
		return vec2{}
	}
	return vec2{a.X / l, a.Y / l}
}
func (a vec2) perp() vec2            { return vec2{-a.Y, a.X} }
func (a vec2) dot(b vec2) float64    { return a.X*b.X + a.Y*b.Y }
func (a vec2) cross(b vec2) float64  { return a.X*b.Y - a.Y*b.X }

func ptToVec(p Point) vec2 { return vec2{p.X.ToFloat(), p.Y.ToFloat()} }
func vecToPt(v vec2) Point { return Point{X: fixed.FromFloat(v.X), Y: fixed.FromFloat(v.Y)} }

// Stroke produces two offset outlines at +d and -d in the normal
// direction, scaled anisotropically by (bordX, bordY) in 26.6 units, such
// that every point inside either (by non-zero winding) is within distance
// 1 of some source point in the metric sqrt((dx/bordX)^2+(dy/bordY)^2),
// within the given tolerance eps (26.6 units).
//
// Curves are first flattened to polylines bounded by eps, then the
// flattened polyline is offset per-vertex with sharp-corner arcs and
// self-intersection bridging.
func Stroke(src *Store, bordX, bordY fixed.Pos26_6, eps fixed.Pos26_6) (outer, inner *Store) {
	outer = New(0, 0)
	inner = New(0, 0)
	bx, by := bordX.ToFloat(), bordY.ToFloat()
	epsF := eps.ToFloat()
	if epsF <= 0 {
		epsF = 1.0 / 64
	}

	src.Contours(func(pStart, pEnd, segStart, segEnd int) bool {
		poly := flattenContour(src, pStart, pEnd, segStart, segEnd, epsF)
		poly = mergeShort(poly, epsF)
		strokeContour(outer, inner, poly, bx, by)
		return true
	})
	return outer, inner
}

// flattenContour converts one contour's Bézier segments into a closed
// polyline, subdividing curves until within epsF of the true curve.
func flattenContour(s *Store, pStart, pEnd, segStart, segEnd int, epsF float64) []vec2 {
	var poly []vec2
	pIdx := pStart + 1
	cur := ptToVec(s.Points[pStart])
	poly = append(poly, cur)
	for _, seg := range s.Segments[segStart:segEnd] {
		n := seg.Tag.PointCount()
		pts := s.Points[pIdx : pIdx+n]
		pIdx += n
		switch seg.Tag {
		case TagLine:
			cur = ptToVec(pts[0])
			poly = append(poly, cur)
		case TagQuad:
			c := ptToVec(pts[0])
			end := ptToVec(pts[1])
			flattenQuad(cur, c, end, epsF, &poly)
			cur = end
		case TagCubic:
			c1 := ptToVec(pts[0])
			c2 := ptToVec(pts[1])
			end := ptToVec(pts[2])
			flattenCubic(cur, c1, c2, end, epsF, &poly)
			cur = end
		}
	}
	return poly
}

func flattenQuad(p0, c, p1 vec2, epsF float64, out *[]vec2) {
	if quadFlat(p0, c, p1, epsF) {
		*out = append(*out, p1)
		return
	}
	p01 := lerpV(p0, c, 0.5)
	p12 := lerpV(c, p1, 0.5)
	mid := lerpV(p01, p12, 0.5)
	flattenQuad(p0, p01, mid, epsF, out)
	flattenQuad(mid, p12, p1, epsF, out)
}

func quadFlat(p0, c, p1 vec2, epsF float64) bool {
	return distToSeg(c, p0, p1) < epsF
}

func flattenCubic(p0, c1, c2, p1 vec2, epsF float64, out *[]vec2) {
	if cubicFlat(p0, c1, c2, p1, epsF) {
		*out = append(*out, p1)
		return
	}
	p01 := lerpV(p0, c1, 0.5)
	p12 := lerpV(c1, c2, 0.5)
	p23 := lerpV(c2, p1, 0.5)
	p012 := lerpV(p01, p12, 0.5)
	p123 := lerpV(p12, p23, 0.5)
	mid := lerpV(p012, p123, 0.5)
	flattenCubic(p0, p01, p012, mid, epsF, out)
	flattenCubic(mid, p123, p23, p1, epsF, out)
}

func cubicFlat(p0, c1, c2, p1 vec2, epsF float64) bool {
	return distToSeg(c1, p0, p1) < epsF && distToSeg(c2, p0, p1) < epsF
}

func lerpV(a, b vec2, t float64) vec2 {
	return vec2{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

func distToSeg(p, a, b vec2) float64 {
	ab := b.sub(a)
	l := ab.len()
	if l < 1e-9 {
		return p.sub(a).len()
	}
	t := p.sub(a).dot(ab) / (l * l)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	proj := a.add(ab.scale(t))
	return p.sub(proj).len()
}

// mergeShort fuses consecutive points within eps of each other, avoiding
// ill-defined normals at near-duplicate vertices.
func mergeShort(poly []vec2, epsF float64) []vec2 {
	if len(poly) < 2 {
		return poly
	}
	out := poly[:1]
	for _, p := range poly[1:] {
		if p.sub(out[len(out)-1]).len() >= epsF {
			out = append(out, p)
		}
	}
	// Contour closure: drop a duplicated closing point equal to start.
	if len(out) > 1 && out[0].sub(out[len(out)-1]).len() < epsF {
		out = out[:len(out)-1]
	}
	return out
}

// strokeContour offsets one closed polyline into the outer/inner stores.
// A contour reduced to a single point degenerates to a full circle of
// radius 1 (in the anisotropic metric) on both outlines.
func strokeContour(outer, inner *Store, poly []vec2, bx, by float64) {
	n := len(poly)
	if n == 0 {
		return
	}
	if n == 1 {
		emitCircle(outer, poly[0], bx, by)
		emitCircle(inner, poly[0], bx, by)
		return
	}

	normals := make([]vec2, n)
	for i := 0; i < n; i++ {
		prev := poly[(i-1+n)%n]
		next := poly[(i+1)%n]
		tIn := poly[i].sub(prev).norm()
		tOut := next.sub(poly[i]).norm()
		avg := tIn.add(tOut)
		if avg.len() < 1e-9 {
			avg = tOut
		}
		normals[i] = avg.norm().perp()
	}

	var outerPts, innerPts []vec2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		p0, p1 := poly[i], poly[j]
		n0, n1 := normals[i], normals[j]

		seg := p1.sub(p0)
		segLen := seg.len()
		curvature := 0.0
		if segLen > 1e-9 {
			curvature = n1.sub(n0).len() / segLen
		}
		anisoOffset := math.Max(bx, by)
		selfIntersects := curvature*anisoOffset > 1.0

		o0 := offsetPoint(p0, n0, bx, by)
		o1 := offsetPoint(p1, n1, bx, by)
		i0 := offsetPoint(p0, n0, -bx, -by)
		i1 := offsetPoint(p1, n1, -bx, -by)

		if selfIntersects {
			// Bridge the outside with a straight segment between the
			// pre-offset endpoints and leave the inside as a thin
			// (one-pixel) polyline joining both original points.
			outerPts = append(outerPts, o0, p0)
			innerPts = append(innerPts, i0, i1)
		} else {
			outerPts = append(outerPts, o0, o1)
			innerPts = append(innerPts, i0, i1)
		}

		// Join handling at vertex j looking ahead to segment j->j+1.
		nextNormal := normals[j]
		if n1.dot(nextNormal) < mergeCos {
			insertArcJoin(&outerPts, p1, n1, nextNormal, bx, by)
			insertArcJoin(&innerPts, p1, n1.scale(-1), nextNormal.scale(-1), bx, by)
		}
	}

	emitClosedPolygon(outer, outerPts)
	emitClosedPolygon(inner, innerPts)
}

func offsetPoint(p vec2, n vec2, bx, by float64) vec2 {
	return vec2{p.X + n.X*bx, p.Y + n.Y*by}
}

// insertArcJoin appends a short fan of points approximating a unit-radius
// circular arc between two normals at a sharp corner.
func insertArcJoin(pts *[]vec2, center vec2, n0, n1 vec2, bx, by float64) {
	a0 := math.Atan2(n0.Y, n0.X)
	a1 := math.Atan2(n1.Y, n1.X)
	for a1-a0 > math.Pi {
		a1 -= 2 * math.Pi
	}
	for a1-a0 < -math.Pi {
		a1 += 2 * math.Pi
	}
	const steps = 4
	for k := 1; k < steps; k++ {
		t := float64(k) / steps
		a := a0 + (a1-a0)*t
		n := vec2{math.Cos(a), math.Sin(a)}
		*pts = append(*pts, offsetPoint(center, n, bx, by))
	}
}

func emitCircle(s *Store, center vec2, bx, by float64) {
	const steps = 16
	pts := make([]vec2, steps)
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		pts[i] = offsetPoint(center, vec2{math.Cos(a), math.Sin(a)}, bx, by)
	}
	emitClosedPolygon(s, pts)
}

func emitClosedPolygon(s *Store, pts []vec2) {
	if len(pts) < 3 {
		return
	}
	_ = s.AddPoint(vecToPt(pts[0]))
	for _, p := range pts[1:] {
		_ = s.AddPoint(vecToPt(p))
		_ = s.AddSegment(TagLine)
	}
	_ = s.AddPoint(vecToPt(pts[0]))
	_ = s.AddSegment(TagLine)
	s.CloseContour()
}
