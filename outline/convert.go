package outline

import "github.com/vectype/core/fixed"

// SourceTag identifies the segment kind of one point in an external
// font-loader outline, as delivered by the font-loading collaborator.
// This mirrors Tag but is kept distinct so the font-loader boundary is
// an explicit, narrow interface rather than our internal representation.
type SourceTag uint8

const (
	SourceOnCurve SourceTag = iota
	SourceQuadControl
	SourceCubicControl
)

// SourcePoint is one point of an externally-loaded outline, as produced
// by the font-loader collaborator; loading outlines from font files is
// the collaborator's job, not this package's.
type SourcePoint struct {
	X, Y fixed.Pos26_6
	Tag  SourceTag
}

// SourceContour is one contour of an externally-loaded outline.
type SourceContour struct {
	Points []SourcePoint
}

// FaceOutline is the lossless, font-format-agnostic outline the font
// loader hands back: a list of contours in on-curve/control-point form,
// the representation FreeType and most font rasterizers use natively.
type FaceOutline struct {
	Contours []SourceContour
	Advance  fixed.Pos26_6
	Ascent   fixed.Pos26_6
	Descent  fixed.Pos26_6
}

// Convert performs a lossless conversion from a FaceOutline into a Store.
// Contours with fewer than three points are discarded: they are
// degenerate and would break the segment-order invariant downstream.
func Convert(src *FaceOutline) *Store {
	out := New(0, 0)
	for _, c := range src.Contours {
		if len(c.Points) < 3 {
			continue
		}
		convertContour(out, c.Points)
	}
	return out
}

// convertContour walks one contour's on-curve/control points, emitting
// line/quad/cubic segments. Off-curve quadratic runs of more than one
// control point are split at implied on-curve midpoints, matching
// TrueType's "every other point is on-curve" convention.
func convertContour(out *Store, pts []SourcePoint) {
	start := len(out.Points)
	n := len(pts)

	// Find a starting on-curve point; if none exists (all-control
	// contour, e.g. TrueType ellipses), synthesize one at the midpoint
	// of the first two control points.
	startIdx := -1
	for i, p := range pts {
		if p.Tag == SourceOnCurve {
			startIdx = i
			break
		}
	}
	var firstPt Point
	if startIdx < 0 {
		mid := midpoint(pts[n-1], pts[0])
		firstPt = mid
		startIdx = 0
	} else {
		firstPt = Point{X: pts[startIdx].X, Y: pts[startIdx].Y}
	}
	_ = out.AddPoint(firstPt)

	// k=0 is firstPt itself, already emitted above as the contour's
	// implicit start point; walk the remaining n-1 source points.
	cur := firstPt
	for k := 1; k < n; {
		i := (startIdx + k) % n
		p := pts[i]
		switch p.Tag {
		case SourceOnCurve:
			np := Point{X: p.X, Y: p.Y}
			_ = out.AddPoint(np)
			_ = out.AddSegment(TagLine)
			cur = np
			k++
		case SourceQuadControl:
			ctrl := Point{X: p.X, Y: p.Y}
			var end Point
			nextIdx := (startIdx + k + 1) % n
			if k+1 < n && pts[nextIdx].Tag == SourceOnCurve {
				end = Point{X: pts[nextIdx].X, Y: pts[nextIdx].Y}
				k += 2
			} else {
				end = midpoint(p, pts[nextIdx])
				k++
			}
			_ = out.AddPoint(ctrl)
			_ = out.AddPoint(end)
			_ = out.AddSegment(TagQuad)
			cur = end
		case SourceCubicControl:
			c1 := Point{X: p.X, Y: p.Y}
			c2Idx := (startIdx + k + 1) % n
			endIdx := (startIdx + k + 2) % n
			c2 := Point{X: pts[c2Idx].X, Y: pts[c2Idx].Y}
			end := Point{X: pts[endIdx].X, Y: pts[endIdx].Y}
			_ = out.AddPoint(c1)
			_ = out.AddPoint(c2)
			_ = out.AddPoint(end)
			_ = out.AddSegment(TagCubic)
			cur = end
			k += 3
		}
	}
	// Always close back to the contour's start with an explicit line
	// segment, even when cur already coincides with firstPt: Store's
	// invariant requires every point but the leading one to be owned by
	// exactly one segment, so the closing point must be stored, not
	// implied.
	_ = cur
	_ = out.AddPoint(firstPt)
	_ = out.AddSegment(TagLine)
	out.CloseContour()
	_ = start
}

func midpoint(a, b SourcePoint) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
