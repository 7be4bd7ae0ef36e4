package outline

import (
	"testing"

	"github.com/vectype/core/fixed"
)

func square(s *Store) {
	pts := []Point{
		{X: fixed.FromFloat(0), Y: fixed.FromFloat(0)},
		{X: fixed.FromFloat(10), Y: fixed.FromFloat(0)},
		{X: fixed.FromFloat(10), Y: fixed.FromFloat(10)},
		{X: fixed.FromFloat(0), Y: fixed.FromFloat(10)},
	}
	_ = s.AddPoint(pts[0])
	for _, p := range pts[1:] {
		_ = s.AddPoint(p)
		_ = s.AddSegment(TagLine)
	}
	_ = s.AddPoint(pts[0])
	_ = s.AddSegment(TagLine)
	s.CloseContour()
}

func TestStoreInvariants(t *testing.T) {
	s := New(0, 0)
	square(s)
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants failed: %v", err)
	}
	if s.NumContours() != 1 {
		t.Fatalf("NumContours = %d, want 1", s.NumContours())
	}
}

func TestConvertDiscardsDegenerateContours(t *testing.T) {
	src := &FaceOutline{
		Contours: []SourceContour{
			{Points: []SourcePoint{
				{X: fixed.FromFloat(0), Y: fixed.FromFloat(0), Tag: SourceOnCurve},
				{X: fixed.FromFloat(1), Y: fixed.FromFloat(1), Tag: SourceOnCurve},
			}}, // degenerate: 2 points
			{Points: []SourcePoint{
				{X: fixed.FromFloat(0), Y: fixed.FromFloat(0), Tag: SourceOnCurve},
				{X: fixed.FromFloat(10), Y: fixed.FromFloat(0), Tag: SourceOnCurve},
				{X: fixed.FromFloat(10), Y: fixed.FromFloat(10), Tag: SourceOnCurve},
			}},
		},
	}
	out := Convert(src)
	if out.NumContours() != 1 {
		t.Fatalf("NumContours = %d, want 1 (degenerate contour discarded)", out.NumContours())
	}
	if err := out.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants failed: %v", err)
	}
}

func TestScalePow2Overflow(t *testing.T) {
	s := New(0, 0)
	_ = s.AddPoint(Point{X: fixed.Pos26_6(fixed.MaxCoord - 10), Y: 0})
	_ = s.AddPoint(Point{X: fixed.Pos26_6(fixed.MaxCoord - 10), Y: 10})
	_ = s.AddSegment(TagLine)
	s.CloseContour()
	if _, err := ScalePow2(s, 4, 0); err != ErrScaleOverflow {
		t.Fatalf("ScalePow2 err = %v, want ErrScaleOverflow", err)
	}
}

func TestTransform2DIdentity(t *testing.T) {
	s := New(0, 0)
	square(s)
	out := Transform2D(s, Identity2D())
	for i, p := range out.Points {
		orig := s.Points[i]
		if diff := p.X.ToFloat() - orig.X.ToFloat(); diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("identity transform moved point %d: %v != %v", i, p, orig)
		}
	}
}

func TestStrokeZeroBorderEmpty(t *testing.T) {
	s := New(0, 0)
	square(s)
	outer, inner := Stroke(s, 0, 0, fixed.FromFloat(1.0/64))
	// With zero border both offsets degenerate to (near) zero-area
	// outlines; verify at least that stroking does not panic and
	// produces closed polygons.
	if outer.NumContours() == 0 || inner.NumContours() == 0 {
		t.Fatalf("expected non-empty (if degenerate) outlines from Stroke")
	}
}

func TestParseDrawingRect(t *testing.T) {
	s := ParseDrawing("m 0 0 l 100 0 l 100 100 l 0 100", 1)
	if s.NumContours() != 1 {
		t.Fatalf("NumContours = %d, want 1", s.NumContours())
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}
