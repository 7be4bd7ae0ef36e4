package raster

import (
	"testing"

	"github.com/vectype/core/fixed"
	"github.com/vectype/core/outline"
)

func square(x0, y0, x1, y1 float64) *outline.Store {
	s := outline.New(0, 0)
	pts := []outline.Point{
		{X: fixed.FromFloat(x0), Y: fixed.FromFloat(y0)},
		{X: fixed.FromFloat(x1), Y: fixed.FromFloat(y0)},
		{X: fixed.FromFloat(x1), Y: fixed.FromFloat(y1)},
		{X: fixed.FromFloat(x0), Y: fixed.FromFloat(y1)},
	}
	_ = s.AddPoint(pts[0])
	for _, p := range pts[1:] {
		_ = s.AddPoint(p)
		_ = s.AddSegment(outline.TagLine)
	}
	_ = s.AddPoint(pts[0])
	_ = s.AddSegment(outline.TagLine)
	s.CloseContour()
	return s
}

func TestRasterizeSolidInterior(t *testing.T) {
	src := square(4, 4, 28, 28)
	bmp, err := Rasterize(src, 0, 0, 32, 32, Tile32, nil)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if bmp.Pix[16*bmp.Stride+16] < 200 {
		t.Fatalf("center pixel alpha = %d, want near 255", bmp.Pix[16*bmp.Stride+16])
	}
	if bmp.Pix[1*bmp.Stride+1] > 10 {
		t.Fatalf("corner pixel alpha = %d, want near 0", bmp.Pix[1*bmp.Stride+1])
	}
}

func TestRasterizeEmptyOutline(t *testing.T) {
	s := outline.New(0, 0)
	bmp, err := Rasterize(s, 0, 0, 16, 16, Tile16, nil)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	for _, v := range bmp.Pix {
		if v != 0 {
			t.Fatalf("expected all-zero bitmap for empty outline, found %d", v)
		}
	}
}

func TestAlphaRunsRoundTrip(t *testing.T) {
	row := []uint8{0, 0, 255, 255, 255, 128, 0}
	ar := FromCoverage(row)
	out := make([]uint8, len(row))
	ar.CopyTo(out)
	for i := range row {
		if out[i] != row[i] {
			t.Fatalf("round trip mismatch at %d: got %d want %d", i, out[i], row[i])
		}
	}
}

func TestScratchGrow(t *testing.T) {
	var sc Scratch
	sc.Grow(100)
	if cap(sc.bufA) < 100 || cap(sc.bufB) < 100 {
		t.Fatalf("Grow did not reserve requested capacity")
	}
}
