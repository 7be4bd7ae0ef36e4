package transform

import (
	"math"
	"testing"

	"github.com/vectype/core/fixed"
	"github.com/vectype/core/outline"
	"github.com/vectype/core/raster"
)

func square(half float64) *outline.Store {
	s := outline.New(4, 1)
	pts := [][2]float64{{-half, -half}, {half, -half}, {half, half}, {-half, half}}
	for _, p := range pts {
		_ = s.AddPoint(outline.Point{X: fixed.FromFloat(p[0]), Y: fixed.FromFloat(p[1])})
	}
	_ = s.AddSegment(outline.TagLine)
	_ = s.AddSegment(outline.TagLine)
	_ = s.AddSegment(outline.TagLine)
	s.CloseContour()
	return s
}

func TestQuantizeIdentityHasUnitZRow(t *testing.T) {
	src := square(32)
	m := outline.Identity3D()
	key, steps, err := Quantize(src, m, 1, nil)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if steps.Qx <= 0 || steps.Qy <= 0 {
		t.Fatalf("expected positive quantization steps, got %+v", steps)
	}
	if key.Mz[2] != 1 {
		t.Fatalf("expected quantized m22 == 1 for identity, got %d", key.Mz[2])
	}
}

func TestQuantizeRejectsTooClose(t *testing.T) {
	src := square(32)
	m := outline.Identity3D()
	// Drive the bounding box's minimum z far below m22/MaxPerspScale by
	// giving the outline a huge bottom row in the w equation.
	m.M[2][0] = 1
	m.M[2][1] = 1
	m.M[2][2] = 1
	_, _, err := Quantize(src, m, 1, nil)
	if err != ErrTooClose {
		t.Fatalf("expected ErrTooClose, got %v", err)
	}
}

func TestRestoreRoundTripsIdentity(t *testing.T) {
	src := square(32)
	m := outline.Identity3D()
	key, steps, err := Quantize(src, m, 1, nil)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	restored := Restore(key, steps)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := m.M[i][j]
			got := restored.M[i][j]
			if math.Abs(got-want) > 0.5 {
				t.Errorf("restored[%d][%d] = %v, want near %v", i, j, got, want)
			}
		}
	}
}

func TestComposeIdentityIsIdentity(t *testing.T) {
	m := Compose(1, 1, 0, 0, 0, 0, 0, 0, 0, 0)
	px, py, w := m.ApplyHomogeneous(10, 20)
	if px != 10 || py != 20 || w != 1 {
		t.Fatalf("Compose identity-ish params gave (%v,%v,%v), want (10,20,1)", px, py, w)
	}
}

func TestComposeScaleOnly(t *testing.T) {
	m := Compose(2, 3, 0, 0, 5, 7, 0, 0, 0, 0)
	px, py, w := m.ApplyHomogeneous(10, 10)
	if w != 1 {
		t.Fatalf("expected w=1 with no perspective, got %v", w)
	}
	if px != 2*10+5 || py != 3*10+7 {
		t.Fatalf("Compose scale+translate gave (%v,%v), want (25,37)", px, py)
	}
}

func TestRenderProducesPositionedBitmap(t *testing.T) {
	src := square(64)
	m := outline.Identity3D()
	scratch := &raster.Scratch{}
	result, err := Render(src, m, 1, raster.Tile32, nil, scratch)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if result.Bitmap.Width <= 0 || result.Bitmap.Height <= 0 {
		t.Fatalf("expected nonempty bitmap, got %dx%d", result.Bitmap.Width, result.Bitmap.Height)
	}
}
