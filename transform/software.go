package transform

import (
	"errors"

	"github.com/vectype/core/outline"
	"github.com/vectype/core/raster"
)

// ErrUnprojectable is returned when every contour of the outline falls
// behind the camera under the given matrix, leaving nothing to
// rasterize.
var ErrUnprojectable = errors.New("transform: outline not projectable under matrix")

// Result is the outcome of rendering one outline through one quantized
// transform: the coverage bitmap, its device-space position, and the
// cache key the bitmap was produced for.
type Result struct {
	Bitmap *raster.Bitmap
	X, Y   int32
	Key    Key
}

// Render implements the §4.5 contract: (outline, 3x3 matrix, optional
// offset hint) -> (bitmap, position, key). It quantizes the transform
// for the cache key, projects the outline through the unquantized
// matrix (the quantization only affects what counts as a cache hit, not
// the geometry actually rasterized), and rasterizes the result.
func Render(src *outline.Store, m outline.Matrix3D, outlineToken uint64, order raster.TileOrder, offsetHint *[2]int32, scratch *raster.Scratch) (*Result, error) {
	key, _, err := Quantize(src, m, outlineToken, offsetHint)
	if err != nil {
		return nil, err
	}

	projected, anyValid := outline.Transform3D(src, m)
	if !anyValid {
		return nil, ErrUnprojectable
	}

	x0, y0, x1, y1 := pixelBounds(projected)
	w := int(x1 - x0)
	h := int(y1 - y0)
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}

	bmp, err := raster.Rasterize(projected, int(x0), int(y0), w, h, order, scratch)
	if err != nil {
		return nil, err
	}
	return &Result{Bitmap: bmp, X: x0, Y: y0, Key: key}, nil
}

// pixelBounds returns the integer pixel bounding box of a projected
// outline's points, rounded outward so every control point's coverage
// falls inside the rasterized rectangle.
func pixelBounds(s *outline.Store) (x0, y0, x1, y1 int32) {
	if len(s.Points) == 0 {
		return 0, 0, 1, 1
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	x0 = minX.Int()
	y0 = minY.Int()
	x1 = maxX.Round().Int() + 1
	y1 = maxY.Round().Int() + 1
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}
