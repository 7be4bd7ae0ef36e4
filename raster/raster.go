// Package raster converts outline geometry into 8-bit coverage bitmaps
// via recursive quad-tree subdivision, analytic half-plane fills for
// single-segment tiles, and a scanline coverage accumulator for tiles
// with two or more segments.
package raster

import (
	"errors"

	"github.com/vectype/core/fixed"
	"github.com/vectype/core/outline"
)

// ErrOutOfMemory names the rasterizer's allocation failure. Rasterize
// never returns it: its buffers are allocated with make, which does not
// report failure.
var ErrOutOfMemory = errors.New("raster: out of memory")

// TileOrder selects the rasterizer's leaf tile size: 16 or 32 pixels.
// 32-pixel tiles trade per-tile fill cost for cache/SIMD utilization;
// picked once at engine init.
type TileOrder int

const (
	Tile16 TileOrder = 16
	Tile32 TileOrder = 32
)

// Bitmap is the rasterizer's coverage output: an 8-bit alpha image with
// no position or color — those belong to the bitmap package's higher-
// level Bitmap once a transform and filter descriptor are applied.
type Bitmap struct {
	Width, Height, Stride int
	Pix                   []uint8
}

// NewBitmap allocates a coverage bitmap of the given size, stride
// rounded up to a 16-byte boundary to match the engine's narrowest
// vector width.
func NewBitmap(w, h int) *Bitmap {
	stride := (w + 15) &^ 15
	if stride == 0 {
		stride = 16
	}
	return &Bitmap{Width: w, Height: h, Stride: stride, Pix: make([]uint8, stride*h)}
}

func (b *Bitmap) set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pix[y*b.Stride+x] = v
}

// Scratch holds two segment buffers, grown geometrically and owned by
// the caller across calls (the render driver's rasterizer-scratch
// resource, §5). Rasterize grows them to the segment count, but the
// quad-tree split does not work in them: it builds its own slices.
type Scratch struct {
	bufA, bufB []segment
}

// Grow reserves capacity for at least n segments in each ping-pong
// buffer, doubling geometrically.
func (s *Scratch) Grow(n int) {
	if cap(s.bufA) < n {
		s.bufA = make([]segment, 0, growCap(cap(s.bufA), n))
	}
	if cap(s.bufB) < n {
		s.bufB = make([]segment, 0, growCap(cap(s.bufB), n))
	}
}

func growCap(have, need int) int {
	if have == 0 {
		have = 64
	}
	for have < need {
		have *= 2
	}
	return have
}

// segment is the rasterizer's working-set half-plane record: a directed
// line from (x0,y0) to (x1,y1) with y0<=y1 (top-to-bottom) and a signed
// winding contribution, plus the precomputed half-plane equation
// a*x+b*y<=c normalized so max(|a|,|b|) is 1. The normalization plays
// the role a fixed-point reciprocal scale would: the half-plane fill
// gets per-pixel coverage from a multiply, never a divide. The generic
// accumulator does divide when it intersects an edge with pixel bounds.
type segment struct {
	x0, y0, x1, y1 float64
	sign           float64
	a, b, c        float64
}

func newSegment(px0, py0, px1, py1 float64) segment {
	sign := 1.0
	if py0 > py1 {
		px0, py0, px1, py1 = px1, py1, px0, py0
		sign = -1.0
	}
	dx, dy := px1-px0, py1-py0
	a, b := dy, -dx
	n := a
	if b < 0 {
		b = -b
	}
	if a < 0 {
		n = -a
	}
	if b > n {
		n = b
	}
	if n < 1e-12 {
		n = 1
	}
	a /= n
	b /= n
	c := a*px0 + b*py0
	return segment{x0: px0, y0: py0, x1: px1, y1: py1, sign: sign, a: a, b: b, c: c}
}

// Rasterize fills a w×h coverage bitmap for the outline, where (x0,y0)
// is the destination rectangle's top-left in outline-space pixels. w
// and h need not be tile-aligned; the quad-tree recursion clips its
// last level to the requested rectangle.
func Rasterize(src *outline.Store, x0, y0, w, h int, order TileOrder, scratch *Scratch) (*Bitmap, error) {
	if w <= 0 || h <= 0 {
		return NewBitmap(0, 0), nil
	}
	polys := outline.Flatten(src, fixed.FromFloat(0.25))
	var segs []segment
	for _, poly := range polys {
		n := len(poly)
		if n < 2 {
			continue
		}
		for i := 0; i < n; i++ {
			p0 := poly[i]
			p1 := poly[(i+1)%n]
			x0f, y0f := p0.X.ToFloat()-float64(x0), p0.Y.ToFloat()-float64(y0)
			x1f, y1f := p1.X.ToFloat()-float64(x0), p1.Y.ToFloat()-float64(y0)
			if y0f == y1f {
				continue
			}
			segs = append(segs, newSegment(x0f, y0f, x1f, y1f))
		}
	}
	if scratch != nil {
		scratch.Grow(len(segs))
	}

	tile := int(order)
	if tile != int(Tile16) && tile != int(Tile32) {
		tile = int(Tile16)
	}

	bmp := NewBitmap(w, h)
	fillRect(segs, 0, 0, 0, w, h, tile, bmp)
	return bmp, nil
}

// fillRect is the quad-tree recursion: split the current rectangle on
// its longer axis, partition segments (splitting any that straddle the
// line) and carry the appropriate winding contribution to the far
// side, until the rectangle is a single leaf tile of the configured
// size.
func fillRect(segs []segment, baseWinding float64, x0, y0, x1, y1, tile int, bmp *Bitmap) {
	w, h := x1-x0, y1-y0
	if w <= tile && h <= tile {
		leaf(segs, baseWinding, x0, y0, x1, y1, bmp)
		return
	}
	if w >= h {
		xs := x0 + w/2
		left, right, carry := splitX(segs, float64(xs), float64(y0), float64(y1))
		fillRect(left, baseWinding, x0, y0, xs, y1, tile, bmp)
		fillRect(right, baseWinding+carry, xs, y0, x1, y1, tile, bmp)
		return
	}
	ys := y0 + h/2
	top, bottom := splitY(segs, float64(ys))
	fillRect(top, baseWinding, x0, y0, x1, ys, tile, bmp)
	fillRect(bottom, baseWinding, x0, ys, x1, y1, tile, bmp)
}

// splitX partitions segments by an x=xs split line, clipping any
// segment whose bounding box straddles it into two half-plane segments.
// Segments wholly to the left whose y-range overlaps [y0,y1) contribute
// their signed winding to the right child's base winding: a point to
// the right of such a segment sees it as a full vertical crossing for
// the overlapping rows, exactly as a non-zero-winding ray test would.
func splitX(segs []segment, xs, y0, y1 float64) (left, right []segment, carry float64) {
	for _, s := range segs {
		minX, maxX := s.x0, s.x1
		if minX > maxX {
			minX, maxX = maxX, minX
		}
		switch {
		case maxX <= xs:
			left = append(left, s)
			carry += overlapWinding(s, y0, y1)
		case minX >= xs:
			right = append(right, s)
		default:
			t := (xs - s.x0) / (s.x1 - s.x0)
			ys := s.y0 + t*(s.y1-s.y0)
			left = append(left, segAt(s, s.x0, s.y0, xs, ys))
			right = append(right, segAt(s, xs, ys, s.x1, s.y1))
		}
	}
	return
}

// splitY partitions segments by a y=ys split line, clipping straddling
// segments. No winding carry is needed: the non-zero winding test only
// counts crossings to one side in x, never in y.
func splitY(segs []segment, ys float64) (top, bottom []segment) {
	for _, s := range segs {
		switch {
		case s.y1 <= ys:
			top = append(top, s)
		case s.y0 >= ys:
			bottom = append(bottom, s)
		default:
			t := (ys - s.y0) / (s.y1 - s.y0)
			xs := s.x0 + t*(s.x1-s.x0)
			top = append(top, segAt(s, s.x0, s.y0, xs, ys))
			bottom = append(bottom, segAt(s, xs, ys, s.x1, s.y1))
		}
	}
	return
}

func segAt(orig segment, x0, y0, x1, y1 float64) segment {
	s := newSegment(x0, y0, x1, y1)
	s.sign = orig.sign
	return s
}

func overlapWinding(s segment, y0, y1 float64) float64 {
	lo, hi := s.y0, s.y1
	if lo < y0 {
		lo = y0
	}
	if hi > y1 {
		hi = y1
	}
	if hi <= lo {
		return 0
	}
	return (hi - lo) * s.sign
}

func leaf(segs []segment, baseWinding float64, x0, y0, x1, y1 int, bmp *Bitmap) {
	switch len(segs) {
	case 0:
		fillSolid(bmp, x0, y0, x1, y1, baseWinding)
	case 1:
		fillHalfPlane(bmp, segs[0], baseWinding, x0, y0, x1, y1)
	default:
		fillGeneric(bmp, segs, baseWinding, x0, y0, x1, y1)
	}
}

func fillSolid(bmp *Bitmap, x0, y0, x1, y1 int, winding float64) {
	a := windingAlpha(winding)
	if a == 0 {
		return
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			bmp.set(x, y, a)
		}
	}
}

func windingAlpha(w float64) uint8 {
	if w < 0 {
		w = -w
	}
	if w > 1 {
		w = 1
	}
	return uint8(w*255 + 0.5)
}

// fillHalfPlane renders the analytic linear coverage ramp for a single
// segment: pixels strictly on the winding+sign side are fully covered,
// pixels on the baseWinding side are fully uncovered, and the pixel row
// straddling the segment gets a linear blend, normalized by the
// segment's precomputed scale.
func fillHalfPlane(bmp *Bitmap, s segment, baseWinding float64, x0, y0, x1, y1 int) {
	a0 := windingAlpha(baseWinding)
	a1 := windingAlpha(baseWinding + s.sign)
	for y := y0; y < y1; y++ {
		py := float64(y) + 0.5
		for x := x0; x < x1; x++ {
			px := float64(x) + 0.5
			d := s.a*px + s.b*py - s.c
			t := 0.5 - d
			if t < 0 {
				t = 0
			}
			if t > 1 {
				t = 1
			}
			v := float64(a0) + (float64(a1)-float64(a0))*t
			bmp.set(x, y, uint8(v+0.5))
		}
	}
}

// fillGeneric accumulates per-pixel winding contributions from every
// segment in the tile, one scanline at a time, via the trapezoidal
// area method: each pixel's winding is the signed area the segment
// sweeps within that pixel's row plus the accumulated winding of every
// segment already fully to its left on that row.
func fillGeneric(bmp *Bitmap, segs []segment, baseWinding float64, x0, y0, x1, y1 int) {
	width := x1 - x0
	winding := make([]float64, width)
	for y := y0; y < y1; y++ {
		for i := range winding {
			winding[i] = baseWinding
		}
		rowTop, rowBot := float64(y), float64(y+1)
		for _, s := range segs {
			accumulateRow(winding, x0, s, rowTop, rowBot)
		}
		for i, w := range winding {
			bmp.set(x0+i, y, windingAlpha(w))
		}
	}
}

func accumulateRow(winding []float64, xOrigin int, s segment, rowTop, rowBot float64) {
	yTop, yBot := rowTop, rowBot
	if yTop < s.y0 {
		yTop = s.y0
	}
	if yBot > s.y1 {
		yBot = s.y1
	}
	if yBot <= yTop {
		return
	}
	dy := s.y1 - s.y0
	if dy == 0 {
		return
	}
	xAt := func(y float64) float64 {
		t := (y - s.y0) / dy
		return s.x0 + t*(s.x1-s.x0)
	}
	xTop, xBot := xAt(yTop), xAt(yBot)
	minX, maxX := xTop, xBot
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	width := len(winding)

	if maxX < 0 {
		full := (yBot - yTop) * s.sign
		for i := range winding {
			winding[i] += full
		}
		return
	}
	if minX-float64(xOrigin) >= float64(width) {
		return
	}

	xStart := int(minX) - xOrigin
	if xStart < 0 {
		xStart = 0
	}
	xEnd := int(maxX) - xOrigin + 2
	if xEnd > width {
		xEnd = width
	}

	acc := 0.0
	if minX < 0 {
		// Portion of the edge left of the origin contributes to every
		// visible pixel via the offscreen-left rule.
		acc = (yBot - yTop) * s.sign * offscreenFraction(s, xOrigin)
	}
	for i := xStart; i < xEnd; i++ {
		pxLeft := float64(xOrigin + i)
		pxRight := pxLeft + 1
		var yLeft, yRight float64
		if s.x1 == s.x0 {
			// A vertical edge crosses only the pixel column that holds it.
			yLeft, yRight = yTop, yTop
			if s.x0 >= pxLeft && s.x0 < pxRight {
				yRight = yBot
			}
		} else {
			yLeft = clampF(edgeYAt(s, pxLeft), yTop, yBot)
			yRight = clampF(edgeYAt(s, pxRight), yTop, yBot)
		}
		h := yRight - yLeft
		if h < 0 {
			h = -h
		}
		xLeftY := edgeXAt(s, yLeft)
		xRightY := edgeXAt(s, yRight)
		area := 0.5 * h * (2*pxRight - xLeftY - xRightY)
		winding[i] += area*s.sign + acc
		acc += h * s.sign
	}
	for i := xEnd; i < width; i++ {
		winding[i] += acc
	}
}

func edgeYAt(s segment, x float64) float64 {
	dx := s.x1 - s.x0
	if dx == 0 {
		return s.y0
	}
	t := (x - s.x0) / dx
	return s.y0 + t*(s.y1-s.y0)
}

func edgeXAt(s segment, y float64) float64 {
	dy := s.y1 - s.y0
	if dy == 0 {
		return s.x0
	}
	t := (y - s.y0) / dy
	return s.x0 + t*(s.x1-s.x0)
}

func offscreenFraction(s segment, xOrigin int) float64 {
	if s.x0 >= float64(xOrigin) && s.x1 >= float64(xOrigin) {
		return 0
	}
	return 1
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
