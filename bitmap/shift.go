package bitmap

import "github.com/vectype/core/fixed"

// Shift applies a 2-tap bilinear sub-pixel shift by (shiftX, shiftY),
// both 26.6 fixed-point values in [0, 64). It processes rows left to
// right, keeping a per-column "shifted from above" scratch so the
// combined horizontal+vertical shift is a single sweep rather than two
// passes: each output pixel is
//
//	p + (above*shiftY >> 6) + (left*shiftX >> 6) - outgoing
//
// where "outgoing" is the contribution the same source pixel already
// made to the previous output pixel, keeping the filter a true 2-tap
// convolution instead of double-counting mass.
func Shift(b *Bitmap, shiftX, shiftY fixed.Pos26_6) *Bitmap {
	sx := int(shiftX) & 63
	sy := int(shiftY) & 63
	out := New(b.Width, b.Height, b.X, b.Y)
	if sx == 0 && sy == 0 {
		copy(out.Pix, b.Pix)
		return out
	}

	above := make([]int, b.Width)
	for x := 0; x < b.Width; x++ {
		above[x] = 0
	}

	for y := 0; y < b.Height; y++ {
		var left int
		nextAbove := make([]int, b.Width)
		for x := 0; x < b.Width; x++ {
			p := int(b.Pix[y*b.Stride+x])
			fromAbove := (above[x] * sy) >> 6
			fromLeft := (left * sx) >> 6
			outgoing := (p * sy) >> 6
			outgoingLeft := (p * sx) >> 6
			v := p - outgoing - outgoingLeft + fromAbove + fromLeft
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out.Pix[y*out.Stride+x] = uint8(v)
			nextAbove[x] = p
			left = p
		}
		above = nextAbove
	}
	return out
}
