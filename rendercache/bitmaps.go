package rendercache

import (
	"github.com/vectype/core/bitmap"
	"github.com/vectype/core/fixed"
	"github.com/vectype/core/outline"
	"github.com/vectype/core/raster"
	"github.com/vectype/core/transform"
)

// GetBitmap looks up (or renders) the coverage bitmap for one outline
// under one transform. The bitmap entry holds a reference on its
// outline; the returned key is what composite keys embed.
func (h *Hierarchy) GetBitmap(o *CachedOutline, m outline.Matrix3D, order raster.TileOrder, offsetHint *[2]int32, scratch *raster.Scratch) (*bitmap.Bitmap, transform.Key, error) {
	key, _, err := transform.Quantize(o.Outline, m, o.Token, offsetHint)
	if err != nil {
		return nil, transform.Key{}, err
	}
	bmp, err := h.Bitmaps.Get(key, func() (*bitmap.Bitmap, error) {
		res, err := transform.Render(o.Outline, m, o.Token, order, offsetHint, scratch)
		if err != nil {
			return nil, err
		}
		h.Outlines.IncRef(o.key)
		return &bitmap.Bitmap{
			Width:  res.Bitmap.Width,
			Height: res.Bitmap.Height,
			Stride: res.Bitmap.Stride,
			X:      res.X,
			Y:      res.Y,
			Pix:    res.Bitmap.Pix,
		}, nil
	})
	if err != nil {
		return nil, transform.Key{}, err
	}
	return bmp, key, nil
}

// CompositeComponent is one bitmap feeding a composite: the rendered
// bitmap, its cache key (for the composite's owning references), and
// whether it belongs to the border layer.
type CompositeComponent struct {
	Bitmap *bitmap.Bitmap
	Key    transform.Key
	Border bool
}

// GetComposite looks up (or assembles) the merged glyph+border+shadow
// bitmaps for one same-filter run. The composite holds references on
// every component bitmap; emitted images in turn hold references on the
// composite, chaining frame lifetime back to the pixel data.
func (h *Hierarchy) GetComposite(filter FilterDesc, components []CompositeComponent) (*Composite, CompositeKey, error) {
	keys := make([]transform.Key, len(components))
	for i, c := range components {
		keys[i] = c.Key
	}
	key := NewCompositeKey(filter, keys)
	comp, err := h.Composites.Get(key, func() (*Composite, error) {
		c := assembleComposite(filter, components)
		for _, bk := range keys {
			h.Bitmaps.IncRef(bk)
		}
		c.components = keys
		return c, nil
	})
	if err != nil {
		return nil, CompositeKey{}, err
	}
	return comp, key, nil
}

// assembleComposite merges the run's glyph bitmaps (and border bitmaps,
// if any) into single co-located bitmaps, then derives the shadow layer
// and applies the run's filters.
func assembleComposite(filter FilterDesc, components []CompositeComponent) *Composite {
	var glyphs, borders []*bitmap.Bitmap
	for _, c := range components {
		if c.Bitmap == nil {
			continue
		}
		if c.Border {
			borders = append(borders, c.Bitmap)
		} else {
			glyphs = append(glyphs, c.Bitmap)
		}
	}

	out := &Composite{
		Glyph:  mergeBitmaps(glyphs),
		Border: mergeBitmaps(borders),
	}

	// Filters apply to whichever layers exist. The shadow is cut from
	// the border when there is one (the border encloses the glyph), else
	// from the glyph itself.
	for _, layer := range []*bitmap.Bitmap{out.Glyph, out.Border} {
		if layer == nil {
			continue
		}
		if filter.BE > 0 {
			bitmap.BoxBlur(layer, int(filter.BE))
		}
		if filter.BlurIndex > 0 {
			r := BlurRadius(filter.BlurIndex)
			bitmap.CascadeGaussian(layer, r, r)
		}
	}

	if filter.Flags&FilterShadow != 0 {
		src := out.Border
		if src == nil {
			src = out.Glyph
		}
		if src != nil {
			shadow := src.Clone()
			shadow.X += int32(filter.ShadowX >> 6)
			shadow.Y += int32(filter.ShadowY >> 6)
			sub := bitmap.Shift(shadow, fixed.Pos26_6(filter.ShadowX&63), fixed.Pos26_6(filter.ShadowY&63))
			out.Shadow = sub
		}
	}
	return out
}

// mergeBitmaps unions a run's bitmaps into one, expanded to cover every
// component's rectangle. Returns nil for an empty list; a single
// bitmap is cloned so the filter passes never write through to the
// bitmap cache's entry.
func mergeBitmaps(list []*bitmap.Bitmap) *bitmap.Bitmap {
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0].Clone()
	}
	x0, y0 := list[0].X, list[0].Y
	x1 := x0 + int32(list[0].Width)
	y1 := y0 + int32(list[0].Height)
	for _, b := range list[1:] {
		if b.X < x0 {
			x0 = b.X
		}
		if b.Y < y0 {
			y0 = b.Y
		}
		if b.X+int32(b.Width) > x1 {
			x1 = b.X + int32(b.Width)
		}
		if b.Y+int32(b.Height) > y1 {
			y1 = b.Y + int32(b.Height)
		}
	}
	merged := bitmap.New(int(x1-x0), int(y1-y0), x0, y0)
	for _, b := range list {
		bitmap.Add(merged, b)
	}
	return merged
}
