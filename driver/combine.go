package driver

import (
	"github.com/vectype/core/ass"
	"github.com/vectype/core/bitmap"
	"github.com/vectype/core/fixed"
	"github.com/vectype/core/layout"
	"github.com/vectype/core/outline"
	"github.com/vectype/core/rendercache"
	"github.com/vectype/core/tags"
	"github.com/vectype/core/transform"
)

// perspectiveDistance is the virtual camera distance for \frx/\fry
// rotation: 20000 in 26.6 units, i.e. 312.5 pixels.
const perspectiveDistance = 312.5

// groupKey decides which consecutive glyphs aggregate into one
// composite: everything that changes the composite's pixels or its
// emitted colors splits the group.
type groupKey struct {
	filter      rendercache.FilterDesc
	colors      [4]ass.Color
	borderStyle ass.BorderStyle

	karaokeStart int64
	karaokeDur   int64
	karaokeKind  tags.KaraokeKind
}

// glyphGroup is one composite-to-be: a run of glyph records sharing a
// group key, plus their script-space horizontal span for karaoke
// splitting.
type glyphGroup struct {
	key        groupKey
	glyphs     []int
	spanX0     float64
	spanX1     float64
	frzDegrees float64
}

// combine renders every glyph's bitmaps, aggregates same-filter runs
// into composites, applies vector/rectangle clips, and emits the
// event's images in shadow, border, glyph order.
func (r *Renderer) combine(glyphs []glyphInfo, lines []layout.Line, es tags.EventState, geom eventGeometry, relTime int64, playW float64, style ass.Style) ([]Image, []rendercache.CompositeKey, bool) {
	fadeAlpha := uint8(0)
	if es.Fade != nil {
		fadeAlpha = es.Fade.AlphaAt(relTime)
	}
	if fadeAlpha == 255 {
		// Fully faded out: nothing to draw, but the event still
		// occupies its collision rect.
		return nil, nil, true
	}

	clip, clipOK := r.resolveClip(es.Clip, geom)
	if !clipOK {
		// Empty \clip drawing: the event's glyphs silently render
		// nothing.
		return nil, nil, false
	}

	// Styles with an unset or unknown border style default to the
	// outline+shadow form.
	borderStyle := style.BorderStyle
	if borderStyle != ass.BorderOpaqueBox && borderStyle != ass.BorderBand {
		borderStyle = ass.BorderOutline
	}

	groups := r.groupGlyphs(glyphs, borderStyle, geom)

	type renderedGroup struct {
		comp *rendercache.Composite
		g    glyphGroup
	}
	var rendered []renderedGroup
	var comps []rendercache.CompositeKey

	for _, grp := range groups {
		components := r.renderGroup(glyphs, grp, geom, lines, playW, borderStyle)
		if len(components) == 0 {
			continue
		}
		comp, key, err := r.caches.GetComposite(grp.key.filter, components)
		if err != nil {
			continue
		}
		comps = append(comps, key)
		rendered = append(rendered, renderedGroup{comp: comp, g: grp})
	}

	// Emission: all shadows, then all borders, then all glyph fills,
	// each clipped against the event clip.
	var images []Image
	emit := func(b *bitmap.Bitmap, color ass.Color, typ ImageType) {
		if b == nil || b.Width == 0 || b.Height == 0 {
			return
		}
		b = r.clipBitmap(b, clip)
		if b == nil {
			return
		}
		images = append(images, Image{
			Bitmap: b,
			DstX:   b.X,
			DstY:   b.Y,
			Color:  fadeColor(color, fadeAlpha).Packed(),
			Type:   typ,
		})
	}

	for _, rg := range rendered {
		if rg.g.key.filter.Flags&rendercache.FilterShadow != 0 {
			emit(rg.comp.Shadow, rg.g.key.colors[3], ImageShadow)
		}
	}
	for _, rg := range rendered {
		if rg.comp.Border == nil {
			continue
		}
		if rg.g.key.karaokeKind == tags.KaraokeOutline && relTime <= rg.g.key.karaokeStart {
			// \ko: the border stays hidden until the syllable's time.
			continue
		}
		emit(rg.comp.Border, rg.g.key.colors[2], ImageOutline)
	}
	for _, rg := range rendered {
		r.emitGlyphLayer(rg.comp.Glyph, rg.g, relTime, geom, emit)
	}

	return images, comps, true
}

// emitGlyphLayer emits a group's glyph fill, splitting it between the
// primary and secondary colors at the karaoke sweep position.
func (r *Renderer) emitGlyphLayer(b *bitmap.Bitmap, g glyphGroup, relTime int64, geom eventGeometry, emit func(*bitmap.Bitmap, ass.Color, ImageType)) {
	if b == nil {
		return
	}
	primary, secondary := g.key.colors[0], g.key.colors[1]
	f := karaokeFraction(g.key, relTime)
	if f >= 1 {
		emit(b, primary, ImageCharacter)
		return
	}
	if f <= 0 {
		if g.key.karaokeKind == tags.KaraokeNone || g.key.karaokeKind == tags.KaraokeOutline {
			emit(b, primary, ImageCharacter)
		} else {
			emit(b, secondary, ImageCharacter)
		}
		return
	}

	// The split runs at the time-interpolated x within the group's
	// span; upside-down glyphs (frz in the 90..270 range) fill in the
	// reverse direction.
	reversed := isUpsideDown(g.frzDegrees)
	frac := f
	if reversed {
		frac = 1 - f
	}
	splitX := int32((g.spanX0 + (g.spanX1-g.spanX0)*frac) * geom.scaleX)
	left, right := splitBitmap(b, splitX)
	if reversed {
		emit(left, secondary, ImageCharacter)
		emit(right, primary, ImageCharacter)
	} else {
		emit(left, primary, ImageCharacter)
		emit(right, secondary, ImageCharacter)
	}
}

// karaokeFraction returns how much of the syllable is highlighted at
// relTime: snap flips the whole syllable once its time has begun,
// sweep interpolates across the duration.
func karaokeFraction(k groupKey, relTime int64) float64 {
	switch k.karaokeKind {
	case tags.KaraokeNone, tags.KaraokeOutline:
		return 1
	case tags.KaraokeSnap:
		if relTime > k.karaokeStart {
			return 1
		}
		return 0
	default:
		if k.karaokeDur <= 0 {
			if relTime > k.karaokeStart {
				return 1
			}
			return 0
		}
		f := float64(relTime-k.karaokeStart) / float64(k.karaokeDur)
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		return f
	}
}

func isUpsideDown(frz float64) bool {
	a := frz
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return a > 90 && a < 270
}

// groupGlyphs splits the glyph array into maximal runs sharing a group
// key. Skipped and invalid glyphs break no groups; they are simply not
// rendered.
func (r *Renderer) groupGlyphs(glyphs []glyphInfo, borderStyle ass.BorderStyle, geom eventGeometry) []glyphGroup {
	var groups []glyphGroup
	for i := range glyphs {
		g := &glyphs[i]
		if g.skip || !g.valid {
			continue
		}
		key := r.groupKeyFor(g, borderStyle, geom)
		if n := len(groups); n > 0 && groups[n-1].key == key &&
			lastIndex(groups[n-1].glyphs)+1 == i {
			grp := &groups[n-1]
			grp.glyphs = append(grp.glyphs, i)
			if g.x+g.advance > grp.spanX1 {
				grp.spanX1 = g.x + g.advance
			}
			continue
		}
		groups = append(groups, glyphGroup{
			key:        key,
			glyphs:     []int{i},
			spanX0:     g.x,
			spanX1:     g.x + g.advance,
			frzDegrees: g.state.FrZ,
		})
	}
	return groups
}

func lastIndex(s []int) int {
	return s[len(s)-1]
}

func (r *Renderer) groupKeyFor(g *glyphInfo, borderStyle ass.BorderStyle, geom eventGeometry) groupKey {
	st := g.state
	hasBorder := st.BorderX > 0 || st.BorderY > 0 || borderStyle != ass.BorderOutline
	hasShadow := st.ShadowX != 0 || st.ShadowY != 0

	var flags uint8
	if hasBorder {
		flags |= rendercache.FilterBorder
	}
	if hasShadow {
		flags |= rendercache.FilterShadow
	}
	if borderStyle == ass.BorderOpaqueBox || borderStyle == ass.BorderBand {
		flags |= rendercache.FilterOpaqueBox
	}

	// Blur radii and shadow offsets quantize in device pixels so the
	// same script values at different frame sizes key separately.
	blurScale := (geom.scaleX + geom.scaleY) / 2

	return groupKey{
		filter: rendercache.FilterDesc{
			Flags:     flags,
			BE:        int32(st.BE),
			BlurIndex: rendercache.QuantizeBlur(st.Blur * blurScale),
			ShadowX:   int32(st.ShadowX * geom.scaleX * 64),
			ShadowY:   int32(st.ShadowY * geom.scaleY * 64),
		},
		colors:       st.Colors,
		borderStyle:  borderStyle,
		karaokeStart: st.KaraokeStart,
		karaokeDur:   st.KaraokeDur,
		karaokeKind:  st.KaraokeKind,
	}
}

// renderGroup renders one group's glyph and border bitmaps through the
// bitmap cache.
func (r *Renderer) renderGroup(glyphs []glyphInfo, grp glyphGroup, geom eventGeometry, lines []layout.Line, playW float64, borderStyle ass.BorderStyle) []rendercache.CompositeComponent {
	var components []rendercache.CompositeComponent
	for _, gi := range grp.glyphs {
		g := &glyphs[gi]
		m := r.glyphMatrix(g, geom)
		hint := subpixelHint(g, geom)

		bmp, key, err := r.caches.GetBitmap(g.outline, m, r.tileOrder, &hint, &r.scratch)
		if err != nil {
			// Perspective guard or unprojectable glyph: skipped.
			continue
		}
		components = append(components, rendercache.CompositeComponent{Bitmap: bmp, Key: key})

		switch {
		case borderStyle == ass.BorderOutline && (g.state.BorderX > 0 || g.state.BorderY > 0):
			bo, err := r.caches.GetBorderOutline(g.outline,
				fixed.FromFloat(g.state.BorderX), fixed.FromFloat(g.state.BorderY))
			if err != nil || !bo.Valid {
				continue
			}
			bb, bk, err := r.caches.GetBitmap(bo, m, r.tileOrder, &hint, &r.scratch)
			if err != nil {
				continue
			}
			components = append(components, rendercache.CompositeComponent{Bitmap: bb, Key: bk, Border: true})

		case borderStyle == ass.BorderOpaqueBox || borderStyle == ass.BorderBand:
			comp, ok := r.boxComponent(g, geom, lines, playW, borderStyle)
			if ok {
				components = append(components, comp)
			}
		}
	}
	return components
}

// boxComponent renders the opaque box (style 3) or full-width band
// (style 4) behind one glyph.
func (r *Renderer) boxComponent(g *glyphInfo, geom eventGeometry, lines []layout.Line, playW float64, borderStyle ass.BorderStyle) (rendercache.CompositeComponent, bool) {
	st := g.state
	var w, h, offX float64
	switch borderStyle {
	case ass.BorderBand:
		w = playW
		l := lines[g.line]
		h = l.Height()/max1(st.ScaleY) + 2*st.BorderY
		offX = -g.x / max1(st.ScaleX)
	default:
		w = g.advance/max1(st.ScaleX) + 2*st.BorderX
		h = (g.ascent+g.descent)/max1(st.ScaleY) + 2*st.BorderY
		offX = -st.BorderX
	}
	bo, err := r.caches.GetBoxOutline(fixed.FromFloat(w), fixed.FromFloat(h))
	if err != nil || !bo.Valid {
		return rendercache.CompositeComponent{}, false
	}
	// The box outline's origin is its top-left; shift it to enclose
	// the glyph cell including the border margin.
	offY := -(g.ascent/max1(st.ScaleY) + st.BorderY)
	m := r.glyphMatrix(g, geom)
	pre := outline.Identity3D()
	pre.M[0][2], pre.M[1][2] = offX, offY
	m = m.Multiply(pre)
	hint := subpixelHint(g, geom)
	bb, bk, err := r.caches.GetBitmap(bo, m, r.tileOrder, &hint, &r.scratch)
	if err != nil {
		return rendercache.CompositeComponent{}, false
	}
	return rendercache.CompositeComponent{Bitmap: bb, Key: bk, Border: true}, true
}

func max1(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

// glyphMatrix composes one glyph's full transform: outline units are
// script pixels at the glyph's font size, scaled to device space with
// \fscx/\fscy and shear, rotated about the event's rotation origin with
// perspective, then translated to the glyph's device pen position.
func (r *Renderer) glyphMatrix(g *glyphInfo, geom eventGeometry) outline.Matrix3D {
	st := g.state
	sx := st.ScaleX * geom.scaleX
	sy := st.ScaleY * geom.scaleY
	gx := g.x * geom.scaleX
	gy := g.y * geom.scaleY

	// Position relative to the rotation origin; the origin's
	// translation is re-applied after the homogeneous divide so
	// rotation pivots on it.
	m := transform.Compose(
		sx, sy,
		st.FaX, st.FaY,
		gx-geom.orgX, gy-geom.orgY,
		degToRad(-st.FrX), degToRad(st.FrY), degToRad(-st.FrZ),
		perspectiveDistance,
	)
	t := outline.Identity3D()
	t.M[0][2], t.M[1][2] = geom.orgX, geom.orgY
	return t.Multiply(m)
}

func subpixelHint(g *glyphInfo, geom eventGeometry) [2]int32 {
	return [2]int32{
		int32(g.x * geom.scaleX * 8),
		int32(g.y * geom.scaleY * 8),
	}
}

// resolveClip prepares the event's clip for per-image application. The
// bool result is false only for the silent-no-output case: a positive
// vector clip whose drawing is empty.
type resolvedClip struct {
	active  bool
	inverse bool

	// rect bounds in device pixels, for ClipRect.
	isRect         bool
	x0, y0, x1, y1 int32

	// mask is the rasterized drawing for vector clips.
	mask *bitmap.Bitmap
}

func (r *Renderer) resolveClip(c *tags.Clip, geom eventGeometry) (resolvedClip, bool) {
	if c == nil {
		return resolvedClip{}, true
	}
	if c.Kind == tags.ClipRect {
		return resolvedClip{
			active: true, inverse: c.Inverse, isRect: true,
			x0: int32(c.X0 * geom.scaleX), y0: int32(c.Y0 * geom.scaleY),
			x1: int32(c.X1*geom.scaleX + 0.5), y1: int32(c.Y1*geom.scaleY + 0.5),
		}, true
	}

	key := rendercache.DrawingKey(c.Drawing, c.Scale)
	o, err := r.caches.GetDrawingOutline(key)
	if err != nil || !o.Valid {
		if c.Inverse {
			// Empty inverse clip cuts nothing.
			return resolvedClip{}, true
		}
		return resolvedClip{}, false
	}
	m := outline.Identity3D()
	m.M[0][0], m.M[1][1] = geom.scaleX, geom.scaleY
	mask, _, err := r.caches.GetBitmap(o, m, r.tileOrder, nil, &r.scratch)
	if err != nil {
		if c.Inverse {
			return resolvedClip{}, true
		}
		return resolvedClip{}, false
	}
	return resolvedClip{active: true, inverse: c.Inverse, mask: mask}, true
}

// clipBitmap applies the event clip to one emitted bitmap, cloning it
// first so cached composite pixels stay untouched. Returns nil when
// the clip leaves nothing.
func (r *Renderer) clipBitmap(b *bitmap.Bitmap, clip resolvedClip) *bitmap.Bitmap {
	if !clip.active {
		return b
	}
	out := b.Clone()
	if clip.isRect {
		applyRectClip(out, clip)
	} else if clip.inverse {
		bitmap.IMul(out, clip.mask)
	} else {
		applyPositiveMask(out, clip.mask)
	}
	return out
}

// applyRectClip zeroes the bitmap outside (or, inverted, inside) the
// clip rectangle.
func applyRectClip(b *bitmap.Bitmap, clip resolvedClip) {
	for y := 0; y < b.Height; y++ {
		devY := b.Y + int32(y)
		rowInY := devY >= clip.y0 && devY < clip.y1
		row := b.Pix[y*b.Stride : y*b.Stride+b.Width]
		for x := range row {
			devX := b.X + int32(x)
			inside := rowInY && devX >= clip.x0 && devX < clip.x1
			if inside == clip.inverse {
				row[x] = 0
			}
		}
	}
}

// applyPositiveMask multiplies dst by the mask's coverage, zeroing
// everything the mask does not reach.
func applyPositiveMask(dst, mask *bitmap.Bitmap) {
	for y := 0; y < dst.Height; y++ {
		devY := dst.Y + int32(y)
		my := devY - mask.Y
		row := dst.Pix[y*dst.Stride : y*dst.Stride+dst.Width]
		for x := range row {
			devX := dst.X + int32(x)
			mx := devX - mask.X
			if my < 0 || my >= int32(mask.Height) || mx < 0 || mx >= int32(mask.Width) {
				row[x] = 0
				continue
			}
			mv := mask.Pix[int(my)*mask.Stride+int(mx)]
			row[x] = uint8((int(row[x])*int(mv) + 255) >> 8)
		}
	}
}

// splitBitmap cuts a bitmap into left and right halves at a device x
// coordinate. Either half may be nil when the split falls outside the
// bitmap.
func splitBitmap(b *bitmap.Bitmap, devX int32) (left, right *bitmap.Bitmap) {
	cut := int(devX - b.X)
	if cut <= 0 {
		return nil, b
	}
	if cut >= b.Width {
		return b, nil
	}
	left = bitmap.New(cut, b.Height, b.X, b.Y)
	right = bitmap.New(b.Width-cut, b.Height, b.X+int32(cut), b.Y)
	for y := 0; y < b.Height; y++ {
		src := b.Pix[y*b.Stride : y*b.Stride+b.Width]
		copy(left.Pix[y*left.Stride:], src[:cut])
		copy(right.Pix[y*right.Stride:], src[cut:])
	}
	return left, right
}

// fadeColor folds a \fade transparency into a color's alpha channel.
func fadeColor(c ass.Color, fade uint8) ass.Color {
	if fade == 0 {
		return c
	}
	a := int(c.A) + (255-int(c.A))*int(fade)/255
	if a > 255 {
		a = 255
	}
	c.A = uint8(a)
	return c
}
