package driver

import (
	"math"
	"unicode/utf8"

	"github.com/vectype/core/ass"
	"github.com/vectype/core/fixed"
	"github.com/vectype/core/layout"
	"github.com/vectype/core/rendercache"
	"github.com/vectype/core/shaper"
	"github.com/vectype/core/tags"
)

// glyphInfo is the per-glyph working record the event pipeline's passes
// advance: tag state, shaped glyph identity, cached outline, and the
// evolving script-space position.
type glyphInfo struct {
	state   *tags.RenderState
	drawing bool

	fontKey   rendercache.FontKey
	face      rendercache.Face
	faceIndex int
	glyph     uint32
	symbol    rune

	outline *rendercache.CachedOutline

	x, y    float64
	advance float64
	ascent  float64
	descent float64

	whitespace bool
	brk        layout.Break
	skip       bool
	line       int
	valid      bool
}

// eventGeometry carries the script-to-device mapping and the event's
// resolved placement out of the layout phases.
type eventGeometry struct {
	scaleX, scaleY float64

	// orgX, orgY is the rotation origin in device pixels.
	orgX, orgY float64

	// rect is the event's device-space footprint for collision
	// resolution.
	rect layout.EventRect
}

func playRes(track *ass.Track) (float64, float64) {
	w, h := float64(track.PlayResX), float64(track.PlayResY)
	if w <= 0 {
		w = 384
	}
	if h <= 0 {
		h = 288
	}
	return w, h
}

// renderEvent runs the full per-event pipeline and returns the event's
// emitted images and collision rect. ok is false when the event renders
// nothing (shaper failure, no glyphs, empty clip drawing).
func (r *Renderer) renderEvent(track *ass.Track, ev ass.Event, now int64) ([]Image, layout.EventRect, []rendercache.CompositeKey, bool) {
	style := track.StyleFor(ev)
	relTime := now - ev.Start

	// Phase 1: override-tag parse.
	ctx := tags.Context{
		Style: style,
		StyleBy: func(name string) (ass.Style, bool) {
			for _, s := range track.Styles {
				if s.Name == name {
					return s, true
				}
			}
			return ass.Style{}, false
		},
		RelTime:   relTime,
		Duration:  ev.Duration,
		WrapStyle: track.WrapStyle,
	}
	runs, es := tags.Parse(ev.Text, ctx)
	if len(runs) == 0 {
		return nil, layout.EventRect{}, nil, false
	}

	// Phases 2-5: style-run split, shaping, outline lookup, pre-layout.
	glyphs, ok := r.collectGlyphs(runs)
	if !ok || len(glyphs) == 0 {
		return nil, layout.EventRect{}, nil, false
	}

	playW, playH := playRes(track)
	geom := eventGeometry{
		scaleX: float64(r.frameW) / playW,
		scaleY: float64(r.frameH) / playH,
	}

	marginL := float64(pick(ev.MarginL, style.MarginL))
	marginR := float64(pick(ev.MarginR, style.MarginR))
	marginV := float64(pick(ev.MarginV, style.MarginV))
	maxWidth := playW - marginL - marginR
	if maxWidth <= 0 {
		maxWidth = playW
	}

	// Phases 6-8: wrap, trim, measure.
	finalState := runs[len(runs)-1].State
	items := make([]layout.Item, len(glyphs))
	for i, g := range glyphs {
		items[i] = layout.Item{
			Width:      g.advance,
			Ascent:     g.ascent,
			Descent:    g.descent,
			Whitespace: g.whitespace,
			Break:      g.brk,
		}
	}
	lines := layout.Wrap(items, maxWidth, finalState.WrapStyle)
	layout.Trim(items, lines)
	for i := range glyphs {
		glyphs[i].skip = glyphs[i].skip || items[i].Skip
	}

	// Phase 9 (reorder) already happened inside the shaper: glyph
	// sequences come back in visual order per its reorder map.

	// Phases 10-12: shear, align, script-to-device placement.
	alignment := finalState.Alignment
	if alignment < 1 || alignment > 9 {
		alignment = style.Alignment
	}
	halign, valign := ass.HAlign(alignment), ass.VAlign(alignment)

	totalH := 0.0
	maxLineW := 0.0
	for _, l := range lines {
		totalH += l.Height()
		if l.Width > maxLineW {
			maxLineW = l.Width
		}
	}

	// Block origin in script space.
	baseX := marginL
	baseY := 0.0
	switch valign {
	case 1:
		baseY = marginV
	case 0:
		baseY = (playH - totalH) / 2
	default:
		baseY = playH - marginV - totalH
	}

	effect := ass.ParseEffect(ev.Effect)
	positioned := es.Pos != nil || es.Move != nil
	var clipOverride *tags.Clip

	if positioned {
		p := tags.Vec2{}
		if es.Pos != nil {
			p = *es.Pos
		} else {
			p = es.Move.At(relTime)
		}
		switch halign {
		case -1:
			baseX = p.X
		case 0:
			baseX = p.X - maxLineW/2
		default:
			baseX = p.X - maxLineW
		}
		switch valign {
		case 1:
			baseY = p.Y
		case 0:
			baseY = p.Y - totalH/2
		default:
			baseY = p.Y - totalH
		}
	} else if effect.Kind != ass.EffectNone {
		delay := effect.Delay
		if delay < 1 {
			delay = 1
		}
		delta := float64(relTime) / float64(delay)
		switch effect.Kind {
		case ass.EffectScrollUp:
			baseY = playH - delta
			clipOverride = &tags.Clip{Kind: tags.ClipRect, X0: 0, Y0: float64(effect.Y0), X1: playW, Y1: float64(effect.Y1)}
		case ass.EffectScrollDown:
			baseY = -totalH + delta
			clipOverride = &tags.Clip{Kind: tags.ClipRect, X0: 0, Y0: float64(effect.Y0), X1: playW, Y1: float64(effect.Y1)}
		case ass.EffectBannerLR:
			baseX = -maxLineW + delta
		case ass.EffectBannerRL:
			baseX = playW - delta
		}
	}

	// Per-line horizontal justification plus pen assignment; \fay adds
	// a cumulative vertical offset along each line.
	y := baseY
	for li, l := range lines {
		lineX := baseX + layout.JustifyX(l.Width, maxWidth, halign)
		if positioned || effect.Kind == ass.EffectBannerLR || effect.Kind == ass.EffectBannerRL {
			lineX = baseX + layout.JustifyX(l.Width, maxLineW, halign)
		}
		x := lineX
		baseline := y + l.Ascent
		for i := l.Start; i < l.End; i++ {
			g := &glyphs[i]
			g.line = li
			if g.skip {
				continue
			}
			g.x = x
			g.y = baseline + g.state.FaY*(x-lineX) + g.state.BaselineOffset
			x += g.advance
		}
		y += l.Height()
	}

	// Phase 13: rotation origin — \org, else the block's center.
	if es.Org != nil {
		geom.orgX = es.Org.X * geom.scaleX
		geom.orgY = es.Org.Y * geom.scaleY
	} else {
		geom.orgX = (baseX + maxLineW/2) * geom.scaleX
		geom.orgY = (baseY + totalH/2) * geom.scaleY
	}

	geom.rect = layout.EventRect{
		Layer:     ev.Layer,
		ReadOrder: ev.ReadOrder,
		Fixed:     positioned || effect.Kind != ass.EffectNone,
		Top:       baseY * geom.scaleY,
		Height:    totalH * geom.scaleY,
	}
	if valign == -1 {
		geom.rect.Direction = layout.ShiftUp
	}

	if clipOverride != nil && es.Clip == nil {
		es.Clip = clipOverride
	}

	// Phases 14-16: render, combine, clip, emit.
	images, comps, ok := r.combine(glyphs, lines, es, geom, relTime, playW, style)
	if !ok {
		return nil, layout.EventRect{}, nil, false
	}
	return images, geom.rect, comps, true
}

func pick(override, fallback int) int {
	if override != 0 {
		return override
	}
	return fallback
}

// collectGlyphs expands the tag parser's runs into shaped glyph records
// with their outlines resolved: phases 2 (style-run split is the run
// list itself), 3 (shape), 4 (outline lookup), and 5 (pre-layout pen
// advances folded into per-glyph advances).
func (r *Renderer) collectGlyphs(runs []tags.Run) ([]glyphInfo, bool) {
	var glyphs []glyphInfo
	shapeRuns := 0
	for ri := range runs {
		run := &runs[ri]
		brk := layout.Break(run.Break)
		if run.Text == "" {
			if brk != layout.BreakNone {
				// Carrier run for a break with no text: attach the
				// break to a zero-width placeholder.
				glyphs = append(glyphs, glyphInfo{state: &run.State, brk: brk, whitespace: true})
			}
			continue
		}

		if run.State.DrawingScale > 0 {
			g, ok := r.drawingGlyph(run)
			if ok {
				g.brk = brk
				glyphs = append(glyphs, g)
			}
			continue
		}

		shapeRuns++
		if shapeRuns > r.maxRuns {
			// Over the shape-run cap: the whole event is skipped, so
			// very mixed-script events degrade to nothing rather than
			// shaping partially.
			return nil, false
		}

		fontKey := rendercache.FontKey{
			Family: run.State.FontName,
			Bold:   run.State.Bold,
			Italic: run.State.Italic,
		}
		font, err := r.caches.GetFont(fontKey)
		if err != nil {
			// No font at all: every glyph of the run is missing.
			continue
		}
		faces := font.Faces

		out, err := r.shaper.Shape(shaper.Run{
			Text: run.Text,
			Face: faces[0].ShaperFace(),
			Size: run.State.FontSize,
		})
		if err != nil {
			// Shaper failure aborts the event.
			return nil, false
		}

		sizeFixed := fixed.FromFloat(run.State.FontSize)
		faceAscent, faceDescent := faces[0].Metrics(sizeFixed)
		for _, sg := range out.Glyphs {
			symbol := runeAt(run.Text, sg.Cluster)
			faceIdx := 0
			gid := sg.GlyphIndex
			adv := sg.XAdvance
			if gid == 0 {
				// Missing in the primary face: fall back through the
				// remaining faces by charmap lookup.
				faceIdx, gid, adv = fallbackGlyph(faces, symbol, run.State.FontSize)
			}
			// Per-glyph extents come through the metrics cache; glyphs
			// without ink (whitespace) report zero extents and keep the
			// face-wide line metrics instead.
			ascent, descent := faceAscent, faceDescent
			if gid != 0 {
				gm := r.caches.GetMetrics(faces[faceIdx], rendercache.MetricsKey{
					Font:       fontKey,
					FaceIndex:  faceIdx,
					Size:       sizeFixed,
					GlyphIndex: gid,
				})
				if gm.Ascent != 0 || gm.Descent != 0 {
					ascent, descent = gm.Ascent, gm.Descent
				}
			}
			g := glyphInfo{
				state:      &run.State,
				fontKey:    fontKey,
				face:       faces[faceIdx],
				faceIndex:  faceIdx,
				glyph:      gid,
				symbol:     symbol,
				advance:    adv*run.State.ScaleX + run.State.Spacing,
				ascent:     ascent * run.State.ScaleY,
				descent:    descent * run.State.ScaleY,
				whitespace: isWhitespace(symbol),
			}
			if gid != 0 {
				key := rendercache.GlyphKey(fontKey, faceIdx, gid, sizeFixed, 0)
				if o, err := r.caches.GetGlyphOutline(faces[faceIdx], key); err == nil && o.Valid {
					g.outline = o
					g.valid = true
				}
			}
			glyphs = append(glyphs, g)
		}
		if n := len(out.Glyphs); n > 0 {
			// The run's break belongs to its first glyph.
			glyphs[len(glyphs)-n].brk = brk
		}
	}
	return glyphs, true
}

// drawingGlyph turns a \p drawing run into a single glyph record whose
// outline is the parsed drawing and whose advance is its width.
func (r *Renderer) drawingGlyph(run *tags.Run) (glyphInfo, bool) {
	key := rendercache.DrawingKey(run.Text, run.State.DrawingScale)
	o, err := r.caches.GetDrawingOutline(key)
	if err != nil || !o.Valid {
		return glyphInfo{}, false
	}
	dx, dy := o.Outline.Bounds()
	w := 2 * float64(dx) / 64
	h := 2 * float64(dy) / 64
	return glyphInfo{
		state:   &run.State,
		drawing: true,
		outline: o,
		valid:   true,
		advance: w * run.State.ScaleX,
		ascent:  h * run.State.ScaleY,
	}, true
}

func fallbackGlyph(faces []rendercache.Face, symbol rune, size float64) (int, uint32, float64) {
	for i, f := range faces {
		if gid, ok := f.GlyphIndex(symbol); ok && gid != 0 {
			adv := f.ShaperFace().GlyphAdvance(uint16(gid), size)
			return i, gid, adv
		}
	}
	return 0, 0, 0
}

func runeAt(s string, byteOffset int) rune {
	if byteOffset < 0 || byteOffset >= len(s) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s[byteOffset:])
	return r
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\u00a0':
		return true
	}
	return false
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
