package rendercache

import (
	"github.com/vectype/core/fixed"
	"github.com/vectype/core/outline"
)

// strokeEps is the stroker tolerance used for border outlines, in 26.6
// units (1/64 pixel).
const strokeEps fixed.Pos26_6 = 16

// GetGlyphOutline looks up (or loads) one glyph's outline. A load
// failure or invariant violation yields a cached invalid entry so the
// failure is not retried every frame; callers skip invalid outlines,
// surfacing the glyph as missing.
func (h *Hierarchy) GetGlyphOutline(face Face, key OutlineKey) (*CachedOutline, error) {
	return h.Outlines.Get(key, func() (*CachedOutline, error) {
		o := &CachedOutline{key: key, Token: h.nextToken(key)}
		src, metrics, err := face.GlyphOutline(key.GlyphIndex, key.Size, key.Hinting)
		if err != nil || src == nil {
			return o, nil
		}
		if err := src.CheckInvariants(); err != nil {
			return o, nil
		}
		o.Outline = src
		o.Metrics = metrics
		o.Valid = true
		return o, nil
	})
}

// GetDrawingOutline looks up (or parses) a vector drawing's outline.
// An empty or degenerate drawing caches as invalid; an event clipped
// by an empty drawing silently renders nothing.
func (h *Hierarchy) GetDrawingOutline(key OutlineKey) (*CachedOutline, error) {
	return h.Outlines.Get(key, func() (*CachedOutline, error) {
		o := &CachedOutline{key: key, Token: h.nextToken(key)}
		src := outline.ParseDrawing(key.Text, key.Scale)
		if len(src.Points) == 0 {
			return o, nil
		}
		o.Outline = src
		o.Valid = true
		return o, nil
	})
}

// GetBorderOutline looks up (or strokes) the border outline of src at
// the given half-widths. The border entry holds a reference on its
// source outline for as long as it lives.
func (h *Hierarchy) GetBorderOutline(src *CachedOutline, bordX, bordY fixed.Pos26_6) (*CachedOutline, error) {
	key := BorderKey(src.Token, bordX, bordY)
	return h.Outlines.Get(key, func() (*CachedOutline, error) {
		o := &CachedOutline{key: key, Token: h.nextToken(key)}
		if !src.Valid {
			return o, nil
		}
		outer, inner := outline.Stroke(src.Outline, bordX, bordY, strokeEps)
		merged := mergeOutlines(outer, inner)
		if len(merged.Points) == 0 {
			return o, nil
		}
		srcKey := src.key
		h.Outlines.IncRef(srcKey)
		o.sourceKey = &srcKey
		o.Outline = merged
		o.Metrics = src.Metrics
		o.Valid = true
		return o, nil
	})
}

// GetBoxOutline looks up (or builds) a filled rectangle outline of the
// given size, used by the opaque-box border style.
func (h *Hierarchy) GetBoxOutline(w, hgt fixed.Pos26_6) (*CachedOutline, error) {
	key := BoxKey(w, hgt)
	return h.Outlines.Get(key, func() (*CachedOutline, error) {
		o := &CachedOutline{key: key, Token: h.nextToken(key)}
		// The closing edge back to the first point is implicit; a
		// rectangle is four points and three explicit segments.
		box := outline.New(4, 3)
		_ = box.AddPoint(outline.Point{X: 0, Y: 0})
		_ = box.AddPoint(outline.Point{X: w, Y: 0})
		_ = box.AddSegment(outline.TagLine)
		_ = box.AddPoint(outline.Point{X: w, Y: hgt})
		_ = box.AddSegment(outline.TagLine)
		_ = box.AddPoint(outline.Point{X: 0, Y: hgt})
		_ = box.AddSegment(outline.TagLine)
		box.CloseContour()
		o.Outline = box
		o.Valid = true
		return o, nil
	})
}

// GetMetrics returns a glyph's advance/ascent/descent, loading through
// the face on a miss.
func (h *Hierarchy) GetMetrics(face Face, key MetricsKey) GlyphMetrics {
	if m, ok := h.Metrics.Get(key); ok {
		return m
	}
	gk := GlyphKey(key.Font, key.FaceIndex, key.GlyphIndex, key.Size, 0)
	o, err := h.GetGlyphOutline(face, gk)
	var m GlyphMetrics
	if err == nil && o.Valid {
		m = o.Metrics
	}
	if err == nil {
		h.Outlines.DecRef(gk)
	}
	h.Metrics.Set(key, m)
	return m
}

// mergeOutlines concatenates the stroker's outer and inner outlines
// into one store, so the non-zero winding rule fills the ring between
// them.
func mergeOutlines(a, b *outline.Store) *outline.Store {
	out := a.Clone()
	out.Points = append(out.Points, b.Points...)
	out.Segments = append(out.Segments, b.Segments...)
	return out
}
