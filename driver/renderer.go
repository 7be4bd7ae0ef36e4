package driver

import (
	"sort"

	"github.com/vectype/core/ass"
	"github.com/vectype/core/layout"
	"github.com/vectype/core/raster"
	"github.com/vectype/core/rendercache"
	"github.com/vectype/core/shaper"
)

// defaultMaxRuns caps the number of shape runs per event. The reference
// engine fixes this at 50; events that split into more runs than the
// cap are skipped, so very mixed-script events degrade to nothing
// rather than shaping partially.
const defaultMaxRuns = 50

// Renderer is the root object of the rendering core: it owns the cache
// hierarchy, the shaping collaborator, and the rasterizer scratch, and
// exposes the single frame-rendering entry point. A Renderer is not
// safe for concurrent use; callers serialize RenderFrame calls or shard
// by instance.
type Renderer struct {
	caches  *rendercache.Hierarchy
	shaper  shaper.Shaper
	scratch raster.Scratch

	tileOrder raster.TileOrder
	maxRuns   int

	frameW, frameH int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithShaper replaces the default advance-only shaper.
func WithShaper(s shaper.Shaper) Option {
	return func(r *Renderer) { r.shaper = s }
}

// WithTileOrder selects the rasterizer tile size (16 or 32).
func WithTileOrder(order raster.TileOrder) Option {
	return func(r *Renderer) { r.tileOrder = order }
}

// WithCacheLimits overrides the default cache bounds.
func WithCacheLimits(source rendercache.FontSource, limits rendercache.Limits) Option {
	return func(r *Renderer) { r.caches = rendercache.NewHierarchy(source, limits) }
}

// WithMaxRuns overrides the per-event shape-run cap.
func WithMaxRuns(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxRuns = n
		}
	}
}

// NewRenderer builds a renderer over a font source. The default shaper
// is the builtin advance-only one; embedders with go-text loaded pass
// WithShaper(shaper.NewGoTextShaper()).
func NewRenderer(source rendercache.FontSource, opts ...Option) *Renderer {
	r := &Renderer{
		caches:    rendercache.NewHierarchy(source, rendercache.DefaultLimits()),
		shaper:    shaper.NewBuiltinShaper(),
		tileOrder: raster.Tile16,
		maxRuns:   defaultMaxRuns,
		frameW:    640,
		frameH:    480,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Caches exposes the hierarchy for tooling and tests.
func (r *Renderer) Caches() *rendercache.Hierarchy {
	return r.caches
}

// SetFrameSize sets the target frame size in pixels.
func (r *Renderer) SetFrameSize(w, h int) {
	if w > 0 {
		r.frameW = w
	}
	if h > 0 {
		r.frameH = h
	}
}

// RenderFrame renders every event active at the given timestamp into an
// ordered image list. The caller owns one reference on the returned
// frame and releases it with Unref.
func (r *Renderer) RenderFrame(track *ass.Track, now int64) *Frame {
	r.caches.BeginFrame()

	type rendered struct {
		images     []Image
		rect       layout.EventRect
		composites []rendercache.CompositeKey
	}

	active := make([]int, 0, 8)
	for i, ev := range track.Events {
		if ev.Active(now) {
			active = append(active, i)
		}
	}
	sort.SliceStable(active, func(a, b int) bool {
		ea, eb := track.Events[active[a]], track.Events[active[b]]
		if ea.Layer != eb.Layer {
			return ea.Layer < eb.Layer
		}
		return ea.ReadOrder < eb.ReadOrder
	})

	var outs []rendered
	for _, idx := range active {
		ev := track.Events[idx]
		images, rect, comps, ok := r.renderEvent(track, ev, now)
		if !ok {
			continue
		}
		outs = append(outs, rendered{images: images, rect: rect, composites: comps})
	}

	// Collision pass: shift whole events vertically so same-layer
	// events never overlap.
	rects := make([]layout.EventRect, len(outs))
	for i, o := range outs {
		rects[i] = o.rect
	}
	shifts := layout.ResolveCollisions(rects)

	var images []Image
	var composites []rendercache.CompositeKey
	for i, o := range outs {
		dy := int32(shifts[i] + 0.5)
		if shifts[i] < 0 {
			dy = int32(shifts[i] - 0.5)
		}
		for _, img := range o.images {
			img.DstY += dy
			images = append(images, img)
		}
		composites = append(composites, o.composites...)
	}
	return newFrame(r.caches, images, composites)
}
