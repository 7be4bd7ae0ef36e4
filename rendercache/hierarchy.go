package rendercache

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vectype/core/bitmap"
	"github.com/vectype/core/cache"
	icache "github.com/vectype/core/internal/cache"
	"github.com/vectype/core/fixed"
	"github.com/vectype/core/outline"
	"github.com/vectype/core/shaper"
	"github.com/vectype/core/transform"
)

// ErrFontNotFound is returned when the font source cannot resolve a
// font key at all (no fallback face either).
var ErrFontNotFound = errors.New("rendercache: font not found")

// ErrGlyphNotFound is returned when no face of a font maps the
// requested character.
var ErrGlyphNotFound = errors.New("rendercache: glyph not found")

// Face is the hierarchy's contract with the font loader collaborator:
// given a glyph index, size, and hinting mode, produce an outline in
// 26.6 fixed point plus its metrics. Font file parsing and discovery
// live behind this interface, outside the rendering core.
type Face interface {
	// GlyphIndex maps a rune through the face's charmaps, falling back
	// through alternate charmaps before reporting failure.
	GlyphIndex(r rune) (uint32, bool)
	// GlyphOutline loads one glyph's outline at the given size.
	GlyphOutline(glyphIndex uint32, size fixed.Pos26_6, hinting int) (*outline.Store, GlyphMetrics, error)
	// Metrics returns the face-wide ascent and descent at the given size.
	Metrics(size fixed.Pos26_6) (ascent, descent float64)
	// ShaperFace adapts this face for the shaping collaborator.
	ShaperFace() shaper.Face
}

// FontSource opens fonts for the font cache. Implementations wrap the
// platform's font database; face 0 is the primary selection and later
// faces are fallbacks tried in order for missing glyphs.
type FontSource interface {
	OpenFont(key FontKey) ([]Face, error)
}

// CachedFont is the font cache's value: the opened face list.
type CachedFont struct {
	Faces []Face
}

// CachedOutline is the outline cache's value: the outline itself, the
// glyph metrics recorded at load time, and a process-unique identity
// token downstream bitmap keys embed. Valid is false for entries that
// failed to load or violated outline invariants; they stay cached so
// the failure is not retried every frame.
type CachedOutline struct {
	Outline *outline.Store
	Metrics GlyphMetrics
	Valid   bool

	// Token is this entry's identity in bitmap cache keys and border
	// outline keys.
	Token uint64

	// key retains the entry's own key so holders can release it;
	// sourceKey, set on border outlines, is the owning reference to the
	// source outline released when this entry is destroyed.
	key       OutlineKey
	sourceKey *OutlineKey
}

// Key returns the outline's cache key, for IncRef/DecRef bookkeeping.
func (o *CachedOutline) Key() OutlineKey { return o.key }

// Size accounts one entry unit: the outline cache is bounded by entry
// count, not bytes.
func (o *CachedOutline) Size() int { return 1 }

// Composite is the composite cache's value: the merged glyph, border,
// and shadow bitmaps for one same-filter run, plus the component bitmap
// keys the entry holds references on.
type Composite struct {
	Glyph  *bitmap.Bitmap
	Border *bitmap.Bitmap
	Shadow *bitmap.Bitmap

	components []transform.Key
}

// Size sums the component bitmaps' accounted bytes.
func (c *Composite) Size() int {
	n := 64
	for _, b := range []*bitmap.Bitmap{c.Glyph, c.Border, c.Shadow} {
		if b != nil {
			n += b.Size()
		}
	}
	return n
}

// Limits configures the hierarchy's per-cache bounds.
type Limits struct {
	// FontEntries bounds the font cache by open font count.
	FontEntries int
	// OutlineEntries bounds the outline cache by entry count.
	OutlineEntries int
	// MetricsEntries bounds the glyph-metrics cache by entry count.
	MetricsEntries int
	// BitmapBytes bounds the bitmap cache by accounted bytes.
	BitmapBytes int
	// CompositeBytes bounds the composite cache by accounted bytes.
	CompositeBytes int
}

// DefaultLimits returns the stock bounds: 128 MiB of glyph bitmaps,
// 42 MiB of composites, outlines and fonts bounded by entry count.
func DefaultLimits() Limits {
	return Limits{
		FontEntries:    64,
		OutlineEntries: 4096,
		MetricsEntries: 32768,
		BitmapBytes:    128 << 20,
		CompositeBytes: 42 << 20,
	}
}

// Hierarchy owns the five render caches and the identity token counter
// outline entries draw from. One Hierarchy belongs to one renderer
// instance; per the concurrency model, render calls through it are
// serialized by the caller.
type Hierarchy struct {
	Fonts      *cache.RefCache[FontKey, *CachedFont]
	Outlines   *cache.RefCache[OutlineKey, *CachedOutline]
	Metrics    *icache.Cache[MetricsKey, GlyphMetrics]
	Bitmaps    *cache.RefCache[transform.Key, *bitmap.Bitmap]
	Composites *cache.RefCache[CompositeKey, *Composite]

	source FontSource
	tokens atomic.Uint64

	// tokenKeys maps an outline's identity token back to its cache key
	// so the bitmap destructor can release its outline reference.
	tokenMu   sync.Mutex
	tokenKeys map[uint64]OutlineKey
}

// NewHierarchy builds the cache hierarchy over a font source.
func NewHierarchy(source FontSource, limits Limits) *Hierarchy {
	h := &Hierarchy{
		Fonts:      cache.New[FontKey, *CachedFont](limits.FontEntries, hashFontKey),
		Outlines:   cache.New[OutlineKey, *CachedOutline](limits.OutlineEntries, hashOutlineKey),
		Metrics:    icache.New[MetricsKey, GlyphMetrics](limits.MetricsEntries),
		Bitmaps:    cache.New[transform.Key, *bitmap.Bitmap](limits.BitmapBytes, hashBitmapKey),
		Composites: cache.New[CompositeKey, *Composite](limits.CompositeBytes, hashCompositeKey),
		source:     source,
		tokenKeys:  make(map[uint64]OutlineKey),
	}

	// Ownership edges of the cache pointer graph: destroying an entry
	// releases the references it holds on entries below it.
	h.Outlines.SetDestructor(func(k OutlineKey, v *CachedOutline) {
		h.tokenMu.Lock()
		delete(h.tokenKeys, v.Token)
		h.tokenMu.Unlock()
		if k.Kind == OutlineBorder && v.sourceKey != nil {
			h.Outlines.DecRef(*v.sourceKey)
		}
	})
	h.Bitmaps.SetDestructor(func(k transform.Key, _ *bitmap.Bitmap) {
		if ok, found := h.outlineKeyFor(k.OutlineToken); found {
			h.Outlines.DecRef(ok)
		}
	})
	h.Composites.SetDestructor(func(_ CompositeKey, v *Composite) {
		for _, bk := range v.components {
			h.Bitmaps.DecRef(bk)
		}
	})
	return h
}

// BeginFrame trims every cache back to its configured bound. Called at
// the start of each frame, before any lookups; entries still referenced
// by live frames survive until released.
func (h *Hierarchy) BeginFrame() {
	h.Fonts.Cut()
	h.Outlines.Cut()
	h.Bitmaps.Cut()
	h.Composites.Cut()
}

// GetFont opens (or returns the cached) font for key.
func (h *Hierarchy) GetFont(key FontKey) (*CachedFont, error) {
	f, err := h.Fonts.Get(key, func() (*CachedFont, error) {
		faces, err := h.source.OpenFont(key)
		if err != nil || len(faces) == 0 {
			return nil, ErrFontNotFound
		}
		return &CachedFont{Faces: faces}, nil
	})
	if err != nil {
		return nil, ErrFontNotFound
	}
	return f, nil
}

// nextToken issues a process-unique outline identity token and records
// its key for the bitmap destructor's reverse lookup.
func (h *Hierarchy) nextToken(key OutlineKey) uint64 {
	t := h.tokens.Add(1)
	h.tokenMu.Lock()
	h.tokenKeys[t] = key
	h.tokenMu.Unlock()
	return t
}

func (h *Hierarchy) outlineKeyFor(token uint64) (OutlineKey, bool) {
	h.tokenMu.Lock()
	k, ok := h.tokenKeys[token]
	h.tokenMu.Unlock()
	return k, ok
}
