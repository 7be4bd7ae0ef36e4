package shaper

import (
	"bytes"
	"sync"

	gotextfont "github.com/go-text/typesetting/font"
)

// Face is the shaper's font contract: raw OpenType font data plus the
// parsed fields BuiltinShaper needs for advance lookups. Loading the
// actual file from disk or a font database is the embedder's job (font
// discovery and file I/O are out of this engine's scope); Face is the
// narrow surface the shaper needs once a font has been chosen.
type Face interface {
	// Data returns the raw OpenType font bytes.
	Data() []byte
	// GlyphIndex maps a rune to a glyph index using the font's cmap.
	GlyphIndex(r rune) (uint16, bool)
	// GlyphAdvance returns the horizontal advance of gid at the given
	// point size, in pixels.
	GlyphAdvance(gid uint16, size float64) float64
}

// GoTextFontCache parses and caches go-text/typesetting Font objects
// keyed by Face identity, so repeated Shape calls against the same
// loaded font don't re-parse its tables. font.Font is read-only and
// safe for concurrent use once parsed; a fresh font.Face (not
// concurrency-safe) is built per Shape call from the cached Font.
//
// Owned by one shaper.GoTextShaper instance, which is in turn owned by
// the render driver instance — no package-level cache, so every
// pipeline is reachable from the driver's root object.
type GoTextFontCache struct {
	mu    sync.RWMutex
	fonts map[Face]*gotextfont.Font
}

func newGoTextFontCache() *GoTextFontCache {
	return &GoTextFontCache{fonts: make(map[Face]*gotextfont.Font)}
}

func (c *GoTextFontCache) get(face Face) (*gotextfont.Font, error) {
	c.mu.RLock()
	if f, ok := c.fonts[face]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.fonts[face]; ok {
		return f, nil
	}
	ft, err := gotextfont.ParseTTF(bytes.NewReader(face.Data()))
	if err != nil {
		return nil, err
	}
	c.fonts[face] = ft.Font
	return ft.Font, nil
}
