// Package rendercache assembles the five content-addressed caches the
// render driver works through: font, outline, glyph metrics, bitmap, and
// composite. The four caches whose values participate in the ownership
// graph (font, outline, bitmap, composite) sit on the ref-counted
// cache.RefCache engine; the glyph-metrics cache has no downstream
// owners and uses the simpler internal LRU cache.
package rendercache

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/vectype/core/fixed"
	"github.com/vectype/core/transform"
)

// FontKey identifies one opened font: a family plus the style bits the
// font selector resolved.
type FontKey struct {
	Family   string
	Bold     bool
	Italic   bool
	Vertical bool
}

func hashFontKey(k FontKey) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.Family))
	var bits [1]byte
	if k.Bold {
		bits[0] |= 1
	}
	if k.Italic {
		bits[0] |= 2
	}
	if k.Vertical {
		bits[0] |= 4
	}
	_, _ = h.Write(bits[:])
	return h.Sum64()
}

// OutlineKind tags the four flavors of outline key.
type OutlineKind uint8

const (
	// OutlineGlyph keys a glyph outline loaded from a font face.
	OutlineGlyph OutlineKind = iota
	// OutlineDrawing keys a parsed vector drawing.
	OutlineDrawing
	// OutlineBorder keys the stroked border of another cached outline.
	OutlineBorder
	// OutlineBox keys a filled rectangle (opaque-box border style).
	OutlineBox
)

// OutlineKey is the outline cache's discriminated key: one comparable
// struct standing in for a tagged union. The Kind field dispatches
// which of the remaining fields are significant, and Go's native map
// equality compares the whole image, which is harmless because unused
// fields are always zero for a given kind.
type OutlineKey struct {
	Kind OutlineKind

	// Glyph fields.
	Font       FontKey
	FaceIndex  int
	GlyphIndex uint32
	Size       fixed.Pos26_6
	Hinting    int

	// Drawing fields.
	Text  string
	Scale int

	// Border fields: the source outline's identity token plus the
	// stroke half-widths.
	Source       uint64
	BordX, BordY fixed.Pos26_6

	// Box fields.
	W, H fixed.Pos26_6
}

// GlyphKey builds an outline key for a font glyph.
func GlyphKey(font FontKey, faceIndex int, glyphIndex uint32, size fixed.Pos26_6, hinting int) OutlineKey {
	return OutlineKey{
		Kind: OutlineGlyph, Font: font, FaceIndex: faceIndex,
		GlyphIndex: glyphIndex, Size: size, Hinting: hinting,
	}
}

// DrawingKey builds an outline key for a vector drawing string.
func DrawingKey(text string, scale int) OutlineKey {
	return OutlineKey{Kind: OutlineDrawing, Text: text, Scale: scale}
}

// BorderKey builds an outline key for the stroked border of the cached
// outline identified by sourceToken.
func BorderKey(sourceToken uint64, bordX, bordY fixed.Pos26_6) OutlineKey {
	return OutlineKey{Kind: OutlineBorder, Source: sourceToken, BordX: bordX, BordY: bordY}
}

// BoxKey builds an outline key for an opaque box of the given size.
func BoxKey(w, h fixed.Pos26_6) OutlineKey {
	return OutlineKey{Kind: OutlineBox, W: w, H: h}
}

func hashOutlineKey(k OutlineKey) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	buf[0] = byte(k.Kind)
	_, _ = h.Write(buf[:1])
	switch k.Kind {
	case OutlineGlyph:
		_, _ = h.Write([]byte(k.Font.Family))
		binary.LittleEndian.PutUint32(buf[:4], uint32(k.FaceIndex))
		binary.LittleEndian.PutUint32(buf[4:], k.GlyphIndex)
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(uint32(k.Size))|uint64(k.Hinting)<<32)
		_, _ = h.Write(buf[:])
	case OutlineDrawing:
		_, _ = h.Write([]byte(k.Text))
		binary.LittleEndian.PutUint32(buf[:4], uint32(k.Scale))
		_, _ = h.Write(buf[:4])
	case OutlineBorder:
		binary.LittleEndian.PutUint64(buf[:], k.Source)
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(uint32(k.BordX))|uint64(uint32(k.BordY))<<32)
		_, _ = h.Write(buf[:])
	case OutlineBox:
		binary.LittleEndian.PutUint64(buf[:], uint64(uint32(k.W))|uint64(uint32(k.H))<<32)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// MetricsKey identifies one glyph's advance/ascent/descent at a size.
type MetricsKey struct {
	Font       FontKey
	FaceIndex  int
	Size       fixed.Pos26_6
	GlyphIndex uint32
}

// GlyphMetrics is the metrics cache's value.
type GlyphMetrics struct {
	Advance float64
	Ascent  float64
	Descent float64
}

func hashBitmapKey(k transform.Key) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, row := range [3][3]int32{k.Mx, k.My, k.Mz} {
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf[:4], uint32(v))
			_, _ = h.Write(buf[:4])
		}
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(k.SubPixelX))|uint64(uint32(k.SubPixelY))<<32)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], k.OutlineToken)
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// blurStep is the quantization step for the blur cache index: each
// step is a constant relative change in radius, so neighboring radii
// alias to the same cache key.
const blurStep = 1.0 / 256

// QuantizeBlur maps a blur radius (already multiplied by the frame's
// scale factor) to its cache index: round(log1p(r*scale) / step).
func QuantizeBlur(r float64) int32 {
	if r <= 0 {
		return 0
	}
	return int32(math.Round(math.Log1p(r) / blurStep))
}

// BlurRadius inverts QuantizeBlur, reconstructing the exemplar radius
// for a cache index.
func BlurRadius(index int32) float64 {
	if index <= 0 {
		return 0
	}
	return math.Expm1(float64(index) * blurStep)
}

// Filter flag bits.
const (
	// FilterBorder marks composites that include a border bitmap.
	FilterBorder uint8 = 1 << iota
	// FilterShadow marks composites that include a shadow bitmap.
	FilterShadow
	// FilterOpaqueBox marks border style 3 composites.
	FilterOpaqueBox
)

// FilterDesc quantizes one run's filter parameters: every glyph in a
// composite shares these, so the descriptor is part of the composite
// cache key.
type FilterDesc struct {
	Flags     uint8
	BE        int32
	BlurIndex int32
	// ShadowX, ShadowY are the quantized shadow offset in 26.6 units.
	ShadowX, ShadowY int32
}

// CompositeKey is the composite cache's key: the shared filter
// descriptor plus a hash over the ordered list of component bitmap
// keys. The component count disambiguates the (vanishingly unlikely)
// hash collision between lists of different lengths.
type CompositeKey struct {
	Filter      FilterDesc
	BitmapsHash uint64
	NumBitmaps  int
}

// NewCompositeKey hashes the ordered component bitmap keys into a
// composite key.
func NewCompositeKey(filter FilterDesc, bitmaps []transform.Key) CompositeKey {
	h := fnv.New64a()
	var buf [8]byte
	for _, bk := range bitmaps {
		binary.LittleEndian.PutUint64(buf[:], hashBitmapKey(bk))
		_, _ = h.Write(buf[:])
	}
	return CompositeKey{Filter: filter, BitmapsHash: h.Sum64(), NumBitmaps: len(bitmaps)}
}

func hashCompositeKey(k CompositeKey) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], k.BitmapsHash)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:4], uint32(k.NumBitmaps))
	buf[4] = k.Filter.Flags
	_, _ = h.Write(buf[:5])
	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(k.Filter.BE))|uint64(uint32(k.Filter.BlurIndex))<<32)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(k.Filter.ShadowX))|uint64(uint32(k.Filter.ShadowY))<<32)
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
