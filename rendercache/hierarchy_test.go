package rendercache

import (
	"testing"

	"github.com/vectype/core/bitmap"
	"github.com/vectype/core/fixed"
	"github.com/vectype/core/outline"
	"github.com/vectype/core/shaper"
	"github.com/vectype/core/transform"
)

// fakeShaperFace satisfies shaper.Face with fixed metrics.
type fakeShaperFace struct{}

func (fakeShaperFace) Data() []byte { return nil }
func (fakeShaperFace) GlyphIndex(r rune) (uint16, bool) {
	if r == ' ' {
		return 2, true
	}
	return 1, true
}
func (fakeShaperFace) GlyphAdvance(gid uint16, size float64) float64 {
	return size * 0.6
}

// fakeFace loads every glyph as a solid square the size of the em box.
type fakeFace struct {
	loads int
}

func (f *fakeFace) GlyphIndex(r rune) (uint32, bool) {
	gid, ok := fakeShaperFace{}.GlyphIndex(r)
	return uint32(gid), ok
}

func (f *fakeFace) GlyphOutline(glyphIndex uint32, size fixed.Pos26_6, hinting int) (*outline.Store, GlyphMetrics, error) {
	f.loads++
	w := fixed.Pos26_6(float64(size) * 0.6)
	s := outline.New(4, 3)
	_ = s.AddPoint(outline.Point{X: 0, Y: -size})
	_ = s.AddPoint(outline.Point{X: w, Y: -size})
	_ = s.AddSegment(outline.TagLine)
	_ = s.AddPoint(outline.Point{X: w, Y: 0})
	_ = s.AddSegment(outline.TagLine)
	_ = s.AddPoint(outline.Point{X: 0, Y: 0})
	_ = s.AddSegment(outline.TagLine)
	s.CloseContour()
	m := GlyphMetrics{
		Advance: float64(w) / 64,
		Ascent:  size.ToFloat() * 0.8,
		Descent: size.ToFloat() * 0.2,
	}
	return s, m, nil
}

func (f *fakeFace) Metrics(size fixed.Pos26_6) (float64, float64) {
	return size.ToFloat() * 0.8, size.ToFloat() * 0.2
}

func (f *fakeFace) ShaperFace() shaper.Face { return fakeShaperFace{} }

// fakeSource serves the same face for every key.
type fakeSource struct {
	face  *fakeFace
	opens int
}

func (s *fakeSource) OpenFont(key FontKey) ([]Face, error) {
	s.opens++
	return []Face{s.face}, nil
}

func newTestHierarchy() (*Hierarchy, *fakeSource) {
	src := &fakeSource{face: &fakeFace{}}
	return NewHierarchy(src, DefaultLimits()), src
}

func TestFontCacheOpensOnce(t *testing.T) {
	h, src := newTestHierarchy()
	key := FontKey{Family: "Sans"}
	if _, err := h.GetFont(key); err != nil {
		t.Fatalf("GetFont: %v", err)
	}
	if _, err := h.GetFont(key); err != nil {
		t.Fatalf("GetFont: %v", err)
	}
	if src.opens != 1 {
		t.Fatalf("OpenFont called %d times, want 1", src.opens)
	}
}

func TestGlyphOutlineCached(t *testing.T) {
	h, src := newTestHierarchy()
	key := GlyphKey(FontKey{Family: "Sans"}, 0, 1, fixed.FromFloat(40), 0)
	o1, err := h.GetGlyphOutline(src.face, key)
	if err != nil {
		t.Fatalf("GetGlyphOutline: %v", err)
	}
	o2, err := h.GetGlyphOutline(src.face, key)
	if err != nil {
		t.Fatalf("GetGlyphOutline: %v", err)
	}
	if src.face.loads != 1 {
		t.Fatalf("face loaded %d times, want 1", src.face.loads)
	}
	if o1.Token != o2.Token {
		t.Fatalf("tokens differ on cache hit: %d vs %d", o1.Token, o2.Token)
	}
	if !o1.Valid || o1.Outline == nil {
		t.Fatalf("outline entry invalid: %+v", o1)
	}
}

func TestGetMetricsCachesPerGlyph(t *testing.T) {
	h, src := newTestHierarchy()
	key := MetricsKey{Font: FontKey{Family: "Sans"}, Size: fixed.FromFloat(40), GlyphIndex: 1}
	m1 := h.GetMetrics(src.face, key)
	m2 := h.GetMetrics(src.face, key)
	if m1 != m2 {
		t.Fatalf("metrics differ across lookups: %+v vs %+v", m1, m2)
	}
	if src.face.loads != 1 {
		t.Fatalf("face loaded %d times, want 1 (second lookup cached)", src.face.loads)
	}
	if m1.Advance != 24 || m1.Ascent != 32 || m1.Descent != 8 {
		t.Fatalf("metrics = %+v, want advance 24, ascent 32, descent 8", m1)
	}
}

func TestOutlineKeyKinds(t *testing.T) {
	// The four key flavors must never collide in the map or the hash.
	keys := []OutlineKey{
		GlyphKey(FontKey{Family: "A"}, 0, 1, 64, 0),
		DrawingKey("m 0 0 l 1 0 1 1", 1),
		BorderKey(1, 64, 64),
		BoxKey(64, 64),
	}
	seen := map[OutlineKey]bool{}
	hashes := map[uint64]bool{}
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("duplicate key %+v", k)
		}
		seen[k] = true
		hashes[hashOutlineKey(k)] = true
	}
	if len(hashes) != len(keys) {
		t.Fatalf("hash collision across key kinds: %d distinct hashes", len(hashes))
	}
}

func TestBorderOutlineReferencesSource(t *testing.T) {
	h, src := newTestHierarchy()
	key := GlyphKey(FontKey{Family: "Sans"}, 0, 1, fixed.FromFloat(40), 0)
	o, err := h.GetGlyphOutline(src.face, key)
	if err != nil {
		t.Fatalf("GetGlyphOutline: %v", err)
	}
	b, err := h.GetBorderOutline(o, fixed.FromFloat(2), fixed.FromFloat(2))
	if err != nil {
		t.Fatalf("GetBorderOutline: %v", err)
	}
	if !b.Valid || b.Outline == nil {
		t.Fatal("border outline invalid")
	}
	if b.Outline.NumContours() < 2 {
		t.Fatalf("border has %d contours, want outer+inner ring", b.Outline.NumContours())
	}
	if b.Token == o.Token {
		t.Fatal("border shares the source outline's token")
	}
}

func TestDrawingOutlineEmptyIsInvalid(t *testing.T) {
	h, _ := newTestHierarchy()
	o, err := h.GetDrawingOutline(DrawingKey("", 1))
	if err != nil {
		t.Fatalf("GetDrawingOutline: %v", err)
	}
	if o.Valid {
		t.Fatal("empty drawing cached as valid")
	}
	o, err = h.GetDrawingOutline(DrawingKey("m 0 0 l 100 0 100 100 0 100", 1))
	if err != nil {
		t.Fatalf("GetDrawingOutline: %v", err)
	}
	if !o.Valid {
		t.Fatal("square drawing cached as invalid")
	}
}

func TestBoxOutlineShape(t *testing.T) {
	h, _ := newTestHierarchy()
	o, err := h.GetBoxOutline(fixed.FromFloat(10), fixed.FromFloat(4))
	if err != nil {
		t.Fatalf("GetBoxOutline: %v", err)
	}
	if !o.Valid {
		t.Fatal("box outline invalid")
	}
	if err := o.Outline.CheckInvariants(); err != nil {
		t.Fatalf("box outline violates invariants: %v", err)
	}
	dx, dy := o.Outline.Bounds()
	if dx != 320 {
		t.Fatalf("box half-width = %d, want 320", dx)
	}
	if dy != 128 {
		t.Fatalf("box half-height = %d, want 128", dy)
	}
}

func TestGetBitmapCachesByQuantizedKey(t *testing.T) {
	h, src := newTestHierarchy()
	key := GlyphKey(FontKey{Family: "Sans"}, 0, 1, fixed.FromFloat(40), 0)
	o, err := h.GetGlyphOutline(src.face, key)
	if err != nil {
		t.Fatalf("GetGlyphOutline: %v", err)
	}
	m := outline.Identity3D()
	m.M[0][2], m.M[1][2] = 100, 100

	b1, k1, err := h.GetBitmap(o, m, 16, nil, nil)
	if err != nil {
		t.Fatalf("GetBitmap: %v", err)
	}
	b2, k2, err := h.GetBitmap(o, m, 16, nil, nil)
	if err != nil {
		t.Fatalf("GetBitmap: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("keys differ for identical transforms")
	}
	if b1 != b2 {
		t.Fatal("identical transform missed the bitmap cache")
	}
	if b1.Width <= 0 || b1.Height <= 0 {
		t.Fatalf("degenerate bitmap %dx%d", b1.Width, b1.Height)
	}

	stats := h.Bitmaps.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("bitmap cache stats = %+v, want 1 hit 1 miss", stats)
	}
}

func TestQuantizeBlurAliasesNeighbors(t *testing.T) {
	if QuantizeBlur(0) != 0 {
		t.Fatal("zero radius must map to index 0")
	}
	// Nearby radii share an index; distant radii do not.
	if QuantizeBlur(10) != QuantizeBlur(10.001) {
		t.Fatal("adjacent radii did not alias")
	}
	if QuantizeBlur(1) == QuantizeBlur(2) {
		t.Fatal("distinct radii collapsed to one index")
	}
	// Round trip stays within one quantization step's relative error.
	for _, r := range []float64{0.5, 1, 4, 16, 64} {
		back := BlurRadius(QuantizeBlur(r))
		if back < r*0.99 || back > r*1.01 {
			t.Fatalf("BlurRadius(QuantizeBlur(%v)) = %v", r, back)
		}
	}
}

func TestCompositeAssembly(t *testing.T) {
	h, _ := newTestHierarchy()

	mk := func(x, y int32, fill uint8) CompositeComponent {
		b := bitmap.New(4, 4, x, y)
		for i := range b.Pix {
			b.Pix[i] = fill
		}
		return CompositeComponent{
			Bitmap: b,
			Key:    transform.Key{OutlineToken: uint64(x)<<32 | uint64(uint32(y))},
		}
	}

	filter := FilterDesc{Flags: FilterShadow, ShadowX: 2 * 64, ShadowY: 64}
	comp, key, err := h.GetComposite(filter, []CompositeComponent{mk(0, 0, 100), mk(4, 0, 100)})
	if err != nil {
		t.Fatalf("GetComposite: %v", err)
	}
	if comp.Glyph == nil {
		t.Fatal("no merged glyph bitmap")
	}
	if comp.Glyph.Width != 8 || comp.Glyph.Height != 4 {
		t.Fatalf("merged size = %dx%d, want 8x4", comp.Glyph.Width, comp.Glyph.Height)
	}
	if comp.Shadow == nil {
		t.Fatal("shadow flag set but no shadow bitmap")
	}
	if comp.Shadow.X != comp.Glyph.X+2 || comp.Shadow.Y != comp.Glyph.Y+1 {
		t.Fatalf("shadow offset = (%d, %d) relative to glyph (%d, %d)",
			comp.Shadow.X, comp.Shadow.Y, comp.Glyph.X, comp.Glyph.Y)
	}

	// Same components and filter hit the same entry.
	comp2, key2, err := h.GetComposite(filter, []CompositeComponent{mk(0, 0, 100), mk(4, 0, 100)})
	if err != nil {
		t.Fatalf("GetComposite: %v", err)
	}
	if key != key2 || comp != comp2 {
		t.Fatal("identical composite request missed the cache")
	}
}

func TestCompositeKeyOrderMatters(t *testing.T) {
	a := transform.Key{OutlineToken: 1}
	b := transform.Key{OutlineToken: 2}
	k1 := NewCompositeKey(FilterDesc{}, []transform.Key{a, b})
	k2 := NewCompositeKey(FilterDesc{}, []transform.Key{b, a})
	if k1 == k2 {
		t.Fatal("composite key ignores component order")
	}
}
