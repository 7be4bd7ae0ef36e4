package shaper

import "testing"

type stubFace struct{}

func (stubFace) Data() []byte { return nil }
func (stubFace) GlyphIndex(r rune) (uint16, bool) {
	if r == 'x' {
		return 0, false
	}
	return uint16(r), true
}
func (stubFace) GlyphAdvance(gid uint16, size float64) float64 { return size / 2 }

func TestBuiltinShaperAdvances(t *testing.T) {
	s := NewBuiltinShaper()
	out, err := s.Shape(Run{Text: "ab", Face: stubFace{}, Size: 10})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(out.Glyphs) != 2 {
		t.Fatalf("got %d glyphs, want 2", len(out.Glyphs))
	}
	if out.Glyphs[0].XOffset != 0 || out.Glyphs[1].XOffset != 5 {
		t.Fatalf("pen offsets = %v, %v", out.Glyphs[0].XOffset, out.Glyphs[1].XOffset)
	}
	if out.Glyphs[0].GlyphIndex != 'a' {
		t.Fatalf("glyph index = %d", out.Glyphs[0].GlyphIndex)
	}
	if len(out.VisualOrder) != 2 || out.VisualOrder[0] != 0 {
		t.Fatalf("visual order = %v", out.VisualOrder)
	}
}

func TestBuiltinShaperMissingGlyph(t *testing.T) {
	s := NewBuiltinShaper()
	out, err := s.Shape(Run{Text: "x", Face: stubFace{}, Size: 10})
	if err != nil {
		t.Fatalf("Shape must not fail on missing glyphs: %v", err)
	}
	if out.Glyphs[0].GlyphIndex != 0 {
		t.Fatalf("missing rune shaped to glyph %d, want 0 (.notdef)", out.Glyphs[0].GlyphIndex)
	}
}

func TestBuiltinShaperRTLReverses(t *testing.T) {
	s := NewBuiltinShaper()
	out, _ := s.Shape(Run{Text: "ab", Face: stubFace{}, Size: 10, Direction: DirectionRTL})
	if out.Glyphs[0].GlyphIndex != 'b' {
		t.Fatalf("RTL first glyph = %q", rune(out.Glyphs[0].GlyphIndex))
	}
}

func TestBuiltinShaperEmptyRun(t *testing.T) {
	s := NewBuiltinShaper()
	out, err := s.Shape(Run{Text: ""})
	if err != nil || len(out.Glyphs) != 0 {
		t.Fatalf("empty run: %v, %d glyphs", err, len(out.Glyphs))
	}
}
