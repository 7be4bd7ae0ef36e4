package shaper

// BuiltinShaper is an advance-only fallback for callers without a full
// shaping engine: one glyph per rune via the face's cmap, pen advances
// from the face's metrics, no ligatures, kerning, or complex-script
// support. RTL runs are reversed wholesale, which is correct for
// scripts without contextual joining.
//
// BuiltinShaper never fails: unmapped runes shape to glyph 0 (.notdef)
// so missing characters surface as missing glyphs downstream rather
// than aborting the event.
type BuiltinShaper struct{}

// NewBuiltinShaper constructs the fallback shaper.
func NewBuiltinShaper() *BuiltinShaper {
	return &BuiltinShaper{}
}

func (s *BuiltinShaper) Shape(run Run) (Output, error) {
	if run.Text == "" {
		return Output{}, nil
	}
	runes := []rune(run.Text)
	glyphs := make([]GlyphInfo, 0, len(runes))
	var x float64
	cluster := 0
	for _, r := range runes {
		var gid uint16
		if run.Face != nil {
			if g, ok := run.Face.GlyphIndex(r); ok {
				gid = g
			}
		}
		adv := 0.0
		if run.Face != nil {
			adv = run.Face.GlyphAdvance(gid, run.Size)
		}
		glyphs = append(glyphs, GlyphInfo{
			GlyphIndex: uint32(gid),
			Cluster:    cluster,
			XAdvance:   adv,
			XOffset:    x,
		})
		x += adv
		cluster += len(string(r))
	}
	if run.Direction == DirectionRTL {
		for i, j := 0, len(glyphs)-1; i < j; i, j = i+1, j-1 {
			glyphs[i], glyphs[j] = glyphs[j], glyphs[i]
		}
	}
	order := make([]int, len(glyphs))
	for i := range order {
		order[i] = i
	}
	return Output{Glyphs: glyphs, VisualOrder: order}, nil
}
