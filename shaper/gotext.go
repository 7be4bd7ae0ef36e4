package shaper

import (
	"sync"

	"github.com/go-text/typesetting/di"
	gotextfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	gotextfixed "golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"
)

// GoTextShaper provides HarfBuzz-level shaping via go-text/typesetting,
// with bidi run reordering via golang.org/x/text/unicode/bidi: ligature
// substitution, kerning, contextual alternates, and right-to-left and
// complex scripts (Arabic, Hebrew, Devanagari, Thai, ...).
//
// A HarfbuzzShaper carries mutable per-call buffer state and is not
// safe for concurrent use; instances are pooled since render calls
// within one driver are already serialized (§5) but a driver may hold
// several in flight across goroutines in an embedder that shards by
// instance.
type GoTextShaper struct {
	pool  sync.Pool
	fonts *GoTextFontCache
}

// NewGoTextShaper constructs a shaper with its own font cache. Owned by
// whichever driver.Renderer instance creates it; never a package-level
// singleton.
func NewGoTextShaper() *GoTextShaper {
	return &GoTextShaper{
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
		fonts: newGoTextFontCache(),
	}
}

func (s *GoTextShaper) Shape(run Run) (Output, error) {
	if run.Text == "" || run.Face == nil {
		return Output{}, nil
	}

	goFont, err := s.fonts.get(run.Face)
	if err != nil {
		return Output{}, ErrShapeFailed
	}
	goFace := gotextfont.NewFace(goFont)

	runs := bidiRuns(run.Text, run.Direction)

	var glyphs []GlyphInfo
	visualOrder := make([]int, 0, len(runs))
	clusterBase := 0
	for _, br := range runs {
		runes := []rune(run.Text[br.start:br.end])
		dir := di.DirectionLTR
		if br.rtl {
			dir = di.DirectionRTL
		}
		input := shaping.Input{
			Text:      runes,
			RunStart:  0,
			RunEnd:    len(runes),
			Direction: dir,
			Face:      goFace,
			Size:      floatToFixed(run.Size),
			Script:    detectScript(runes),
			Language:  language.NewLanguage("en"),
		}

		hb := s.pool.Get().(*shaping.HarfbuzzShaper)
		out := hb.Shape(input)
		s.pool.Put(hb)

		start := len(glyphs)
		glyphs = append(glyphs, convertGlyphs(out.Glyphs, clusterBase, br.rtl)...)
		for i := start; i < len(glyphs); i++ {
			visualOrder = append(visualOrder, i)
		}
		clusterBase += br.end - br.start
	}

	return Output{Glyphs: glyphs, VisualOrder: visualOrder}, nil
}

type bidiRun struct {
	start, end int
	rtl        bool
}

// bidiRuns splits text into directional runs using the Unicode
// Bidirectional Algorithm, falling back to a single run in the run's
// stated direction if the paragraph analyzer rejects the input (e.g.
// unpaired surrogate-adjacent bytes in malformed UTF-8).
func bidiRuns(text string, dir Direction) []bidiRun {
	var p bidi.Paragraph
	opt := bidi.DefaultDirection(bidi.LeftToRight)
	if dir == DirectionRTL {
		opt = bidi.DefaultDirection(bidi.RightToLeft)
	}
	if _, err := p.SetString(text, opt); err != nil {
		return []bidiRun{{start: 0, end: len(text), rtl: dir == DirectionRTL}}
	}
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return []bidiRun{{start: 0, end: len(text), rtl: dir == DirectionRTL}}
	}
	runs := make([]bidiRun, ordering.NumRuns())
	for i := 0; i < ordering.NumRuns(); i++ {
		r := ordering.Run(i)
		start, end := r.Pos()
		runs[i] = bidiRun{start: start, end: end, rtl: r.Direction() == bidi.RightToLeft}
	}
	return runs
}

func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func floatToFixed(size float64) gotextfixed.Int26_6 {
	return gotextfixed.Int26_6(size * 64)
}

func fixedToFloat(v gotextfixed.Int26_6) float64 {
	return float64(v) / 64
}

func convertGlyphs(glyphs []shaping.Glyph, clusterBase int, rtl bool) []GlyphInfo {
	if len(glyphs) == 0 {
		return nil
	}
	out := make([]GlyphInfo, len(glyphs))
	var x, y float64
	for i, g := range glyphs {
		xOff := fixedToFloat(g.XOffset)
		yOff := fixedToFloat(g.YOffset)
		out[i] = GlyphInfo{
			GlyphIndex: uint32(g.GlyphID),
			Cluster:    clusterBase + g.TextIndex(),
			XOffset:    x + xOff,
			YOffset:    y + yOff,
		}
		adv := fixedToFloat(g.Advance)
		out[i].XAdvance = adv
		x += adv
	}
	if rtl {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
