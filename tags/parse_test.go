package tags

import (
	"math"
	"testing"

	"github.com/vectype/core/ass"
)

func testStyle() ass.Style {
	return ass.Style{
		Name:            "Default",
		FontName:        "Sans",
		FontSize:        40,
		PrimaryColour:   ass.Color{R: 255, G: 255, B: 255},
		SecondaryColour: ass.Color{R: 255, G: 0, B: 0},
		OutlineColour:   ass.Color{},
		BackColour:      ass.Color{A: 128},
		ScaleX:          100,
		ScaleY:          100,
		Outline:         2,
		Shadow:          1,
		Alignment:       2,
	}
}

func testCtx() Context {
	return Context{Style: testStyle(), Duration: 1000}
}

func TestParsePlainText(t *testing.T) {
	runs, _ := Parse("hello", testCtx())
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Text != "hello" {
		t.Fatalf("text = %q", runs[0].Text)
	}
	if runs[0].State.FontSize != 40 {
		t.Fatalf("FontSize = %v, want style default 40", runs[0].State.FontSize)
	}
}

func TestParseStyleRunSplit(t *testing.T) {
	runs, _ := Parse("{\\b1}one{\\i1}two", testCtx())
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].State.Bold || runs[0].State.Italic {
		t.Fatalf("run 0 state = bold %v italic %v", runs[0].State.Bold, runs[0].State.Italic)
	}
	if !runs[1].State.Bold || !runs[1].State.Italic {
		t.Fatalf("run 1 state = bold %v italic %v", runs[1].State.Bold, runs[1].State.Italic)
	}
}

func TestParseLineBreaks(t *testing.T) {
	runs, _ := Parse("a\\Nb", testCtx())
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Break != BreakNone || runs[1].Break != BreakHard {
		t.Fatalf("breaks = %v, %v", runs[0].Break, runs[1].Break)
	}

	// \n is a space unless wrapping is off.
	runs, _ = Parse("a\\nb", testCtx())
	if len(runs) != 1 || runs[0].Text != "a b" {
		t.Fatalf("soft break under smart wrap: %+v", runs)
	}
	ctx := testCtx()
	ctx.WrapStyle = ass.WrapNone
	runs, _ = Parse("a\\nb", ctx)
	if len(runs) != 2 || runs[1].Break != BreakSoft {
		t.Fatalf("soft break under WrapNone: %+v", runs)
	}
}

func TestParseColors(t *testing.T) {
	runs, _ := Parse("{\\c&H0000FF&}x", testCtx())
	c := runs[0].State.Colors[0]
	if c.R != 255 || c.G != 0 || c.B != 0 {
		t.Fatalf("\\c&H0000FF& = %+v, want pure red (BBGGRR order)", c)
	}

	runs, _ = Parse("{\\alpha&H80&}x", testCtx())
	for i, c := range runs[0].State.Colors {
		if c.A != 0x80 {
			t.Fatalf("color %d alpha = %#x, want 0x80", i, c.A)
		}
	}

	runs, _ = Parse("{\\3a&HFF&}x", testCtx())
	if runs[0].State.Colors[2].A != 0xFF {
		t.Fatalf("\\3a alpha = %#x", runs[0].State.Colors[2].A)
	}
}

func TestParseBorderShadow(t *testing.T) {
	runs, _ := Parse("{\\bord4}x", testCtx())
	if runs[0].State.BorderX != 4 || runs[0].State.BorderY != 4 {
		t.Fatalf("\\bord4 = (%v, %v)", runs[0].State.BorderX, runs[0].State.BorderY)
	}
	runs, _ = Parse("{\\xbord1\\ybord3}x", testCtx())
	if runs[0].State.BorderX != 1 || runs[0].State.BorderY != 3 {
		t.Fatalf("per-axis borders = (%v, %v)", runs[0].State.BorderX, runs[0].State.BorderY)
	}
	// Bare \bord resets to the style value.
	runs, _ = Parse("{\\bord7}a{\\bord}b", testCtx())
	if runs[1].State.BorderX != 2 {
		t.Fatalf("\\bord reset = %v, want style outline 2", runs[1].State.BorderX)
	}
}

func TestParseScalePercent(t *testing.T) {
	runs, _ := Parse("{\\fscx200\\fscy50}x", testCtx())
	if runs[0].State.ScaleX != 2 || runs[0].State.ScaleY != 0.5 {
		t.Fatalf("scales = (%v, %v), want (2, 0.5)", runs[0].State.ScaleX, runs[0].State.ScaleY)
	}
}

func TestParseTagPrefixes(t *testing.T) {
	// \fs must not swallow \fscx, \fr must not swallow \frz.
	runs, _ := Parse("{\\fs20\\frz45}x", testCtx())
	if runs[0].State.FontSize != 20 {
		t.Fatalf("FontSize = %v", runs[0].State.FontSize)
	}
	if runs[0].State.FrZ != 45 {
		t.Fatalf("FrZ = %v", runs[0].State.FrZ)
	}
}

func TestParseKaraokeAccumulation(t *testing.T) {
	runs, _ := Parse("{\\k50}AB{\\k30}CD", testCtx())
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	r0, r1 := runs[0].State, runs[1].State
	if r0.KaraokeStart != 0 || r0.KaraokeDur != 500 || r0.KaraokeKind != KaraokeSnap {
		t.Fatalf("syllable 0 timing = (%d, %d, %v)", r0.KaraokeStart, r0.KaraokeDur, r0.KaraokeKind)
	}
	if r1.KaraokeStart != 500 || r1.KaraokeDur != 300 {
		t.Fatalf("syllable 1 timing = (%d, %d)", r1.KaraokeStart, r1.KaraokeDur)
	}

	runs, _ = Parse("{\\kf100}x", testCtx())
	if runs[0].State.KaraokeKind != KaraokeSweep {
		t.Fatalf("\\kf kind = %v", runs[0].State.KaraokeKind)
	}
	runs, _ = Parse("{\\ko100}x", testCtx())
	if runs[0].State.KaraokeKind != KaraokeOutline {
		t.Fatalf("\\ko kind = %v", runs[0].State.KaraokeKind)
	}
}

func TestParseReset(t *testing.T) {
	runs, _ := Parse("{\\b1\\fs60}a{\\r}b", testCtx())
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[1].State.Bold || runs[1].State.FontSize != 40 {
		t.Fatalf("\\r did not restore style: %+v", runs[1].State)
	}
}

func TestParsePositionFirstWins(t *testing.T) {
	_, es := Parse("{\\pos(10,20)\\pos(30,40)}x", testCtx())
	if es.Pos == nil || es.Pos.X != 10 || es.Pos.Y != 20 {
		t.Fatalf("Pos = %+v, want first \\pos (10, 20)", es.Pos)
	}

	_, es = Parse("{\\move(0,0,100,100)}x", testCtx())
	if es.Move == nil {
		t.Fatal("Move not parsed")
	}
	mid := es.Move.At(500)
	if mid.X != 50 || mid.Y != 50 {
		t.Fatalf("Move.At(midpoint) = %+v, want (50, 50)", mid)
	}
}

func TestParseFadeSwapsReversedBounds(t *testing.T) {
	_, es := Parse("{\\fade(255,0,255,500,100,600,900)}x", testCtx())
	if es.Fade == nil {
		t.Fatal("Fade not parsed")
	}
	if es.Fade.T1 != 100 || es.Fade.T2 != 500 {
		t.Fatalf("reversed ramp bounds = (%d, %d), want swapped (100, 500)", es.Fade.T1, es.Fade.T2)
	}
}

func TestParseFad(t *testing.T) {
	_, es := Parse("{\\fad(200,300)}x", testCtx())
	if es.Fade == nil {
		t.Fatal("Fade not parsed")
	}
	f := es.Fade
	if f.T2 != 200 || f.T3 != 700 || f.T4 != 1000 {
		t.Fatalf("\\fad ramps = %+v", f)
	}
	if f.AlphaAt(0) != 255 {
		t.Fatalf("alpha at t=0 = %d, want 255 (fully transparent)", f.AlphaAt(0))
	}
	if f.AlphaAt(400) != 0 {
		t.Fatalf("alpha mid-event = %d, want 0", f.AlphaAt(400))
	}
	if a := f.AlphaAt(100); a < 100 || a > 160 {
		t.Fatalf("alpha mid-fade-in = %d, want ~128", a)
	}
}

func TestParseClip(t *testing.T) {
	_, es := Parse("{\\clip(10,20,110,220)}x", testCtx())
	c := es.Clip
	if c == nil || c.Kind != ClipRect || c.Inverse {
		t.Fatalf("Clip = %+v", c)
	}
	if c.X0 != 10 || c.Y0 != 20 || c.X1 != 110 || c.Y1 != 220 {
		t.Fatalf("clip rect = %+v", c)
	}

	_, es = Parse("{\\iclip(m 0 0 l 100 0 100 100 0 100)}x", testCtx())
	c = es.Clip
	if c == nil || c.Kind != ClipDrawing || !c.Inverse || c.Scale != 1 {
		t.Fatalf("iclip drawing = %+v", c)
	}

	// Malformed clip is ignored.
	_, es = Parse("{\\clip(a,b,c,d)}x", testCtx())
	if es.Clip != nil {
		t.Fatalf("malformed clip accepted: %+v", es.Clip)
	}
}

func TestParseAnimation(t *testing.T) {
	ctx := testCtx()
	ctx.RelTime = 500
	runs, _ := Parse("{\\t(0,1000,\\fs60)}x", ctx)
	if got := runs[0].State.FontSize; math.Abs(got-50) > 0.01 {
		t.Fatalf("interpolated FontSize = %v, want 50 at midpoint", got)
	}

	// Acceleration bends the curve: pow(0.5, 2) = 0.25 of the way.
	runs, _ = Parse("{\\t(0,1000,2,\\fs60)}x", ctx)
	if got := runs[0].State.FontSize; math.Abs(got-45) > 0.01 {
		t.Fatalf("accelerated FontSize = %v, want 45", got)
	}

	// Before the window the target has no effect; after it commits.
	ctx.RelTime = 0
	runs, _ = Parse("{\\t(100,1000,\\fs60)}x", ctx)
	if runs[0].State.FontSize != 40 {
		t.Fatalf("FontSize before window = %v, want 40", runs[0].State.FontSize)
	}
	ctx.RelTime = 1500
	runs, _ = Parse("{\\t(100,1000,\\fs60)}x", ctx)
	if runs[0].State.FontSize != 60 {
		t.Fatalf("FontSize after window = %v, want 60", runs[0].State.FontSize)
	}
}

func TestParseDrawingMode(t *testing.T) {
	runs, _ := Parse("{\\p1}m 0 0 l 100 0 100 100{\\p0}", testCtx())
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].State.DrawingScale != 1 {
		t.Fatalf("DrawingScale = %d", runs[0].State.DrawingScale)
	}
	if runs[0].Text != "m 0 0 l 100 0 100 100" {
		t.Fatalf("drawing text = %q", runs[0].Text)
	}
}

func TestParseMalformedTagIgnored(t *testing.T) {
	runs, _ := Parse("{\\bogus42\\fs25}x", testCtx())
	if len(runs) != 1 || runs[0].Text != "x" {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].State.FontSize != 25 {
		t.Fatalf("tag after unknown tag lost: FontSize = %v", runs[0].State.FontSize)
	}
}

func TestAnimWeightDegenerateWindow(t *testing.T) {
	if w := animWeight(50, 100, 100, 1); w != 0 {
		t.Fatalf("weight before degenerate window = %v", w)
	}
	if w := animWeight(100, 100, 100, 1); w != 1 {
		t.Fatalf("weight at degenerate window = %v", w)
	}
}
