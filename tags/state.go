// Package tags implements the override-tag state machine that drives the
// render pipeline: it walks an event's text, consuming {\tag(args)} and
// {\tag args} blocks, and produces a sequence of style-homogeneous runs
// each carrying a snapshot of the mutable render state.
package tags

import (
	"math"

	"github.com/vectype/core/ass"
)

// Vec2 is a float point in script coordinates.
type Vec2 struct {
	X, Y float64
}

// Move is a parsed \move override: the event travels from (X0, Y0) at T0
// to (X1, Y1) at T1, both times relative to the event start.
type Move struct {
	X0, Y0, X1, Y1 float64
	T0, T1         int64
}

// At returns the interpolated position at relative time t.
func (m Move) At(t int64) Vec2 {
	if m.T1 <= m.T0 {
		if t >= m.T0 {
			return Vec2{X: m.X1, Y: m.Y1}
		}
		return Vec2{X: m.X0, Y: m.Y0}
	}
	u := float64(t-m.T0) / float64(m.T1-m.T0)
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	return Vec2{X: m.X0 + (m.X1-m.X0)*u, Y: m.Y0 + (m.Y1-m.Y0)*u}
}

// Fade is a parsed \fade or \fad override, normalized to the seven-value
// complex form: alpha A1 until T1, ramp to A2 by T2, hold until T3, ramp
// to A3 by T4. \fad(in, out) maps to A1=255, A2=0, A3=255 with the ramps
// at the event edges.
type Fade struct {
	A1, A2, A3     uint8
	T1, T2, T3, T4 int64
}

// AlphaAt returns the fade's extra transparency at relative time t:
// 0 adds no transparency, 255 makes the event invisible.
func (f Fade) AlphaAt(t int64) uint8 {
	switch {
	case t < f.T1:
		return f.A1
	case t < f.T2:
		return lerpAlpha(f.A1, f.A2, t-f.T1, f.T2-f.T1)
	case t < f.T3:
		return f.A2
	case t < f.T4:
		return lerpAlpha(f.A2, f.A3, t-f.T3, f.T4-f.T3)
	default:
		return f.A3
	}
}

func lerpAlpha(a, b uint8, num, den int64) uint8 {
	if den <= 0 {
		return b
	}
	v := float64(a) + (float64(b)-float64(a))*float64(num)/float64(den)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// ClipKind distinguishes rectangular from vector clips.
type ClipKind int

const (
	// ClipRect clips to an axis-aligned rectangle.
	ClipRect ClipKind = iota
	// ClipDrawing clips to a rasterized vector drawing.
	ClipDrawing
)

// Clip is a parsed \clip or \iclip override.
type Clip struct {
	Kind ClipKind
	// Inverse marks \iclip: the clip region is cut out rather than kept.
	Inverse bool

	// Rect bounds, script coordinates, for ClipRect.
	X0, Y0, X1, Y1 float64

	// Drawing command string and its \p-style scale, for ClipDrawing.
	Drawing string
	Scale   int
}

// KaraokeKind selects how a karaoke syllable transitions between the
// secondary and primary colors.
type KaraokeKind int

const (
	// KaraokeNone means no karaoke timing applies to the run.
	KaraokeNone KaraokeKind = iota
	// KaraokeSnap flips the whole syllable at its start time (\k).
	KaraokeSnap
	// KaraokeSweep sweeps the fill left to right across the syllable's
	// duration (\kf, \K).
	KaraokeSweep
	// KaraokeOutline highlights the syllable's outline (\ko).
	KaraokeOutline
)

// RenderState is the mutable style state the tag parser advances through
// an event's text. Every field is per-run; event-scoped overrides
// (\pos, \move, \org, fades, clips) live in EventState.
type RenderState struct {
	FontName     string
	FontSize     float64
	Bold         bool
	Italic       bool
	Underline    bool
	StrikeOut    bool
	FontEncoding int

	// Colors indexes: 0 primary, 1 secondary, 2 outline, 3 back.
	Colors [4]ass.Color

	BorderX, BorderY float64
	ShadowX, ShadowY float64
	Blur             float64
	BE               int

	// ScaleX and ScaleY are fractions: 1.0 is 100%.
	ScaleX, ScaleY float64
	Spacing        float64

	// Rotation angles in degrees; shear factors are unitless.
	FrX, FrY, FrZ float64
	FaX, FaY      float64

	Alignment int
	WrapStyle ass.WrapStyle

	// DrawingScale is the \p drawing mode scale; 0 means regular text.
	DrawingScale   int
	BaselineOffset float64

	// Karaoke timing for the current syllable, relative to event start.
	KaraokeStart int64
	KaraokeDur   int64
	KaraokeKind  KaraokeKind
}

// StateFromStyle initializes a RenderState from a style record, mapping
// percentages to fractions and splitting the single outline/shadow
// values into their per-axis forms.
func StateFromStyle(s ass.Style) RenderState {
	return RenderState{
		FontName:     s.FontName,
		FontSize:     s.FontSize,
		Bold:         s.Bold,
		Italic:       s.Italic,
		Underline:    s.Underline,
		StrikeOut:    s.StrikeOut,
		FontEncoding: s.Encoding,
		Colors: [4]ass.Color{
			s.PrimaryColour, s.SecondaryColour, s.OutlineColour, s.BackColour,
		},
		BorderX:   s.Outline,
		BorderY:   s.Outline,
		ShadowX:   s.Shadow,
		ShadowY:   s.Shadow,
		ScaleX:    s.ScaleX / 100,
		ScaleY:    s.ScaleY / 100,
		Spacing:   s.Spacing,
		FrZ:       s.Angle,
		Alignment: s.Alignment,
	}
}

// EventState holds the overrides that apply to the event as a whole
// rather than to a run: position, motion, rotation origin, fades, and
// clips. The first \pos or \move in an event wins; later ones are
// ignored.
type EventState struct {
	Pos  *Vec2
	Move *Move
	Org  *Vec2
	Fade *Fade
	Clip *Clip
}

// interpolate blends the numeric fields of cur toward target at weight
// k in [0, 1] (k=0 keeps cur, k=1 reaches target), implementing the
// \t(t1,t2,accel,...) animation rule. Non-numeric fields (font name,
// flags, alignment, wrap style) commit instantaneously once k reaches 1.
func interpolate(cur, target RenderState, k float64) RenderState {
	if k <= 0 {
		return cur
	}
	if k >= 1 {
		return target
	}
	out := cur
	out.FontSize = lerpF(cur.FontSize, target.FontSize, k)
	out.BorderX = lerpF(cur.BorderX, target.BorderX, k)
	out.BorderY = lerpF(cur.BorderY, target.BorderY, k)
	out.ShadowX = lerpF(cur.ShadowX, target.ShadowX, k)
	out.ShadowY = lerpF(cur.ShadowY, target.ShadowY, k)
	out.Blur = lerpF(cur.Blur, target.Blur, k)
	out.ScaleX = lerpF(cur.ScaleX, target.ScaleX, k)
	out.ScaleY = lerpF(cur.ScaleY, target.ScaleY, k)
	out.Spacing = lerpF(cur.Spacing, target.Spacing, k)
	out.FrX = lerpF(cur.FrX, target.FrX, k)
	out.FrY = lerpF(cur.FrY, target.FrY, k)
	out.FrZ = lerpF(cur.FrZ, target.FrZ, k)
	out.FaX = lerpF(cur.FaX, target.FaX, k)
	out.FaY = lerpF(cur.FaY, target.FaY, k)
	out.BE = int(lerpF(float64(cur.BE), float64(target.BE), k) + 0.5)
	for i := range out.Colors {
		out.Colors[i] = lerpColor(cur.Colors[i], target.Colors[i], k)
	}
	return out
}

func lerpF(a, b, k float64) float64 {
	return a + (b-a)*k
}

func lerpColor(a, b ass.Color, k float64) ass.Color {
	return ass.Color{
		R: lerpU8(a.R, b.R, k),
		G: lerpU8(a.G, b.G, k),
		B: lerpU8(a.B, b.B, k),
		A: lerpU8(a.A, b.A, k),
	}
}

func lerpU8(a, b uint8, k float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*k
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// animWeight computes the \t interpolation weight pow(u, accel) where u
// is the clipped progress of relTime through [t1, t2].
func animWeight(relTime, t1, t2 int64, accel float64) float64 {
	if t2 <= t1 {
		if relTime >= t1 {
			return 1
		}
		return 0
	}
	u := float64(relTime-t1) / float64(t2-t1)
	if u <= 0 {
		return 0
	}
	if u >= 1 {
		return 1
	}
	if accel <= 0 {
		accel = 1
	}
	return math.Pow(u, accel)
}
