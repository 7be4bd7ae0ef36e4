// Package ass holds the data contracts between the script parser and the
// render driver: styles, events, and the color representation they share.
// Parsing script files into these records is out of scope for this module;
// they arrive already tokenized.
package ass

// unknownStr is the string returned for unknown enum values.
const unknownStr = "Unknown"

// Color is an RGBA color with 0-255 channels. Alpha follows the script
// convention: 0 means fully opaque, 255 fully transparent.
type Color struct {
	R, G, B, A uint8
}

// Packed returns the color as 0xRRGGBBAA, the packed form emitted on
// output images.
func (c Color) Packed() uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// FromPacked unpacks a 0xRRGGBBAA color.
func FromPacked(v uint32) Color {
	return Color{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}
}

// WithAlpha returns the color with its alpha channel replaced.
func (c Color) WithAlpha(a uint8) Color {
	c.A = a
	return c
}

// BorderStyle selects how an event's outline and shadow are drawn.
type BorderStyle int

const (
	// BorderOutline draws a stroked outline plus an offset shadow.
	BorderOutline BorderStyle = 1
	// BorderOpaqueBox replaces the outline with a filled box behind the
	// text, sized to the text extents plus the border width.
	BorderOpaqueBox BorderStyle = 3
	// BorderBand draws one opaque background band per line spanning the
	// frame width.
	BorderBand BorderStyle = 4
)

// String returns the string representation of the border style.
func (b BorderStyle) String() string {
	switch b {
	case BorderOutline:
		return "Outline"
	case BorderOpaqueBox:
		return "OpaqueBox"
	case BorderBand:
		return "Band"
	default:
		return unknownStr
	}
}

// WrapStyle selects the line-wrapping policy for an event (\q override).
type WrapStyle int

const (
	// WrapSmart wraps at word boundaries, balancing line widths with the
	// wider lines on top.
	WrapSmart WrapStyle = 0
	// WrapEndOfLine wraps greedily at whitespace when a line would exceed
	// the width, without balancing line widths; \n renders as a space.
	WrapEndOfLine WrapStyle = 1
	// WrapNone disables automatic wrapping; both \N and \n break lines.
	WrapNone WrapStyle = 2
	// WrapSmartLow is smart wrapping with wider lines at the bottom.
	WrapSmartLow WrapStyle = 3
)

// String returns the string representation of the wrap style.
func (w WrapStyle) String() string {
	switch w {
	case WrapSmart:
		return "Smart"
	case WrapEndOfLine:
		return "EndOfLine"
	case WrapNone:
		return "None"
	case WrapSmartLow:
		return "SmartLow"
	default:
		return unknownStr
	}
}

// Style is one named rendering style as parsed from a script's style
// section. Sizes and widths are in script-resolution pixels; ScaleX and
// ScaleY are percentages.
type Style struct {
	Name     string
	FontName string
	FontSize float64

	PrimaryColour   Color
	SecondaryColour Color
	OutlineColour   Color
	BackColour      Color

	Bold      bool
	Italic    bool
	Underline bool
	StrikeOut bool

	ScaleX  float64
	ScaleY  float64
	Spacing float64
	Angle   float64

	BorderStyle BorderStyle
	Outline     float64
	Shadow      float64

	// Alignment is numpad-style: 1-3 bottom, 4-6 middle, 7-9 top;
	// 1/4/7 left, 2/5/8 center, 3/6/9 right.
	Alignment int

	MarginL, MarginR, MarginV int
	Encoding                  int
}

// HAlign returns the horizontal component of a numpad alignment:
// -1 left, 0 center, +1 right.
func HAlign(alignment int) int {
	switch (alignment - 1) % 3 {
	case 0:
		return -1
	case 1:
		return 0
	default:
		return 1
	}
}

// VAlign returns the vertical component of a numpad alignment:
// -1 bottom, 0 middle, +1 top.
func VAlign(alignment int) int {
	switch (alignment - 1) / 3 {
	case 0:
		return -1
	case 1:
		return 0
	default:
		return 1
	}
}

// LegacyAlignment converts an \a-style alignment value (SSA v4) into a
// numpad alignment. Values 1-3 are bottom, 5-7 top (shifted by one),
// 9-11 middle.
func LegacyAlignment(a int) int {
	if a < 1 || a > 11 {
		return 2
	}
	h := (a-1)%4 + 1
	if h > 3 {
		h = 3
	}
	switch {
	case a >= 9:
		return 3 + h
	case a >= 5:
		return 6 + h
	default:
		return h
	}
}

// Event is one dialogue line as parsed from a script's events section.
type Event struct {
	// Start and Duration are in milliseconds of media time.
	Start    int64
	Duration int64

	// Layer orders events within a frame; higher layers render on top.
	Layer int
	// ReadOrder breaks ties between events on the same layer.
	ReadOrder int

	// Style indexes the track's style table.
	Style int

	// MarginL, MarginR, MarginV override the style's margins when
	// non-zero.
	MarginL, MarginR, MarginV int

	// Effect holds the raw effect field (banner/scroll directives).
	Effect string

	// Text is the override-tagged UTF-8 event body.
	Text string
}

// End returns the event's end time in milliseconds.
func (e Event) End() int64 {
	return e.Start + e.Duration
}

// Active reports whether the event overlaps the given timestamp.
func (e Event) Active(now int64) bool {
	return now >= e.Start && now < e.End()
}

// Track is the driver's input: frame geometry, the style table, and the
// event list. PlayResX/PlayResY define the script coordinate space that
// styles and positioning tags are expressed in; the driver maps it onto
// the target frame size.
type Track struct {
	PlayResX, PlayResY int
	WrapStyle          WrapStyle
	ScaledBorderShadow bool
	Styles             []Style
	Events             []Event
}

// StyleFor returns the style an event references, falling back to the
// first style (or a zero Style) when the index is out of range.
func (t *Track) StyleFor(e Event) Style {
	if e.Style >= 0 && e.Style < len(t.Styles) {
		return t.Styles[e.Style]
	}
	if len(t.Styles) > 0 {
		return t.Styles[0]
	}
	return Style{}
}
