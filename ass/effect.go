package ass

import (
	"strconv"
	"strings"
)

// EffectKind identifies a parsed event effect.
type EffectKind int

const (
	// EffectNone means the effect field was empty or unrecognized.
	EffectNone EffectKind = iota
	// EffectScrollUp scrolls the event upward, visible within the Y0..Y1
	// band.
	EffectScrollUp
	// EffectScrollDown scrolls the event downward, visible within the
	// Y0..Y1 band.
	EffectScrollDown
	// EffectBannerLR scrolls the event horizontally left to right.
	EffectBannerLR
	// EffectBannerRL scrolls the event horizontally right to left.
	EffectBannerRL
)

// String returns the string representation of the effect kind.
func (k EffectKind) String() string {
	switch k {
	case EffectNone:
		return "None"
	case EffectScrollUp:
		return "ScrollUp"
	case EffectScrollDown:
		return "ScrollDown"
	case EffectBannerLR:
		return "BannerLR"
	case EffectBannerRL:
		return "BannerRL"
	default:
		return unknownStr
	}
}

// Effect is a parsed event effect field.
type Effect struct {
	Kind EffectKind
	// Y0 and Y1 bound a vertical scroll's travel, in script pixels.
	Y0, Y1 int
	// Delay scales scroll speed: pixels advance once per Delay
	// milliseconds (a delay of 0 or 1 means one pixel per millisecond).
	Delay int
	// FadeAway is the banner/scroll edge fade width in pixels.
	FadeAway int
}

// ParseEffect parses an event's effect field. Unrecognized or malformed
// effects yield EffectNone: per the error taxonomy, effect errors
// degrade to plain static rendering rather than failing the event.
func ParseEffect(s string) Effect {
	fields := strings.Split(s, ";")
	name := strings.TrimSpace(fields[0])
	args := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			v = 0
		}
		args = append(args, v)
	}
	argAt := func(i int) int {
		if i < len(args) {
			return args[i]
		}
		return 0
	}

	switch {
	case strings.EqualFold(name, "Scroll up"):
		e := Effect{Kind: EffectScrollUp, Y0: argAt(0), Y1: argAt(1), Delay: argAt(2), FadeAway: argAt(3)}
		if e.Y0 > e.Y1 {
			e.Y0, e.Y1 = e.Y1, e.Y0
		}
		return e
	case strings.EqualFold(name, "Scroll down"):
		e := Effect{Kind: EffectScrollDown, Y0: argAt(0), Y1: argAt(1), Delay: argAt(2), FadeAway: argAt(3)}
		if e.Y0 > e.Y1 {
			e.Y0, e.Y1 = e.Y1, e.Y0
		}
		return e
	case strings.EqualFold(name, "Banner"):
		e := Effect{Kind: EffectBannerRL, Delay: argAt(0), FadeAway: argAt(2)}
		if argAt(1) != 0 {
			e.Kind = EffectBannerLR
		}
		return e
	default:
		return Effect{Kind: EffectNone}
	}
}
