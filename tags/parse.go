package tags

import (
	"strconv"
	"strings"

	"github.com/vectype/core/ass"
)

// Break classifies the boundary preceding a run.
type Break int

const (
	// BreakNone means the run continues its line.
	BreakNone Break = iota
	// BreakSoft is a \n break: honored only under WrapNone, otherwise
	// rendered as a space.
	BreakSoft
	// BreakHard is a \N break: always starts a new line.
	BreakHard
)

// Run is one style-homogeneous span of event text: the text itself and
// a snapshot of the render state in effect for it. A run whose state
// has DrawingScale > 0 carries drawing commands instead of text.
type Run struct {
	Text  string
	State RenderState
	Break Break
}

// Context supplies the event-level inputs the parser needs: the base
// style for \r, a style lookup for \r<name>, the current time relative
// to the event start (for \t and karaoke), and the event duration (for
// \fad edge placement).
type Context struct {
	Style   ass.Style
	StyleBy func(name string) (ass.Style, bool)

	RelTime  int64
	Duration int64

	WrapStyle ass.WrapStyle
}

// Parse walks an event's text and returns its styled runs plus the
// event-scoped overrides. Malformed tags are skipped without aborting
// the event, matching the degrade-don't-fail error taxonomy.
func Parse(text string, ctx Context) ([]Run, EventState) {
	p := &parser{
		ctx:   ctx,
		state: StateFromStyle(ctx.Style),
	}
	p.state.WrapStyle = ctx.WrapStyle
	p.run(text)
	return p.runs, p.event
}

type parser struct {
	ctx   Context
	state RenderState
	event EventState

	runs    []Run
	pending strings.Builder
	brk     Break

	// karaokeClock accumulates syllable durations so each \k tag knows
	// its syllable's start offset within the event.
	karaokeClock int64
}

func (p *parser) run(text string) {
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '{':
			end := strings.IndexByte(text[i:], '}')
			if end < 0 {
				// Unterminated block: the brace is literal text.
				p.pending.WriteByte(c)
				i++
				continue
			}
			p.flush()
			p.parseBlock(text[i+1 : i+end])
			i += end + 1
		case c == '\\' && i+1 < len(text) && (text[i+1] == 'N' || text[i+1] == 'n' || text[i+1] == 'h'):
			switch text[i+1] {
			case 'N':
				p.flush()
				p.brk = BreakHard
			case 'n':
				if p.state.WrapStyle == ass.WrapNone {
					p.flush()
					p.brk = BreakSoft
				} else {
					p.pending.WriteByte(' ')
				}
			case 'h':
				p.pending.WriteRune('\u00a0')
			}
			i += 2
		default:
			p.pending.WriteByte(c)
			i++
		}
	}
	p.flush()
}

// flush emits the pending text as a run with the current state.
func (p *parser) flush() {
	if p.pending.Len() == 0 && p.brk == BreakNone {
		return
	}
	if p.pending.Len() == 0 {
		// A break with no text still needs a carrier run so the layout
		// sees the empty line.
		p.runs = append(p.runs, Run{State: p.state, Break: p.brk})
		p.brk = BreakNone
		return
	}
	p.runs = append(p.runs, Run{Text: p.pending.String(), State: p.state, Break: p.brk})
	p.pending.Reset()
	p.brk = BreakNone
}

// parseBlock consumes the tags inside one {...} block.
func (p *parser) parseBlock(block string) {
	i := 0
	for i < len(block) {
		if block[i] != '\\' {
			i++
			continue
		}
		i++
		name, args, rest, next := splitTag(block[i:])
		p.applyTag(name, args, rest)
		i += next
	}
}

// tagNames lists recognized tag names longest-first so prefix matching
// never mistakes \fscx for \fs or \kf for \k.
var tagNames = []string{
	"xbord", "ybord", "xshad", "yshad", "alpha", "iclip",
	"fscx", "fscy", "blur", "bord", "shad", "fade", "move", "clip",
	"fad", "org", "pos", "fax", "fay", "frx", "fry", "frz", "fsp", "pbo",
	"an", "be", "fe", "fn", "fr", "fs", "kf", "ko",
	"1c", "2c", "3c", "4c", "1a", "2a", "3a", "4a",
	"a", "b", "c", "i", "k", "K", "p", "q", "r", "s", "t", "u",
}

// splitTag reads one tag at the start of s: its name, parenthesized
// argument list (if any), the bare remainder argument (if any), and how
// many bytes were consumed. The remainder ends at the next backslash.
func splitTag(s string) (name string, args []string, rest string, consumed int) {
	for _, n := range tagNames {
		if strings.HasPrefix(s, n) {
			name = n
			break
		}
	}
	if name == "" {
		// Unknown tag: skip to the next backslash.
		end := strings.IndexByte(s, '\\')
		if end < 0 {
			return "", nil, "", len(s)
		}
		return "", nil, "", end
	}
	i := len(name)
	if i < len(s) && s[i] == '(' {
		depth := 0
		j := i
		for j < len(s) {
			switch s[j] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					args = splitArgs(s[i+1 : j])
					return name, args, "", j + 1
				}
			}
			j++
		}
		// Unterminated parentheses: take everything.
		args = splitArgs(s[i+1:])
		return name, args, "", len(s)
	}
	end := strings.IndexByte(s[i:], '\\')
	if end < 0 {
		return name, nil, strings.TrimSpace(s[i:]), len(s)
	}
	return name, nil, strings.TrimSpace(s[i : i+end]), i + end
}

// splitArgs splits a parenthesized argument list on commas at depth
// zero, so a nested \t(...,\clip(...)) keeps its inner commas.
func splitArgs(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

func (p *parser) applyTag(name string, args []string, rest string) {
	arg := rest
	if arg == "" && len(args) > 0 {
		arg = args[0]
	}
	s := &p.state
	switch name {
	case "fs":
		if v, ok := parseFloat(arg); ok && v > 0 {
			s.FontSize = v
		} else {
			s.FontSize = p.ctx.Style.FontSize
		}
	case "fn":
		if arg != "" {
			s.FontName = arg
		} else {
			s.FontName = p.ctx.Style.FontName
		}
	case "b":
		v, ok := parseInt(arg)
		if !ok {
			s.Bold = p.ctx.Style.Bold
		} else {
			// Weight values (400/700) degrade to the flag.
			s.Bold = v == 1 || v >= 700
		}
	case "i":
		s.Italic = boolTag(arg, p.ctx.Style.Italic)
	case "u":
		s.Underline = boolTag(arg, p.ctx.Style.Underline)
	case "s":
		s.StrikeOut = boolTag(arg, p.ctx.Style.StrikeOut)
	case "fe":
		if v, ok := parseInt(arg); ok {
			s.FontEncoding = v
		}
	case "c", "1c":
		p.setColorRGB(0, arg, p.ctx.Style.PrimaryColour)
	case "2c":
		p.setColorRGB(1, arg, p.ctx.Style.SecondaryColour)
	case "3c":
		p.setColorRGB(2, arg, p.ctx.Style.OutlineColour)
	case "4c":
		p.setColorRGB(3, arg, p.ctx.Style.BackColour)
	case "alpha":
		if a, ok := parseAlpha(arg); ok {
			for i := range s.Colors {
				s.Colors[i].A = a
			}
		} else {
			s.Colors[0].A = p.ctx.Style.PrimaryColour.A
			s.Colors[1].A = p.ctx.Style.SecondaryColour.A
			s.Colors[2].A = p.ctx.Style.OutlineColour.A
			s.Colors[3].A = p.ctx.Style.BackColour.A
		}
	case "1a":
		p.setAlpha(0, arg, p.ctx.Style.PrimaryColour.A)
	case "2a":
		p.setAlpha(1, arg, p.ctx.Style.SecondaryColour.A)
	case "3a":
		p.setAlpha(2, arg, p.ctx.Style.OutlineColour.A)
	case "4a":
		p.setAlpha(3, arg, p.ctx.Style.BackColour.A)
	case "bord":
		v := floatOr(arg, p.ctx.Style.Outline)
		s.BorderX, s.BorderY = v, v
	case "xbord":
		s.BorderX = floatOr(arg, p.ctx.Style.Outline)
	case "ybord":
		s.BorderY = floatOr(arg, p.ctx.Style.Outline)
	case "shad":
		v := floatOr(arg, p.ctx.Style.Shadow)
		s.ShadowX, s.ShadowY = v, v
	case "xshad":
		s.ShadowX = floatOr(arg, p.ctx.Style.Shadow)
	case "yshad":
		s.ShadowY = floatOr(arg, p.ctx.Style.Shadow)
	case "blur":
		s.Blur = floatOr(arg, 0)
	case "be":
		if v, ok := parseFloat(arg); ok && v > 0 {
			s.BE = int(v + 0.5)
		} else {
			s.BE = 0
		}
	case "fscx":
		s.ScaleX = floatOr(arg, p.ctx.Style.ScaleX) / 100
	case "fscy":
		s.ScaleY = floatOr(arg, p.ctx.Style.ScaleY) / 100
	case "fsp":
		s.Spacing = floatOr(arg, p.ctx.Style.Spacing)
	case "frx":
		s.FrX = floatOr(arg, 0)
	case "fry":
		s.FrY = floatOr(arg, 0)
	case "frz", "fr":
		s.FrZ = floatOr(arg, p.ctx.Style.Angle)
	case "fax":
		s.FaX = floatOr(arg, 0)
	case "fay":
		s.FaY = floatOr(arg, 0)
	case "p":
		if v, ok := parseInt(arg); ok && v > 0 {
			s.DrawingScale = v
		} else {
			s.DrawingScale = 0
		}
	case "pbo":
		s.BaselineOffset = floatOr(arg, 0)
	case "an":
		if v, ok := parseInt(arg); ok && v >= 1 && v <= 9 {
			s.Alignment = v
		}
	case "a":
		if v, ok := parseInt(arg); ok {
			s.Alignment = ass.LegacyAlignment(v)
		}
	case "q":
		if v, ok := parseInt(arg); ok && v >= 0 && v <= 3 {
			s.WrapStyle = ass.WrapStyle(v)
		}
	case "r":
		p.reset(rest)
	case "k":
		p.karaoke(arg, KaraokeSnap)
	case "kf", "K":
		p.karaoke(arg, KaraokeSweep)
	case "ko":
		p.karaoke(arg, KaraokeOutline)
	case "pos":
		if p.event.Pos == nil && p.event.Move == nil && len(args) >= 2 {
			x, ok1 := parseFloat(args[0])
			y, ok2 := parseFloat(args[1])
			if ok1 && ok2 {
				p.event.Pos = &Vec2{X: x, Y: y}
			}
		}
	case "move":
		p.parseMove(args)
	case "org":
		if p.event.Org == nil && len(args) >= 2 {
			x, ok1 := parseFloat(args[0])
			y, ok2 := parseFloat(args[1])
			if ok1 && ok2 {
				p.event.Org = &Vec2{X: x, Y: y}
			}
		}
	case "fad":
		p.parseFad(args)
	case "fade":
		p.parseFade(args)
	case "clip":
		p.parseClip(args, false)
	case "iclip":
		p.parseClip(args, true)
	case "t":
		p.parseAnimation(args)
	}
}

func (p *parser) setColorRGB(idx int, arg string, fallback ass.Color) {
	if c, ok := parseColor(arg); ok {
		a := p.state.Colors[idx].A
		p.state.Colors[idx] = c.WithAlpha(a)
	} else {
		a := p.state.Colors[idx].A
		p.state.Colors[idx] = fallback.WithAlpha(a)
	}
}

func (p *parser) setAlpha(idx int, arg string, fallback uint8) {
	if a, ok := parseAlpha(arg); ok {
		p.state.Colors[idx].A = a
	} else {
		p.state.Colors[idx].A = fallback
	}
}

// reset implements \r and \r<style>: the state returns to the named
// style (or the event's own style), keeping the karaoke clock and the
// current syllable timing intact.
func (p *parser) reset(styleName string) {
	style := p.ctx.Style
	if styleName != "" && p.ctx.StyleBy != nil {
		if named, ok := p.ctx.StyleBy(styleName); ok {
			style = named
		}
	}
	kStart, kDur, kKind := p.state.KaraokeStart, p.state.KaraokeDur, p.state.KaraokeKind
	wrap := p.state.WrapStyle
	p.state = StateFromStyle(style)
	p.state.WrapStyle = wrap
	p.state.KaraokeStart, p.state.KaraokeDur, p.state.KaraokeKind = kStart, kDur, kKind
}

// karaoke records the timing for the syllable that follows this tag.
// Durations are in centiseconds.
func (p *parser) karaoke(arg string, kind KaraokeKind) {
	cs, ok := parseFloat(arg)
	if !ok || cs < 0 {
		cs = 0
	}
	dur := int64(cs * 10)
	p.state.KaraokeStart = p.karaokeClock
	p.state.KaraokeDur = dur
	p.state.KaraokeKind = kind
	p.karaokeClock += dur
}

func (p *parser) parseMove(args []string) {
	if p.event.Pos != nil || p.event.Move != nil || len(args) < 4 {
		return
	}
	vals := make([]float64, 0, 6)
	for _, a := range args {
		v, ok := parseFloat(a)
		if !ok {
			return
		}
		vals = append(vals, v)
	}
	m := &Move{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}
	if len(vals) >= 6 {
		m.T0, m.T1 = int64(vals[4]), int64(vals[5])
		if m.T1 < m.T0 {
			m.T0, m.T1 = m.T1, m.T0
		}
	} else {
		m.T0, m.T1 = 0, p.ctx.Duration
	}
	p.event.Move = m
}

func (p *parser) parseFad(args []string) {
	if p.event.Fade != nil || len(args) < 2 {
		return
	}
	in, ok1 := parseFloat(args[0])
	out, ok2 := parseFloat(args[1])
	if !ok1 || !ok2 {
		return
	}
	p.event.Fade = &Fade{
		A1: 255, A2: 0, A3: 255,
		T1: 0, T2: int64(in),
		T3: p.ctx.Duration - int64(out), T4: p.ctx.Duration,
	}
}

func (p *parser) parseFade(args []string) {
	if p.event.Fade != nil || len(args) < 7 {
		return
	}
	vals := make([]float64, 0, 7)
	for _, a := range args[:7] {
		v, ok := parseFloat(a)
		if !ok {
			return
		}
		vals = append(vals, v)
	}
	f := &Fade{
		A1: clampU8(vals[0]), A2: clampU8(vals[1]), A3: clampU8(vals[2]),
		T1: int64(vals[3]), T2: int64(vals[4]),
		T3: int64(vals[5]), T4: int64(vals[6]),
	}
	// Reversed ramp bounds are swapped, not clamped.
	if f.T2 < f.T1 {
		f.T1, f.T2 = f.T2, f.T1
	}
	if f.T4 < f.T3 {
		f.T3, f.T4 = f.T4, f.T3
	}
	p.event.Fade = f
}

func (p *parser) parseClip(args []string, inverse bool) {
	c, ok := clipFromArgs(args, inverse)
	if !ok {
		// Malformed clip: ignored, output stays unclipped.
		return
	}
	p.event.Clip = &c
}

func clipFromArgs(args []string, inverse bool) (Clip, bool) {
	switch len(args) {
	case 4:
		vals := make([]float64, 0, 4)
		for _, a := range args {
			v, ok := parseFloat(a)
			if !ok {
				return Clip{}, false
			}
			vals = append(vals, v)
		}
		c := Clip{Kind: ClipRect, Inverse: inverse, X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}
		if c.X1 < c.X0 {
			c.X0, c.X1 = c.X1, c.X0
		}
		if c.Y1 < c.Y0 {
			c.Y0, c.Y1 = c.Y1, c.Y0
		}
		return c, true
	case 1:
		if args[0] == "" {
			return Clip{}, false
		}
		return Clip{Kind: ClipDrawing, Inverse: inverse, Drawing: args[0], Scale: 1}, true
	case 2:
		scale, ok := parseInt(args[0])
		if !ok || scale < 1 {
			return Clip{}, false
		}
		return Clip{Kind: ClipDrawing, Inverse: inverse, Drawing: args[1], Scale: scale}, true
	default:
		return Clip{}, false
	}
}

// parseAnimation implements \t(...): the trailing argument is a tag
// string applied to a scratch copy of the current state; the numeric
// difference is then blended in at weight pow(u, accel).
func (p *parser) parseAnimation(args []string) {
	if len(args) == 0 {
		return
	}
	t1, t2 := int64(0), p.ctx.Duration
	accel := 1.0
	var inner string
	switch len(args) {
	case 1:
		inner = args[0]
	case 2:
		if v, ok := parseFloat(args[0]); ok {
			accel = v
		}
		inner = args[1]
	case 4:
		v1, ok1 := parseFloat(args[0])
		v2, ok2 := parseFloat(args[1])
		v3, ok3 := parseFloat(args[2])
		if !ok1 || !ok2 || !ok3 {
			return
		}
		t1, t2, accel = int64(v1), int64(v2), v3
		inner = args[3]
	case 3:
		v1, ok1 := parseFloat(args[0])
		v2, ok2 := parseFloat(args[1])
		if !ok1 || !ok2 {
			return
		}
		t1, t2 = int64(v1), int64(v2)
		inner = args[2]
	default:
		return
	}
	if !strings.Contains(inner, "\\") {
		return
	}

	k := animWeight(p.ctx.RelTime, t1, t2, accel)

	// Parse the inner tags against a scratch parser so event-scoped
	// side effects don't leak before the animation completes; an
	// animated rectangular clip is the exception and interpolates.
	scratch := &parser{ctx: p.ctx, state: p.state, karaokeClock: p.karaokeClock}
	scratch.parseBlock(inner)

	p.state = interpolate(p.state, scratch.state, k)

	if scratch.event.Clip != nil && scratch.event.Clip.Kind == ClipRect {
		target := scratch.event.Clip
		if p.event.Clip != nil && p.event.Clip.Kind == ClipRect && k < 1 {
			cur := p.event.Clip
			p.event.Clip = &Clip{
				Kind: ClipRect, Inverse: target.Inverse,
				X0: lerpF(cur.X0, target.X0, k), Y0: lerpF(cur.Y0, target.Y0, k),
				X1: lerpF(cur.X1, target.X1, k), Y1: lerpF(cur.Y1, target.Y1, k),
			}
		} else if k >= 1 {
			p.event.Clip = target
		}
	}
}

func boolTag(arg string, fallback bool) bool {
	v, ok := parseInt(arg)
	if !ok {
		return fallback
	}
	return v != 0
}

func floatOr(arg string, fallback float64) float64 {
	if v, ok := parseFloat(arg); ok {
		return v
	}
	return fallback
}

// parseFloat parses the leading numeric prefix of s, tolerating
// trailing junk the way a strtod-style reader would.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	end := 0
	seenDigit, seenDot := false, false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		case (c == '+' || c == '-') && end == 0:
		default:
			goto done
		}
		end++
	}
done:
	if !seenDigit {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	v, ok := parseFloat(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// parseColor parses &HBBGGRR&; the ampersands and H prefix are
// optional.
func parseColor(s string) (ass.Color, bool) {
	v, ok := parseHex(s)
	if !ok {
		return ass.Color{}, false
	}
	return ass.Color{
		B: uint8(v >> 16),
		G: uint8(v >> 8),
		R: uint8(v),
	}, true
}

// parseAlpha parses &HAA&.
func parseAlpha(s string) (uint8, bool) {
	v, ok := parseHex(s)
	if !ok {
		return 0, false
	}
	if v > 255 {
		v = 255
	}
	return uint8(v), true
}

func parseHex(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "&")
	if len(s) > 0 && (s[0] == 'H' || s[0] == 'h') {
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	end := 0
	for end < len(s) && isHexDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:end], 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
