package outline

import (
	"strconv"
	"strings"

	"github.com/vectype/core/fixed"
)

// ParseDrawing converts a vector drawing command string (the contents of
// a \p-tagged run, or a \clip/\iclip drawing argument) into an Outline
// Store. Supported commands: m (move, starts a new contour), n (move
// without closing the previous contour), l (line), b (cubic Bézier, 3
// point pairs), q (quadratic Bézier, 1 point pair). s/c (b-spline
// start/close) are accepted syntactically and degrade to straight lines
// between their control points; full b-spline evaluation is not
// implemented.
//
// coordScale divides every parsed coordinate (drawings are specified in
// script units at an optional \p<n> subdivision scale, so a coordinate of
// value v at scale n represents v/2^(n-1) pixels).
func ParseDrawing(s string, coordScale int) *Store {
	out := New(0, 0)
	toks := tokenizeDrawing(s)
	if len(toks) == 0 {
		return out
	}

	div := 1 << uint(max0(coordScale-1))
	scale := func(v float64) fixed.Pos26_6 { return fixed.FromFloat(v / float64(div)) }

	var cur Point
	haveContour := false
	i := 0
	readNum := func() (float64, bool) {
		if i >= len(toks) {
			return 0, false
		}
		v, err := strconv.ParseFloat(toks[i], 64)
		if err != nil {
			return 0, false
		}
		i++
		return v, true
	}
	readPoint := func() (Point, bool) {
		x, ok1 := readNum()
		y, ok2 := readNum()
		if !ok1 || !ok2 {
			return Point{}, false
		}
		return Point{X: scale(x), Y: scale(y)}, true
	}

	cmd := ""
	for i < len(toks) {
		if isDrawCmd(toks[i]) {
			cmd = toks[i]
			i++
		}
		switch cmd {
		case "m":
			if haveContour {
				out.CloseContour()
			}
			p, ok := readPoint()
			if !ok {
				return out
			}
			_ = out.AddPoint(p)
			cur = p
			haveContour = true
		case "n":
			p, ok := readPoint()
			if !ok {
				return out
			}
			_ = out.AddPoint(p)
			cur = p
		case "l":
			p, ok := readPoint()
			if !ok {
				return out
			}
			_ = out.AddPoint(p)
			_ = out.AddSegment(TagLine)
			cur = p
		case "q":
			c, ok1 := readPoint()
			p, ok2 := readPoint()
			if !ok1 || !ok2 {
				return out
			}
			_ = out.AddPoint(c)
			_ = out.AddPoint(p)
			_ = out.AddSegment(TagQuad)
			cur = p
		case "b":
			c1, ok1 := readPoint()
			c2, ok2 := readPoint()
			p, ok3 := readPoint()
			if !ok1 || !ok2 || !ok3 {
				return out
			}
			_ = out.AddPoint(c1)
			_ = out.AddPoint(c2)
			_ = out.AddPoint(p)
			_ = out.AddSegment(TagCubic)
			cur = p
		case "s", "p":
			p, ok := readPoint()
			if !ok {
				return out
			}
			_ = out.AddPoint(p)
			_ = out.AddSegment(TagLine)
			cur = p
		case "c":
			// Close the current b-spline/contour.
		default:
			i++
		}
	}
	_ = cur
	if haveContour {
		out.CloseContour()
	}
	return out
}

func isDrawCmd(tok string) bool {
	switch tok {
	case "m", "n", "l", "b", "q", "s", "p", "c":
		return true
	}
	return false
}

func tokenizeDrawing(s string) []string {
	return strings.Fields(s)
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
