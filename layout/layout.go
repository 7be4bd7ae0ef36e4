// Package layout implements the geometry passes of the render driver:
// line wrapping with width balancing, whitespace trimming, per-line
// measurement, horizontal justification, and inter-event collision
// resolution.
package layout

import "github.com/vectype/core/ass"

// Break classifies the boundary preceding an item, mirroring the tag
// parser's run breaks at glyph granularity.
type Break int

const (
	// BreakNone continues the current line.
	BreakNone Break = iota
	// BreakSoft is honored only under WrapNone.
	BreakSoft
	// BreakHard always starts a new line.
	BreakHard
)

// Item is one wrappable unit: a shaped cluster's advance and vertical
// extents plus its wrap classification. The driver keeps a parallel
// array mapping items back to glyph records.
type Item struct {
	Width   float64
	Ascent  float64
	Descent float64

	Whitespace bool
	Break      Break

	// Skip marks leading/trailing line whitespace excluded from
	// measurement and justification. Set by Trim.
	Skip bool
}

// Line is one laid-out line: a half-open item range plus its measured
// geometry.
type Line struct {
	Start, End int

	Width   float64
	Ascent  float64
	Descent float64
}

// Height returns the line's total vertical extent.
func (l Line) Height() float64 {
	return l.Ascent + l.Descent
}

// Wrap splits items into lines per the wrap style: hard breaks always
// split; soft breaks split only under WrapNone; smart styles (0 and 3)
// additionally wrap at whitespace to fit maxWidth and then balance the
// result, with the wider lines on top for style 0 and on the bottom for
// style 3. Style 1 wraps at the width limit without balancing; style 2
// never auto-wraps.
func Wrap(items []Item, maxWidth float64, style ass.WrapStyle) []Line {
	paragraphs := splitBreaks(items, style)

	var lines []Line
	for _, p := range paragraphs {
		switch style {
		case ass.WrapNone:
			lines = append(lines, p)
		case ass.WrapEndOfLine:
			lines = append(lines, greedyWrap(items, p, maxWidth)...)
		default:
			wrapped := greedyWrap(items, p, maxWidth)
			wrapped = balance(items, wrapped, maxWidth, style == ass.WrapSmartLow)
			lines = append(lines, wrapped...)
		}
	}
	if len(lines) == 0 {
		lines = []Line{{}}
	}
	for i := range lines {
		measure(items, &lines[i])
	}
	return lines
}

// splitBreaks cuts the item array at explicit break points, returning
// one provisional line per paragraph.
func splitBreaks(items []Item, style ass.WrapStyle) []Line {
	var out []Line
	start := 0
	for i, it := range items {
		hard := it.Break == BreakHard
		soft := it.Break == BreakSoft && style == ass.WrapNone
		if i > start && (hard || soft) {
			out = append(out, Line{Start: start, End: i})
			start = i
		} else if i == start && i > 0 && (hard || soft) {
			out = append(out, Line{Start: start, End: i})
			start = i
		}
	}
	out = append(out, Line{Start: start, End: len(items)})
	return out
}

// greedyWrap breaks one paragraph at the last whitespace boundary that
// keeps each line within maxWidth. A single word wider than the limit
// overflows rather than splitting mid-word.
func greedyWrap(items []Item, p Line, maxWidth float64) []Line {
	if maxWidth <= 0 {
		return []Line{p}
	}
	var out []Line
	start := p.Start
	width := 0.0
	lastBreak := -1
	for i := p.Start; i < p.End; i++ {
		it := items[i]
		if it.Whitespace {
			lastBreak = i
		}
		width += it.Width
		if width > maxWidth && !it.Whitespace && lastBreak >= start {
			out = append(out, Line{Start: start, End: lastBreak + 1})
			start = lastBreak + 1
			width = 0
			for j := start; j <= i; j++ {
				width += items[j].Width
			}
			lastBreak = -1
		}
	}
	if start < p.End || len(out) == 0 {
		out = append(out, Line{Start: start, End: p.End})
	}
	return out
}

// balance evens out adjacent line widths by moving trailing words down
// (or leading words up) across each break, accepting a move when it
// reduces the wider of the two lines. preferBottom selects which side
// keeps the extra width on ties: false leaves wider lines on top
// (style 0), true on the bottom (style 3).
func balance(items []Item, lines []Line, maxWidth float64, preferBottom bool) []Line {
	if len(lines) < 2 {
		return lines
	}
	widthOf := func(l Line) float64 {
		w := 0.0
		for i := l.Start; i < l.End; i++ {
			w += items[i].Width
		}
		return w
	}
	for pass := 0; pass < 2*len(lines); pass++ {
		improved := false
		for i := 0; i+1 < len(lines); i++ {
			a, b := lines[i], lines[i+1]
			wa, wb := widthOf(a), widthOf(b)

			// Moving the last word of a onto b.
			if cut := lastWordStart(items, a); cut > a.Start {
				na := Line{Start: a.Start, End: cut}
				nb := Line{Start: cut, End: b.End}
				nwa, nwb := widthOf(na), widthOf(nb)
				if nwb <= maxWidth && better(wa, wb, nwa, nwb, preferBottom) {
					lines[i], lines[i+1] = na, nb
					improved = true
					continue
				}
			}
			// Moving the first word of b onto a.
			if cut := firstWordEnd(items, b); cut < b.End {
				na := Line{Start: a.Start, End: cut}
				nb := Line{Start: cut, End: b.End}
				nwa, nwb := widthOf(na), widthOf(nb)
				if nwa <= maxWidth && better(wa, wb, nwa, nwb, preferBottom) {
					lines[i], lines[i+1] = na, nb
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return lines
}

// better decides whether the proposed split (na, nb) improves on the
// current one (wa, wb): the wider line must shrink, and on equal spans
// the preferred side keeps the width.
func better(wa, wb, nwa, nwb float64, preferBottom bool) bool {
	oldMax := wa
	if wb > oldMax {
		oldMax = wb
	}
	newMax := nwa
	if nwb > newMax {
		newMax = nwb
	}
	if newMax < oldMax-0.5 {
		return true
	}
	if newMax > oldMax+0.5 {
		return false
	}
	if preferBottom {
		return nwb > wb+0.5
	}
	return nwa > wa+0.5
}

// lastWordStart returns the index where the line's final word begins,
// or l.Start when the line is a single word.
func lastWordStart(items []Item, l Line) int {
	i := l.End - 1
	for i > l.Start && items[i].Whitespace {
		i--
	}
	for i > l.Start && !items[i-1].Whitespace {
		i--
	}
	return i
}

// firstWordEnd returns the index one past the line's leading word and
// its trailing whitespace.
func firstWordEnd(items []Item, l Line) int {
	i := l.Start
	for i < l.End && items[i].Whitespace {
		i++
	}
	for i < l.End && !items[i].Whitespace {
		i++
	}
	for i < l.End && items[i].Whitespace {
		i++
	}
	return i
}

// Trim marks each line's leading and trailing whitespace as skipped.
func Trim(items []Item, lines []Line) {
	for _, l := range lines {
		for i := l.Start; i < l.End && items[i].Whitespace; i++ {
			items[i].Skip = true
		}
		for i := l.End - 1; i >= l.Start && items[i].Whitespace; i-- {
			items[i].Skip = true
		}
	}
}

// measure computes a line's width and vertical extents over its
// non-skipped items. An all-whitespace line keeps the extents of its
// skipped items so blank lines still occupy height.
func measure(items []Item, l *Line) {
	l.Width, l.Ascent, l.Descent = 0, 0, 0
	any := false
	for i := l.Start; i < l.End; i++ {
		it := items[i]
		if it.Skip {
			continue
		}
		any = true
		l.Width += it.Width
		if it.Ascent > l.Ascent {
			l.Ascent = it.Ascent
		}
		if it.Descent > l.Descent {
			l.Descent = it.Descent
		}
	}
	if !any {
		for i := l.Start; i < l.End; i++ {
			if items[i].Ascent > l.Ascent {
				l.Ascent = items[i].Ascent
			}
			if items[i].Descent > l.Descent {
				l.Descent = items[i].Descent
			}
		}
	}
}

// JustifyX returns a line's left edge within a box of the given width
// for the alignment's horizontal component (-1 left, 0 center, 1 right).
func JustifyX(lineWidth, boxWidth float64, halign int) float64 {
	switch halign {
	case -1:
		return 0
	case 1:
		return boxWidth - lineWidth
	default:
		return (boxWidth - lineWidth) / 2
	}
}
