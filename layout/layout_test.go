package layout

import (
	"testing"

	"github.com/vectype/core/ass"
)

// word builds n unit-width items followed by one whitespace item.
func word(n int, width float64) []Item {
	items := make([]Item, 0, n+1)
	for i := 0; i < n; i++ {
		items = append(items, Item{Width: width, Ascent: 10, Descent: 2})
	}
	items = append(items, Item{Width: width / 2, Ascent: 10, Descent: 2, Whitespace: true})
	return items
}

func TestWrapHardBreak(t *testing.T) {
	items := []Item{
		{Width: 10, Ascent: 10, Descent: 2},
		{Width: 10, Ascent: 10, Descent: 2, Break: BreakHard},
		{Width: 10, Ascent: 10, Descent: 2},
	}
	lines := Wrap(items, 1000, ass.WrapSmart)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].End != 1 || lines[1].Start != 1 {
		t.Fatalf("break position: %+v", lines)
	}
}

func TestWrapNoneIgnoresWidth(t *testing.T) {
	var items []Item
	items = append(items, word(20, 10)...)
	lines := Wrap(items, 50, ass.WrapNone)
	if len(lines) != 1 {
		t.Fatalf("WrapNone produced %d lines, want 1", len(lines))
	}
}

func TestWrapGreedyAtWhitespace(t *testing.T) {
	var items []Item
	items = append(items, word(2, 10)...) // 0-1 word, 2 space
	items = append(items, word(2, 10)...) // 3-4 word, 5 space
	lines := Wrap(items, 25, ass.WrapEndOfLine)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %+v", len(lines), lines)
	}
	if lines[1].Start != 3 {
		t.Fatalf("second line starts at %d, want 3", lines[1].Start)
	}
}

func TestWrapSmartBalances(t *testing.T) {
	// Four words of width 10 at limit 40: greedy wraps 3+1, balancing
	// evens that to 2+2.
	var items []Item
	for i := 0; i < 4; i++ {
		items = append(items, word(1, 10)...)
	}
	lines := Wrap(items, 40, ass.WrapSmart)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].End != 4 {
		t.Fatalf("balanced break at %d, want 4 (two words per line)", lines[0].End)
	}
	if lines[0].Width != lines[1].Width {
		t.Fatalf("unbalanced lines: %v vs %v", lines[0].Width, lines[1].Width)
	}
}

func TestTrimMarksEdgeWhitespace(t *testing.T) {
	items := []Item{
		{Width: 5, Whitespace: true},
		{Width: 10},
		{Width: 5, Whitespace: true},
		{Width: 10},
		{Width: 5, Whitespace: true},
	}
	lines := []Line{{Start: 0, End: len(items)}}
	Trim(items, lines)
	want := []bool{true, false, false, false, true}
	for i, w := range want {
		if items[i].Skip != w {
			t.Errorf("item %d Skip = %v, want %v", i, items[i].Skip, w)
		}
	}
}

func TestMeasureSkipsTrimmed(t *testing.T) {
	items := []Item{
		{Width: 5, Whitespace: true, Ascent: 99},
		{Width: 10, Ascent: 12, Descent: 3},
	}
	lines := Wrap(items, 1000, ass.WrapSmart)
	Trim(items, lines)
	lines = Wrap(items, 1000, ass.WrapSmart)
	if lines[0].Width != 10 {
		t.Fatalf("width = %v, want 10 (whitespace trimmed)", lines[0].Width)
	}
	if lines[0].Ascent != 12 || lines[0].Descent != 3 {
		t.Fatalf("extents = (%v, %v)", lines[0].Ascent, lines[0].Descent)
	}
}

func TestJustifyX(t *testing.T) {
	if x := JustifyX(40, 100, -1); x != 0 {
		t.Errorf("left = %v", x)
	}
	if x := JustifyX(40, 100, 0); x != 30 {
		t.Errorf("center = %v", x)
	}
	if x := JustifyX(40, 100, 1); x != 60 {
		t.Errorf("right = %v", x)
	}
}

func TestResolveCollisionsShiftsDown(t *testing.T) {
	// Two overlapping events on the same layer: the later one shifts
	// down by exactly the overlap (50 - 20 = 30).
	rects := []EventRect{
		{Layer: 0, ReadOrder: 0, Top: 100, Height: 50},
		{Layer: 0, ReadOrder: 1, Top: 120, Height: 50},
	}
	shifts := ResolveCollisions(rects)
	if shifts[0] != 0 {
		t.Fatalf("first event shifted by %v", shifts[0])
	}
	if shifts[1] != 30 {
		t.Fatalf("second event shifted by %v, want 30", shifts[1])
	}
}

func TestResolveCollisionsShiftsUp(t *testing.T) {
	rects := []EventRect{
		{Layer: 0, ReadOrder: 0, Top: 200, Height: 50, Direction: ShiftUp},
		{Layer: 0, ReadOrder: 1, Top: 230, Height: 50, Direction: ShiftUp},
	}
	shifts := ResolveCollisions(rects)
	if shifts[1] != -80 {
		t.Fatalf("bottom-anchored shift = %v, want -80 (230+50 -> 200)", shifts[1])
	}
}

func TestResolveCollisionsFixedFirst(t *testing.T) {
	// The fixed event claims its space even though it comes later in
	// read order; the movable one shifts around it.
	rects := []EventRect{
		{Layer: 0, ReadOrder: 0, Top: 100, Height: 50},
		{Layer: 0, ReadOrder: 1, Top: 100, Height: 50, Fixed: true},
	}
	shifts := ResolveCollisions(rects)
	if shifts[1] != 0 {
		t.Fatalf("fixed event shifted by %v", shifts[1])
	}
	if shifts[0] != 50 {
		t.Fatalf("movable event shifted by %v, want 50", shifts[0])
	}
}

func TestResolveCollisionsLayersIndependent(t *testing.T) {
	rects := []EventRect{
		{Layer: 0, Top: 100, Height: 50},
		{Layer: 1, Top: 100, Height: 50},
	}
	shifts := ResolveCollisions(rects)
	if shifts[0] != 0 || shifts[1] != 0 {
		t.Fatalf("cross-layer collision applied: %v", shifts)
	}
}
