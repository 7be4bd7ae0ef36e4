package ass

import "testing"

func TestColorPackedRoundTrip(t *testing.T) {
	c := Color{R: 0x12, G: 0x34, B: 0x56, A: 0x78}
	if got := FromPacked(c.Packed()); got != c {
		t.Fatalf("FromPacked(Packed()) = %+v, want %+v", got, c)
	}
	if got := (Color{R: 255, G: 255, B: 255}).Packed(); got != 0xFFFFFF00 {
		t.Fatalf("white Packed = %#x, want 0xFFFFFF00", got)
	}
}

func TestAlignmentComponents(t *testing.T) {
	tests := []struct {
		alignment int
		h, v      int
	}{
		{1, -1, -1},
		{2, 0, -1},
		{3, 1, -1},
		{4, -1, 0},
		{5, 0, 0},
		{6, 1, 0},
		{7, -1, 1},
		{8, 0, 1},
		{9, 1, 1},
	}
	for _, tt := range tests {
		if got := HAlign(tt.alignment); got != tt.h {
			t.Errorf("HAlign(%d) = %d, want %d", tt.alignment, got, tt.h)
		}
		if got := VAlign(tt.alignment); got != tt.v {
			t.Errorf("VAlign(%d) = %d, want %d", tt.alignment, got, tt.v)
		}
	}
}

func TestLegacyAlignment(t *testing.T) {
	tests := []struct {
		legacy, numpad int
	}{
		{1, 1}, {2, 2}, {3, 3},
		{5, 7}, {6, 8}, {7, 9},
		{9, 4}, {10, 5}, {11, 6},
		{0, 2}, {12, 2},
	}
	for _, tt := range tests {
		if got := LegacyAlignment(tt.legacy); got != tt.numpad {
			t.Errorf("LegacyAlignment(%d) = %d, want %d", tt.legacy, got, tt.numpad)
		}
	}
}

func TestEventActive(t *testing.T) {
	e := Event{Start: 1000, Duration: 500}
	if e.Active(999) {
		t.Error("active before start")
	}
	if !e.Active(1000) {
		t.Error("inactive at start")
	}
	if !e.Active(1499) {
		t.Error("inactive just before end")
	}
	if e.Active(1500) {
		t.Error("active at end (end is exclusive)")
	}
}

func TestParseEffect(t *testing.T) {
	e := ParseEffect("Scroll up;100;300;8;40")
	if e.Kind != EffectScrollUp || e.Y0 != 100 || e.Y1 != 300 || e.Delay != 8 || e.FadeAway != 40 {
		t.Fatalf("Scroll up parsed as %+v", e)
	}

	// Reversed bounds are normalized.
	e = ParseEffect("Scroll down;300;100;8")
	if e.Y0 != 100 || e.Y1 != 300 {
		t.Fatalf("reversed bounds not swapped: %+v", e)
	}

	e = ParseEffect("Banner;10;1;20")
	if e.Kind != EffectBannerLR || e.Delay != 10 || e.FadeAway != 20 {
		t.Fatalf("Banner LR parsed as %+v", e)
	}
	e = ParseEffect("Banner;10")
	if e.Kind != EffectBannerRL {
		t.Fatalf("default Banner direction = %v, want RL", e.Kind)
	}

	if e := ParseEffect("Karaoke"); e.Kind != EffectNone {
		t.Fatalf("unknown effect parsed as %v", e.Kind)
	}
	if e := ParseEffect(""); e.Kind != EffectNone {
		t.Fatalf("empty effect parsed as %v", e.Kind)
	}
}

func TestTrackStyleFor(t *testing.T) {
	tr := &Track{Styles: []Style{{Name: "Default"}, {Name: "Alt"}}}
	if got := tr.StyleFor(Event{Style: 1}); got.Name != "Alt" {
		t.Fatalf("StyleFor(1) = %q", got.Name)
	}
	if got := tr.StyleFor(Event{Style: 7}); got.Name != "Default" {
		t.Fatalf("out-of-range style fallback = %q, want first style", got.Name)
	}
}
