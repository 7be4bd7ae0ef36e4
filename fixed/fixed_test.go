package fixed

import "testing"

func TestFromFloatRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 40.5, -0.015625, 1000.984375}
	for _, v := range cases {
		p := FromFloat(v)
		got := p.ToFloat()
		if diff := got - v; diff > 1.0/64 || diff < -1.0/64 {
			t.Errorf("FromFloat(%v).ToFloat() = %v, want within 1/64 of %v", v, got, v)
		}
	}
}

func TestIntFrac(t *testing.T) {
	p := FromFloat(10.25)
	if p.Int() != 10 {
		t.Errorf("Int() = %d, want 10", p.Int())
	}
	if p.Frac() != 16 {
		t.Errorf("Frac() = %d, want 16 (0.25*64)", p.Frac())
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		in   float64
		want int32
	}{
		{10.4, 10},
		{10.5, 11},
		{10.6, 11},
	}
	for _, c := range cases {
		p := FromFloat(c.in)
		if got := p.Round().Int(); got != c.want {
			t.Errorf("Round(%v).Int() = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestInRange(t *testing.T) {
	if !InRange(0) || !InRange(MaxCoord - 1) || !InRange(-MaxCoord + 1) {
		t.Error("InRange rejected values within bounds")
	}
	if InRange(MaxCoord) || InRange(-MaxCoord) {
		t.Error("InRange accepted out-of-bounds values")
	}
}

func TestMulDiv(t *testing.T) {
	if got := MulDiv(10, 10, 5); got != 20 {
		t.Errorf("MulDiv(10,10,5) = %d, want 20", got)
	}
	if got := MulDiv(-10, 10, 3); got != -33 {
		t.Errorf("MulDiv(-10,10,3) = %d, want -33", got)
	}
}

func TestClamp255(t *testing.T) {
	if Clamp255(-5) != 0 {
		t.Error("Clamp255(-5) != 0")
	}
	if Clamp255(300) != 255 {
		t.Error("Clamp255(300) != 255")
	}
	if Clamp255(128) != 128 {
		t.Error("Clamp255(128) != 128")
	}
}
