package packet

import "testing"

func TestBitWidth(t *testing.T) {
	cases := []struct {
		min, max int64
		want     int
	}{
		{0, 1023, 10},
		{0, 0, 0},
		{0, 1, 1},
		{-1, 1, 2},
		{-128, 127, 8},
	}
	for _, c := range cases {
		f := FieldSpec{Min: c.min, Max: c.max}
		if got := f.BitWidth(); got != c.want {
			t.Errorf("BitWidth(min=%d, max=%d) = %d, want %d", c.min, c.max, got, c.want)
		}
	}
}

func TestPrototypeIndex(t *testing.T) {
	p := Prototype{Fields: []FieldSpec{
		{Path: "cartesianX", Kind: FieldFloat64},
		{Path: "cartesianY", Kind: FieldFloat64},
		{Path: "intensity", Kind: FieldInteger},
	}}
	if idx := p.Index("cartesianY"); idx != 1 {
		t.Errorf("Index(cartesianY) = %d, want 1", idx)
	}
	if idx := p.Index("nope"); idx != -1 {
		t.Errorf("Index(nope) = %d, want -1", idx)
	}
}
