package rng

import "testing"

func TestPCGDeterministic(t *testing.T) {
	a, b := NewPCG(42), NewPCG(42)
	for i := 0; i < 100; i++ {
		x, y := a.Uniform(-2, 2), b.Uniform(-2, 2)
		if x != y {
			t.Fatalf("draw %d: %v != %v for the same seed", i, x, y)
		}
	}
}

func TestPCGRange(t *testing.T) {
	r := NewPCG(7)
	for i := 0; i < 10000; i++ {
		v := r.Uniform(-5, 5)
		if v < -5 || v >= 5 {
			t.Fatalf("value %v outside [-5, 5)", v)
		}
	}
}

func TestPCGReseed(t *testing.T) {
	r := NewPCG(1)
	first := r.Float64()
	r.Seed(1)
	if got := r.Float64(); got != first {
		t.Errorf("reseeding did not restart the stream: %v != %v", got, first)
	}
	if r.SeedValue() != 1 {
		t.Errorf("SeedValue() = %d, want 1", r.SeedValue())
	}
}

func TestZero(t *testing.T) {
	tests := []struct {
		lo, hi, want float64
	}{
		{-2, 2, 0},
		{0, 10, 0},
		{0, 360, 0},
		{5, 10, 5},
		{-10, -5, -5},
	}
	for _, tt := range tests {
		if got := (Zero{}).Uniform(tt.lo, tt.hi); got != tt.want {
			t.Errorf("Zero.Uniform(%v, %v) = %v, want %v", tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestSequence(t *testing.T) {
	s := NewSequence(0, 0.5, 0.75)
	want := []float64{-2, 0, 1, -2}
	for i, w := range want {
		if got := s.Uniform(-2, 2); got != w {
			t.Errorf("draw %d = %v, want %v", i, got, w)
		}
	}
	if s.Draws() != 4 {
		t.Errorf("Draws() = %d, want 4", s.Draws())
	}

	empty := NewSequence()
	if got := empty.Uniform(0, 10); got != 5 {
		t.Errorf("empty sequence = %v, want midpoint 5", got)
	}
}

func TestFunc(t *testing.T) {
	f := Func(func(lo, hi float64) float64 { return hi })
	if got := f.Uniform(1, 3); got != 3 {
		t.Errorf("Func.Uniform = %v, want 3", got)
	}
}
