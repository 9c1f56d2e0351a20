// Package rng provides the randomness sources the lander model draws its
// noise from.
//
// Every random quantity in the simulation (velocity noise, attitude drift,
// temperature and wind random walks, the initial wind) is requested through
// [Source], so a run is reproducible from its seed and tests can swap in
// [Zero] or a [Sequence] to make trajectories exact.
package rng

import (
	"time"

	"github.com/MichaelTJones/pcg"
)

// Source yields uniformly distributed reals in [lo, hi).
type Source interface {
	Uniform(lo, hi float64) float64
}

// Func adapts a plain function to a Source.
type Func func(lo, hi float64) float64

func (f Func) Uniform(lo, hi float64) float64 { return f(lo, hi) }

// PCG is a seedable Source backed by a PCG32 generator.
type PCG struct {
	r    *pcg.PCG32
	seed int64
}

func NewPCG(seed int64) *PCG {
	p := &PCG{r: pcg.NewPCG32()}
	p.Seed(seed)
	return p
}

// NewTimeSeeded returns a PCG seeded from the wall clock.
func NewTimeSeeded() *PCG {
	return NewPCG(time.Now().UnixNano())
}

func (p *PCG) Seed(s int64) {
	p.seed = s
	p.r.Seed(uint64(s), 0xda3e39cb94b95bdb)
}

// SeedValue reports the seed the generator was last seeded with.
func (p *PCG) SeedValue() int64 { return p.seed }

// Float64 returns a value in [0, 1).
func (p *PCG) Float64() float64 {
	return float64(p.r.Random()) / (1 << 32)
}

func (p *PCG) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*p.Float64()
}

// Zero is a noise-free Source: it returns 0 when 0 lies in [lo, hi] and the
// nearest bound otherwise.
type Zero struct{}

func (Zero) Uniform(lo, hi float64) float64 {
	switch {
	case lo > 0:
		return lo
	case hi < 0:
		return hi
	}
	return 0
}

// Sequence replays fractions in [0, 1) scaled into the requested range,
// cycling when exhausted. An empty Sequence behaves like a constant 0.5.
type Sequence struct {
	Fractions []float64
	next      int
}

func NewSequence(fractions ...float64) *Sequence {
	return &Sequence{Fractions: fractions}
}

func (s *Sequence) Uniform(lo, hi float64) float64 {
	f := 0.5
	if len(s.Fractions) > 0 {
		f = s.Fractions[s.next%len(s.Fractions)]
		s.next++
	}
	return lo + (hi-lo)*f
}

// Draws reports how many values have been taken from the sequence.
func (s *Sequence) Draws() int { return s.next }
