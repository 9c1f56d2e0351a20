package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// prepare removes the mean, applies a Hann window and zero-pads to a power
// of two.
func prepare(samples []float64) []float64 {
	n := len(samples)
	out := make([]float64, NextPow2(n))
	if n == 0 {
		return out
	}
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	for i, v := range samples {
		window := 1.0
		if n > 1 {
			window = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		}
		out[i] = (v - mean) * window
	}
	return out
}

// PowerSpectrum returns the magnitude of the first half of the spectrum of
// samples. Bin k corresponds to k/(N*dt) Hz where N = len(result)*2.
func PowerSpectrum(samples []float64) []float64 {
	if len(samples) < 2 {
		return nil
	}
	spectrum := fft.FFTReal(prepare(samples))
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency finds the strongest non-DC component of samples taken
// every dt seconds. It returns 0, 0 when the signal is constant or too short.
func DominantFrequency(samples []float64, dt float64) (freq, power float64) {
	ps := PowerSpectrum(samples)
	if len(ps) < 2 || dt <= 0 {
		return 0, 0
	}
	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > power {
			power = ps[k]
			best = k
		}
	}
	if best == 0 || power < 1e-12 {
		return 0, 0
	}
	return float64(best) / (float64(2*len(ps)) * dt), power
}

type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

func Summarize(samples []float64) Summary {
	s := Summary{N: len(samples)}
	if s.N == 0 {
		return s
	}
	s.Min, s.Max = samples[0], samples[0]
	for _, v := range samples {
		s.Mean += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean /= float64(s.N)
	for _, v := range samples {
		d := v - s.Mean
		s.StdDev += d * d
	}
	s.StdDev = math.Sqrt(s.StdDev / float64(s.N))
	return s
}
