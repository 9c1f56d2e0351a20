// Package analysis looks at recorded flight signals after the fact.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation in a signal such
//     as throttle or velocity, a sign of an over-tuned controller
//   - [NewPhasePortrait] and [PhasePortraitToASCII]: velocity against
//     altitude for the descent profile
//   - [Summarize]: basic statistics of a signal
//
// Spectra are computed with github.com/mjibson/go-dsp/fft after removing
// the mean, applying a Hann window and zero-padding to a power of two:
//
//	freq, _ := analysis.DominantFrequency(throttle, lander.Dt)
package analysis
