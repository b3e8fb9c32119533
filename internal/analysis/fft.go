package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// PowerSpectrum returns |X_k|^2 for k = 0..n/2 of a Hann-windowed,
// mean-removed copy of data.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}

	x := make([]float64, n)
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)
	for i, v := range data {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	spectrum := fft.FFTReal(x)
	power := make([]float64, n/2+1)
	for k := range power {
		a := cmplx.Abs(spectrum[k])
		power[k] = a * a
	}
	return power
}

// DominantFrequency returns the frequency in Hz of the strongest component
// of the tracking error, sampled every dt seconds. ok is false when the
// error carries no oscillation.
func DominantFrequency(res *dynamo.Results, dt float64) (freq float64, ok bool) {
	_, _, errs := Resample(res, dt)
	if len(errs) < 4 {
		return 0, false
	}

	power := PowerSpectrum(errs)
	best := 0
	total := 0.0
	for k := 1; k < len(power); k++ {
		total += power[k]
		if best == 0 || power[k] > power[best] {
			best = k
		}
	}
	if best == 0 || total == 0 || power[best] < 1e-12 {
		return 0, false
	}
	return float64(best) / (float64(len(errs)) * dt), true
}
