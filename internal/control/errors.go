package control

import "errors"

// ErrNoSamples is returned when a controller is sampled with an empty history.
var ErrNoSamples = errors.New("control: no samples to act on")

func last(states []float64) (float64, error) {
	if len(states) == 0 {
		return 0, ErrNoSamples
	}
	return states[len(states)-1], nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
