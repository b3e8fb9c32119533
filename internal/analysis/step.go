package analysis

import (
	"errors"
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// ErrNoStep is returned when the run starts at its setpoint.
var ErrNoStep = errors.New("analysis: initial state equals setpoint")

// SettlingBand is the relative band used for the settling time.
const SettlingBand = 0.02

// StepMetrics summarizes a step response. RiseTime spans 10% to 90% of the
// step, Overshoot is in percent of the step size and SettlingTime is NaN
// when the run never settles.
type StepMetrics struct {
	RiseTime         float64
	PeakTime         float64
	Peak             float64
	Overshoot        float64
	SettlingTime     float64
	Settled          bool
	SteadyStateError float64
}

// StepResponse characterizes the response of res to a step from its first
// state to setpoint.
func StepResponse(res *dynamo.Results, setpoint float64) (StepMetrics, error) {
	if res.Len() < 2 {
		return StepMetrics{}, errors.New("analysis: need at least two samples")
	}
	times, states := res.Times(), res.States()
	x0 := states[0]
	step := setpoint - x0
	if step == 0 {
		return StepMetrics{}, ErrNoStep
	}

	norm := func(x float64) float64 { return (x - x0) / step }

	m := StepMetrics{
		RiseTime:         crossing(times, states, norm, 0.9) - crossing(times, states, norm, 0.1),
		SteadyStateError: setpoint - states[len(states)-1],
	}

	peak := 0
	for i, x := range states {
		if norm(x) > norm(states[peak]) {
			peak = i
		}
	}
	m.Peak, m.PeakTime = states[peak], times[peak]
	m.Overshoot = math.Max(0, norm(states[peak])-1) * 100

	band := SettlingBand * math.Abs(step)
	last := -1
	for i, x := range states {
		if math.Abs(x-setpoint) > band {
			last = i
		}
	}
	switch {
	case last == len(states)-1:
		m.SettlingTime = math.NaN()
	case last < 0:
		m.Settled = true
	default:
		m.Settled = true
		m.SettlingTime = times[last+1]
	}
	return m, nil
}

// crossing returns the interpolated time at which the normalized response
// first reaches level, or NaN if it never does.
func crossing(times, states []float64, norm func(float64) float64, level float64) float64 {
	for i := 1; i < len(states); i++ {
		a, b := norm(states[i-1]), norm(states[i])
		if b >= level && a < level {
			return times[i-1] + (level-a)/(b-a)*(times[i]-times[i-1])
		}
	}
	return math.NaN()
}
