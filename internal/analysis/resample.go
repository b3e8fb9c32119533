package analysis

import (
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// Resample linearly interpolates the state and tracking error of res onto a
// uniform grid with spacing dt, starting at the first sample.
func Resample(res *dynamo.Results, dt float64) (times, states, errs []float64) {
	if res.Len() == 0 || dt <= 0 {
		return nil, nil, nil
	}
	src, xs, es := res.Times(), res.States(), res.TrackingErrors()

	n := int(math.Floor((src[len(src)-1]-src[0])/dt)) + 1
	times = make([]float64, n)
	states = make([]float64, n)
	errs = make([]float64, n)

	j := 0
	for i := 0; i < n; i++ {
		t := src[0] + float64(i)*dt
		for j+1 < len(src)-1 && src[j+1] < t {
			j++
		}
		times[i] = t
		if j+1 >= len(src) || src[j+1] == src[j] {
			states[i], errs[i] = xs[j], es[j]
			continue
		}
		w := (t - src[j]) / (src[j+1] - src[j])
		w = math.Max(0, math.Min(1, w))
		states[i] = xs[j] + w*(xs[j+1]-xs[j])
		errs[i] = es[j] + w*(es[j+1]-es[j])
	}
	return times, states, errs
}
