package metrics

import "github.com/san-kum/tanksim/internal/dynamo"

// Overshoot is the largest distance the level rose above the setpoint.
type Overshoot struct {
	peak float64
}

func NewOvershoot() *Overshoot { return &Overshoot{} }

func (o *Overshoot) Name() string { return "max_overshoot" }

func (o *Overshoot) Observe(s dynamo.Sample) {
	if -s.Error > o.peak {
		o.peak = -s.Error
	}
}

func (o *Overshoot) Value() float64 { return o.peak }

func (o *Overshoot) Reset() { o.peak = 0 }

// Defaults returns a fresh instance of every metric. band is the half-width
// used by Stability.
func Defaults(band float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewIAE(),
		NewISE(),
		NewControlEffort(),
		NewStability(band),
		NewOvershoot(),
	}
}
