package control

import "github.com/san-kum/tanksim/internal/dynamo"

var OnOffFields = []dynamo.Param{
	{Name: "ts", Default: 0.1, Help: "sampling period in seconds", Positive: true},
}

var OnOffHoldFields = []dynamo.Param{
	{Name: "ts", Default: 0.1, Help: "sampling period in seconds", Positive: true},
	{Name: "r", Default: 0.1, Help: "relative half-width of the hysteresis band"},
}

// OnOff opens the valve fully below the setpoint and closes it above.
type OnOff struct {
	Ts float64
}

func NewOnOff(ts float64) *OnOff { return &OnOff{Ts: ts} }

func (c *OnOff) SamplingPeriod() float64 { return c.Ts }

func (c *OnOff) CalculateAction(states, _ []float64, setpoint float64) (float64, error) {
	x, err := last(states)
	if err != nil {
		return 0, err
	}
	if x > setpoint {
		return 0, nil
	}
	return 1, nil
}

// OnOffHold is an on/off controller with hysteresis. While filling it keeps
// the valve open up to sp*(1+R); while draining it keeps it closed down to
// sp*(1-R).
type OnOffHold struct {
	Ts float64
	R  float64

	draining bool
}

func NewOnOffHold(ts, r float64) *OnOffHold {
	return &OnOffHold{Ts: ts, R: r}
}

func (c *OnOffHold) SamplingPeriod() float64 { return c.Ts }

func (c *OnOffHold) CalculateAction(states, _ []float64, setpoint float64) (float64, error) {
	x, err := last(states)
	if err != nil {
		return 0, err
	}

	if !c.draining {
		if x <= setpoint*(1+c.R) {
			return 1, nil
		}
		c.draining = true
		return 0, nil
	}
	if x >= setpoint*(1-c.R) {
		return 0, nil
	}
	c.draining = false
	return 1, nil
}

func (c *OnOffHold) Reset() { c.draining = false }
