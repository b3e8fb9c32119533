package control

import "github.com/san-kum/tanksim/internal/dynamo"

var ConstantFields = []dynamo.Param{
	{Name: "ts", Default: 0.1, Help: "sampling period in seconds", Positive: true},
	{Name: "u", Default: 0, Help: "valve opening"},
}

// Constant is an open-loop controller returning a fixed opening.
type Constant struct {
	Ts float64
	U  float64
}

func NewConstant(ts, u float64) *Constant {
	return &Constant{Ts: ts, U: u}
}

func (c *Constant) SamplingPeriod() float64 { return c.Ts }

func (c *Constant) CalculateAction(_, _ []float64, _ float64) (float64, error) {
	return c.U, nil
}
