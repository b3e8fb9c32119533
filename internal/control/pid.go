package control

import (
	"fmt"

	"github.com/san-kum/tanksim/internal/dynamo"
)

var PIDFields = []dynamo.Param{
	{Name: "ts", Default: 0.1, Help: "sampling period in seconds", Positive: true},
	{Name: "kp", Default: 8, Help: "proportional gain"},
	{Name: "ki", Default: 1, Help: "integral gain"},
	{Name: "kv", Default: 0.1, Help: "derivative gain"},
}

// PID is a discrete PID controller with a valve output in [0, 1]. The
// integral accumulates e*Ts and the derivative is the backward difference
// of the error over one period.
type PID struct {
	Ts float64
	Kp float64
	Ki float64
	Kv float64

	integral float64
	prevErr  float64
}

func NewPID(ts, kp, ki, kv float64) *PID {
	return &PID{Ts: ts, Kp: kp, Ki: ki, Kv: kv}
}

func NewPIDFromParams(p dynamo.Params) *PID {
	return NewPID(p.Get("ts"), p.Get("kp"), p.Get("ki"), p.Get("kv"))
}

func (p *PID) SamplingPeriod() float64 { return p.Ts }

func (p *PID) CalculateAction(states, _ []float64, setpoint float64) (float64, error) {
	x, err := last(states)
	if err != nil {
		return 0, err
	}

	e := setpoint - x
	p.integral += e * p.Ts
	derivative := (e - p.prevErr) / p.Ts
	p.prevErr = e

	return clamp(p.Kp*e+p.Kv*derivative+p.Ki*p.integral, 0, 1), nil
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"ts": p.Ts,
		"kp": p.Kp,
		"ki": p.Ki,
		"kv": p.Kv,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "ts":
		if value <= 0 {
			return fmt.Errorf("%w: ts must be positive, got %g", dynamo.ErrInvalidParam, value)
		}
		p.Ts = value
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kv":
		p.Kv = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
