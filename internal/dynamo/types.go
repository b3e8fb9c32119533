package dynamo

import (
	"fmt"
	"math"
)

// Bounds is an optional [Min, Max] pair. A side that is not set leaves
// values unbounded on that side.
type Bounds struct {
	Min, Max       float64
	HasMin, HasMax bool
}

func Unbounded() Bounds { return Bounds{} }

func Between(lo, hi float64) Bounds {
	return Bounds{Min: lo, Max: hi, HasMin: true, HasMax: true}
}

func AtLeast(lo float64) Bounds { return Bounds{Min: lo, HasMin: true} }

func AtMost(hi float64) Bounds { return Bounds{Max: hi, HasMax: true} }

// Clamp applies the lower bound first and the upper bound second.
func (b Bounds) Clamp(v float64) float64 {
	if b.HasMin {
		v = math.Max(b.Min, v)
	}
	if b.HasMax {
		v = math.Min(b.Max, v)
	}
	return v
}

func (b Bounds) Contains(v float64) bool {
	if b.HasMin && v < b.Min {
		return false
	}
	if b.HasMax && v > b.Max {
		return false
	}
	return true
}

func (b Bounds) String() string {
	lo, hi := "-inf", "+inf"
	if b.HasMin {
		lo = fmt.Sprintf("%g", b.Min)
	}
	if b.HasMax {
		hi = fmt.Sprintf("%g", b.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

// Quantity names a saturable quantity of a simulation.
type Quantity string

const (
	QuantityDerivative Quantity = "derivative"
	QuantityState      Quantity = "state"
	QuantityAction     Quantity = "action"
	QuantityStep       Quantity = "step"
)

var Quantities = []Quantity{QuantityDerivative, QuantityState, QuantityAction, QuantityStep}

func ParseQuantity(s string) (Quantity, error) {
	for _, q := range Quantities {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: unknown quantity %q", ErrInvalidConfig, s)
}

// Limits holds the saturation bounds of a system. It is a value type: a run
// captures a copy when it starts, so later changes never leak into it.
type Limits struct {
	Derivative Bounds
	State      Bounds
	Action     Bounds
	Step       Bounds
}

func (l Limits) For(q Quantity) Bounds {
	switch q {
	case QuantityDerivative:
		return l.Derivative
	case QuantityState:
		return l.State
	case QuantityAction:
		return l.Action
	case QuantityStep:
		return l.Step
	}
	return Unbounded()
}

// With returns a copy of l with the bounds of q replaced.
func (l Limits) With(q Quantity, b Bounds) Limits {
	switch q {
	case QuantityDerivative:
		l.Derivative = b
	case QuantityState:
		l.State = b
	case QuantityAction:
		l.Action = b
	case QuantityStep:
		l.Step = b
	}
	return l
}

// System is a single-state dynamical system dx/dt = f(x, u).
type System interface {
	// UnboundedDerivative is the model physics. Implementations guard their
	// own mathematical domain.
	UnboundedDerivative(x, u float64) float64
	Limits() Limits
}

// BoundedDerivative evaluates the model derivative and saturates it against
// the derivative limit.
func BoundedDerivative(sys System, x, u float64) float64 {
	return sys.Limits().Derivative.Clamp(sys.UnboundedDerivative(x, u))
}

// Derivative is a one-argument derivative with the control action already
// applied.
type Derivative func(x float64) float64

// Bind holds u constant and returns the bounded derivative in x.
func Bind(sys System, u float64) Derivative {
	return sys.Limits().Bind(sys, u)
}

// Bind is like the package-level Bind but saturates against l instead of
// the system's current limits.
func (l Limits) Bind(sys System, u float64) Derivative {
	bounds := l.Derivative
	return func(x float64) float64 {
		return bounds.Clamp(sys.UnboundedDerivative(x, u))
	}
}

type Integrator interface {
	Step(f Derivative, x, dt float64) float64
}

// AdaptiveIntegrator proposes the next step size from a local error
// estimate. The proposal is clamped to step before it is returned.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(f Derivative, x, dt, tol float64, step Bounds) (float64, float64)
}

// Controller is sampled by the simulator every SamplingPeriod seconds of
// simulated time. states and times are read-only views of the history so
// far and must not be retained.
type Controller interface {
	SamplingPeriod() float64
	CalculateAction(states, times []float64, setpoint float64) (float64, error)
}

// Resetter is implemented by controllers carrying integral or memory state.
type Resetter interface {
	Reset()
}

// Sample is one recorded row of a run.
type Sample struct {
	Time   float64
	State  float64
	Error  float64
	Action float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnSample(s Sample)
}

// Configurable exposes named parameters for live tuning.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
