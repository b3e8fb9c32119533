package integrators

import (
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
const (
	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	// difference between the 5th and 4th order weights
	e1 = 71.0 / 57600.0
	e3 = -71.0 / 16695.0
	e4 = 71.0 / 1920.0
	e5 = -17253.0 / 339200.0
	e6 = 22.0 / 525.0
	e7 = -1.0 / 40.0
)

const safety = 0.9

// RK45 is the embedded Dormand-Prince 4(5) pair. Every step is accepted;
// the error estimate only steers the size of the next one.
type RK45 struct{}

func NewRK45() *RK45 {
	return &RK45{}
}

func (r *RK45) Name() string { return "rk45" }

// Step advances by dt with the fifth-order solution and never adapts.
func (r *RK45) Step(f dynamo.Derivative, x, dt float64) float64 {
	next, _ := r.step(f, x, dt)
	return next
}

// StepAdaptive returns the fifth-order solution after dt and the proposed
// next step, clamped to step.
func (r *RK45) StepAdaptive(f dynamo.Derivative, x, dt, tol float64, step dynamo.Bounds) (float64, float64) {
	next, e := r.step(f, x, dt)
	return next, step.Clamp(NextStep(e, tol, dt))
}

func (r *RK45) step(f dynamo.Derivative, x, dt float64) (float64, float64) {
	k1 := f(x)
	k2 := f(x + dt*b21*k1)
	k3 := f(x + dt*(b31*k1+b32*k2))
	k4 := f(x + dt*(b41*k1+b42*k2+b43*k3))
	k5 := f(x + dt*(b51*k1+b52*k2+b53*k3+b54*k4))
	k6 := f(x + dt*(b61*k1+b62*k2+b63*k3+b64*k4+b65*k5))

	next := x + dt*(c1*k1+c3*k3+c4*k4+c5*k5+c6*k6)
	k7 := f(next)

	e := math.Abs(dt * (e1*k1 + e3*k3 + e4*k4 + e5*k5 + e6*k6 + e7*k7))
	return next, e
}

// NextStep is the step-size control law. A step whose error lies in
// [tol/10, tol] keeps its size; otherwise the size is rescaled by
// 0.9*(tol*dt/(2e))^(1/5), doubling at most and halving whenever the
// factor lands between 0.5 and 2.
func NextStep(e, tol, dt float64) float64 {
	if e == 0 {
		return 2 * dt
	}
	if e > tol || e < tol/10 {
		factor := safety * math.Pow(tol*dt/(2*e), 0.2)
		switch {
		case factor > 2:
			return 2 * dt
		case factor > 0.5:
			return dt / 2
		default:
			return factor * dt
		}
	}
	return dt
}
