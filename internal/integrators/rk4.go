package integrators

import "github.com/san-kum/tanksim/internal/dynamo"

// RK4 is the classical fixed-step fourth-order Runge-Kutta stepper.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(f dynamo.Derivative, x, dt float64) float64 {
	k1 := f(x)
	k2 := f(x + dt*0.5*k1)
	k3 := f(x + dt*0.5*k2)
	k4 := f(x + dt*k3)

	return x + dt/6.0*(k1+2*k2+2*k3+k4)
}

func (r *RK4) Name() string { return "rk4" }
