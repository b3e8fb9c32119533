package integrators

import "github.com/san-kum/tanksim/internal/dynamo"

// Euler is the explicit first-order stepper. It is mostly useful as a
// baseline when comparing against RK4.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f dynamo.Derivative, x, dt float64) float64 {
	return x + dt*f(x)
}

func (e *Euler) Name() string { return "euler" }
