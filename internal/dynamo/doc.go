// Package dynamo provides the core primitives of the tank simulator.
//
// The package defines the interfaces and types shared by every other
// package:
//
//   - [System]: a scalar ODE dx/dt = f(x, u) with saturation [Limits]
//   - [Integrator], [AdaptiveIntegrator]: numerical steppers
//   - [Controller]: a discretely sampled feedback law
//   - [Results]: the immutable record of one run
//
// # Example
//
//	tank, _ := physics.NewWaterTank(nil)
//	s := sim.New(tank, integrators.NewRK4())
//	res, _ := s.Run(ctx, sim.Config{TotalTime: 30, Dt: 0.001, Setpoint: 0.7}, pid)
//	fmt.Println(res.Final().State)
//
// # Thread Safety
//
// A Simulator runs one simulation at a time. Results are immutable and may
// be shared freely. For parallel runs use sim.Ensemble with one controller
// per run.
package dynamo
