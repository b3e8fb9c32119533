// Package control provides the sampled feedback controllers for the tank.
//
// Controllers implement [dynamo.Controller]. The simulator calls
// CalculateAction once per sampling period and holds the returned action
// until the next sample:
//
//   - [PID]: proportional-integral-derivative, output clamped to [0, 1]
//   - [OnOff]: bang-bang switch at the setpoint
//   - [OnOffHold]: bang-bang with a hysteresis band
//   - [Constant]: open-loop fixed opening
//   - [Manual]: opening set from outside, for interactive use
//
// # Usage
//
//	pid := control.NewPID(0.1, 8, 1, 0.1) // Ts, Kp, Ki, Kv
//	res, err := sim.New(tank, integrators.NewRK4()).Run(ctx, cfg, pid)
//
// Each field list (PIDFields, OnOffFields, ...) declares the named
// parameters accepted by the matching constructor in package experiment.
// Controllers implementing [dynamo.Configurable] support live tuning.
package control
