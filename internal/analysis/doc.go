// Package analysis post-processes recorded runs.
//
// The package includes tools for characterizing a closed loop:
//
//   - [StepResponse]: rise time, overshoot, settling time and offset
//   - [Resample]: uniform-grid interpolation of adaptive runs
//   - [DominantFrequency]: oscillation frequency of the tracking error
//   - [PhasePortrait]: level against its rate of change
//   - [BifurcationDiagram]: limit-cycle extrema across a parameter sweep
//
// # Limit Cycles
//
// On/off controllers never settle; the level oscillates around the setpoint:
//
//	f, ok := analysis.DominantFrequency(res, 0.01)
//	if ok {
//	    fmt.Printf("period %.2fs\n", 1/f)
//	}
package analysis
