// Package physics provides the plant models driven by the simulator.
//
// Each model implements [dynamo.System]: an unbounded derivative plus the
// saturation limits applied around it. [WaterTank] is the reference plant;
// it also implements [dynamo.Configurable] for runtime parameter changes.
//
//	tank, err := physics.NewWaterTank(map[string]float64{"max_height": 2})
//	if err != nil {
//	    return err
//	}
//	f := dynamo.Bind(tank, 0.5)
package physics
