package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// MinStep is the lower step bound in adaptive mode with a controller.
const MinStep = 1e-12

type Config struct {
	TotalTime float64
	Dt        float64
	X0        float64
	Setpoint  float64
	Tolerance float64
	Adaptive  bool
}

func DefaultConfig() Config {
	return Config{
		TotalTime: 30,
		Dt:        0.001,
		X0:        0,
		Setpoint:  0.7,
		Tolerance: 1e-6,
	}
}

func (s *Simulator) validateConfig(cfg Config, ctrl dynamo.Controller) error {
	for name, v := range map[string]float64{
		"total time": cfg.TotalTime, "dt": cfg.Dt, "x0": cfg.X0, "setpoint": cfg.Setpoint,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", dynamo.ErrInvalidConfig, name, v)
		}
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %v", dynamo.ErrInvalidConfig, cfg.Dt)
	}
	if cfg.TotalTime <= 0 {
		return fmt.Errorf("%w: total time must be positive, got %v", dynamo.ErrInvalidConfig, cfg.TotalTime)
	}
	if cfg.Adaptive {
		if cfg.Tolerance <= 0 {
			return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", dynamo.ErrInvalidConfig)
		}
		if _, ok := s.integrator.(dynamo.AdaptiveIntegrator); !ok {
			return fmt.Errorf("%w: integrator %T does not support adaptive stepping", dynamo.ErrInvalidConfig, s.integrator)
		}
	}
	if ctrl != nil {
		if p := ctrl.SamplingPeriod(); !(p > 0) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: controller sampling period must be positive, got %v", dynamo.ErrInvalidConfig, p)
		}
	}
	return nil
}
