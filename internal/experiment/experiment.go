package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/metrics"
	"github.com/san-kum/tanksim/internal/sim"
)

// limitSetter is implemented by models whose saturation limits can be
// overridden from configuration.
type limitSetter interface {
	SetLimit(q dynamo.Quantity, b dynamo.Bounds)
}

// Experiment is one configured run: a model, a stepper and a controller
// resolved from a config.Config.
type Experiment struct {
	cfg        *config.Config
	sys        dynamo.System
	integrator dynamo.Integrator
	controller dynamo.Controller
	simulator  *sim.Simulator
}

// New resolves every name in cfg against r. The default metrics are always
// attached; opts are passed through to the simulator.
func New(r *Registry, cfg *config.Config, opts ...sim.Option) (*Experiment, error) {
	sys, err := r.GetModel(cfg.Model, cfg.ModelParams)
	if err != nil {
		return nil, err
	}
	if len(cfg.Limits) > 0 {
		ls, ok := sys.(limitSetter)
		if !ok {
			return nil, fmt.Errorf("model %s does not accept limit overrides", cfg.Model)
		}
		limits, err := cfg.ApplyLimits(sys.Limits())
		if err != nil {
			return nil, err
		}
		for _, q := range dynamo.Quantities {
			ls.SetLimit(q, limits.For(q))
		}
	}

	integ, err := r.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := r.GetController(cfg.Controller, cfg.ControllerParams)
	if err != nil {
		return nil, err
	}

	opts = append([]sim.Option{sim.WithMetrics(DefaultMetrics(cfg)...)}, opts...)
	return &Experiment{
		cfg:        cfg,
		sys:        sys,
		integrator: integ,
		controller: ctrl,
		simulator:  sim.New(sys, integ, opts...),
	}, nil
}

// DefaultMetrics returns fresh metrics with a stability band of 2% of the
// setpoint.
func DefaultMetrics(cfg *config.Config) []dynamo.Metric {
	band := 0.02 * math.Abs(cfg.Setpoint)
	if band == 0 {
		band = 0.02
	}
	return metrics.Defaults(band)
}

func SimConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		TotalTime: cfg.TotalTime,
		Dt:        cfg.Dt,
		X0:        cfg.X0,
		Setpoint:  cfg.Setpoint,
		Tolerance: cfg.Tolerance,
		Adaptive:  cfg.Adaptive,
	}
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Results, error) {
	return e.simulator.Run(ctx, SimConfig(e.cfg), e.controller)
}

// WrapController replaces the resolved controller with fn applied to it.
// fn receives nil for open-loop configurations.
func (e *Experiment) WrapController(fn func(dynamo.Controller) dynamo.Controller) {
	e.controller = fn(e.controller)
}

func (e *Experiment) Config() *config.Config        { return e.cfg }
func (e *Experiment) System() dynamo.System         { return e.sys }
func (e *Experiment) Integrator() dynamo.Integrator { return e.integrator }
func (e *Experiment) Controller() dynamo.Controller { return e.controller }
func (e *Experiment) Simulator() *sim.Simulator     { return e.simulator }
