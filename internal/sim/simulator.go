package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/san-kum/tanksim/internal/dynamo"
)

const maxPrealloc = 1 << 20

// Simulator drives a System with an Integrator and an optional sampled
// Controller. A Simulator runs one simulation at a time; a concurrent Run
// fails with dynamo.ErrBusy.
type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	progress   func(pct int)
	completion func(*dynamo.Results)
	logger     *slog.Logger

	status atomic.Int32
}

func New(sys dynamo.System, integrator dynamo.Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		sys:        sys,
		integrator: integrator,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Status() Status { return Status(s.status.Load()) }

func (s *Simulator) System() dynamo.System         { return s.sys }
func (s *Simulator) Integrator() dynamo.Integrator { return s.integrator }

func (s *Simulator) acquire() bool {
	for {
		cur := s.status.Load()
		if Status(cur) == StatusRunning {
			return false
		}
		if s.status.CompareAndSwap(cur, int32(StatusRunning)) {
			return true
		}
	}
}

// Run integrates from cfg.X0 until cfg.TotalTime. ctrl may be nil, in which
// case the action stays 0. The controller is sampled whenever the simulated
// time since its last sample reaches its period, and its action is held
// until the next sample.
func (s *Simulator) Run(ctx context.Context, cfg Config, ctrl dynamo.Controller) (*dynamo.Results, error) {
	if err := s.validateConfig(cfg, ctrl); err != nil {
		return nil, err
	}
	if !s.acquire() {
		return nil, dynamo.ErrBusy
	}

	res, status, err := s.run(ctx, cfg, ctrl)
	s.status.Store(int32(status))
	if err != nil {
		return nil, err
	}

	if s.completion != nil {
		s.completion(res)
	}
	return res, nil
}

func (s *Simulator) run(ctx context.Context, cfg Config, ctrl dynamo.Controller) (*dynamo.Results, Status, error) {
	limits := s.sys.Limits()
	start := time.Now()

	var (
		adaptive dynamo.AdaptiveIntegrator
		period   float64
		stepLim  = limits.Step
	)
	if cfg.Adaptive {
		adaptive = s.integrator.(dynamo.AdaptiveIntegrator)
	}
	if ctrl != nil {
		period = ctrl.SamplingPeriod()
		stepLim = dynamo.Between(MinStep, period)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	h := histories.Get(int(math.Min(math.Ceil(cfg.TotalTime/cfg.Dt)+2, maxPrealloc)))
	defer histories.Put(h)

	record := func(sample dynamo.Sample) {
		h.append(sample)
		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, o := range s.observers {
			o.OnSample(sample)
		}
	}

	x := cfg.X0
	action := 0.0
	elapsed, timer := 0.0, 0.0
	dt := cfg.Dt
	f := limits.Bind(s.sys, action)
	lastPct := 0
	steps := 0

	record(dynamo.Sample{Time: 0, State: x, Error: cfg.Setpoint - x, Action: action})

	s.logger.Debug("run started",
		"total_time", cfg.TotalTime, "dt", cfg.Dt, "adaptive", cfg.Adaptive,
		"x0", cfg.X0, "setpoint", cfg.Setpoint, "controlled", ctrl != nil)

	for elapsed < cfg.TotalTime {
		if err := ctx.Err(); err != nil {
			s.logger.Info("run canceled", "t", elapsed, "steps", steps)
			return nil, StatusCanceled, fmt.Errorf("%w at t=%.4f: %w", dynamo.ErrCanceled, elapsed, err)
		}

		var next float64
		if adaptive != nil {
			next, dt = adaptive.StepAdaptive(f, x, dt, cfg.Tolerance, stepLim)
		} else {
			next = s.integrator.Step(f, x, dt)
		}
		x = limits.State.Clamp(next)
		elapsed += dt
		timer += dt
		steps++

		record(dynamo.Sample{Time: elapsed, State: x, Error: cfg.Setpoint - x, Action: action})

		if ctrl != nil && timer >= period {
			timer -= period
			u, err := ctrl.CalculateAction(h.state, h.time, cfg.Setpoint)
			if err != nil {
				s.logger.Error("controller failed", "t", elapsed, "err", err)
				return nil, StatusFailed, &dynamo.SimulationError{Step: steps, Time: elapsed, State: x, Wrapped: err}
			}
			if u = limits.Action.Clamp(u); u != action {
				action = u
				f = limits.Bind(s.sys, action)
			}
		}

		if s.progress != nil {
			pct := int(math.Min(100, math.Floor(100*elapsed/cfg.TotalTime)))
			if pct > lastPct {
				lastPct = pct
				s.progress(pct)
			}
		}
	}

	values := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		values[m.Name()] = m.Value()
	}
	res, err := dynamo.NewResults(h.time, h.state, h.errs, h.action, values)
	if err != nil {
		return nil, StatusFailed, err
	}

	s.logger.Info("run finished",
		"steps", steps, "samples", res.Len(), "final_state", x, "elapsed", time.Since(start))
	return res, StatusFinished, nil
}
