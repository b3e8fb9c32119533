// Package automation runs scripted scenarios and one-parameter sweeps of
// the tank loop.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/tanksim/internal/analysis"
	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/experiment"
	"github.com/san-kum/tanksim/internal/optim"
	"github.com/san-kum/tanksim/internal/sim"
	"github.com/san-kum/tanksim/internal/storage"
)

var ErrUnknownTarget = errors.New("automation: unknown sweep target")

// Scenario is a scripted sequence of runs. Each step starts from a preset,
// or from Base when no preset is named, and applies its own overrides.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Base        *config.Config `yaml:"base,omitempty"`
	Steps       []Step         `yaml:"steps"`
}

// Step is one run of a scenario. Set holds config keys, in the config file
// format, that override the step's starting point.
type Step struct {
	Name   string    `yaml:"name"`
	Preset string    `yaml:"preset,omitempty"`
	Set    yaml.Node `yaml:"set,omitempty"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	return &sc, nil
}

// StepConfig resolves the configuration of step i.
func (sc *Scenario) StepConfig(i int) (*config.Config, error) {
	step := sc.Steps[i]

	var cfg *config.Config
	switch {
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("step %d: unknown preset %q (available: %v)", i+1, step.Preset, config.ListPresets())
		}
	case sc.Base != nil:
		cfg = sc.Base.Clone()
	default:
		cfg = config.DefaultConfig()
	}

	if !step.Set.IsZero() {
		if err := step.Set.Decode(cfg); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("step %d: %w", i+1, err)
	}
	return cfg, nil
}

// Runner executes scenarios and sweeps. Store, when set, receives every
// scenario run. Options are shared by concurrent sweep runs, so any
// observer or metric passed there must be safe for concurrent use.
type Runner struct {
	Registry *experiment.Registry
	Store    *storage.Store
	Logger   *slog.Logger
	Options  []sim.Option
}

func NewRunner(r *experiment.Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{Registry: r, Logger: logger}
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name    string
	RunID   string
	Config  *config.Config
	Results *dynamo.Results
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the steps completed so far.
func (r *Runner) RunScenario(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	out := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		cfg, err := sc.StepConfig(i)
		if err != nil {
			return out, err
		}
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		r.Logger.Info("scenario step", "scenario", sc.Name, "step", name, "n", i+1, "of", len(sc.Steps))

		res, err := r.run(ctx, cfg)
		if err != nil {
			return out, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}

		sr := StepResult{Name: name, Config: cfg, Results: res}
		if r.Store != nil {
			id, err := r.Store.Save(storage.NewMetadata(cfg, res), res)
			if err != nil {
				return out, fmt.Errorf("step %d (%s): %w", i+1, name, err)
			}
			sr.RunID = id
		}
		out = append(out, sr)
	}
	return out, nil
}

func (r *Runner) run(ctx context.Context, cfg *config.Config) (*dynamo.Results, error) {
	exp, err := experiment.New(r.Registry, cfg, r.Options...)
	if err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// Sweep varies one target between Min and Max in Steps values. Targets are
// "setpoint", "x0", "dt", "total_time", "tolerance", or a parameter named
// "controller.<name>" or "model.<name>".
type Sweep struct {
	Target  string
	Min     float64
	Max     float64
	Steps   int
	Workers int
}

func (s Sweep) Values() []float64 { return optim.Linspace(s.Min, s.Max, s.Steps) }

// SweepResult summarises one point of a sweep. The step response fields are
// NaN when the run starts at its setpoint.
type SweepResult struct {
	Value    float64
	Final    dynamo.Sample
	Metrics  map[string]float64
	Response analysis.StepMetrics
}

func noResponse() analysis.StepMetrics {
	nan := math.NaN()
	return analysis.StepMetrics{
		RiseTime:         nan,
		PeakTime:         nan,
		Peak:             nan,
		Overshoot:        nan,
		SettlingTime:     nan,
		SteadyStateError: nan,
	}
}

// Apply returns a copy of base with the sweep target set to v.
func Apply(base *config.Config, target string, v float64) (*config.Config, error) {
	cfg := base.Clone()
	switch {
	case target == "setpoint":
		cfg.Setpoint = v
	case target == "x0":
		cfg.X0 = v
	case target == "dt":
		cfg.Dt = v
	case target == "total_time":
		cfg.TotalTime = v
	case target == "tolerance":
		cfg.Tolerance = v
	case strings.HasPrefix(target, "controller."):
		if cfg.ControllerParams == nil {
			cfg.ControllerParams = map[string]float64{}
		}
		cfg.ControllerParams[strings.TrimPrefix(target, "controller.")] = v
	case strings.HasPrefix(target, "model."):
		if cfg.ModelParams == nil {
			cfg.ModelParams = map[string]float64{}
		}
		cfg.ModelParams[strings.TrimPrefix(target, "model.")] = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return cfg, nil
}

// RunSweep evaluates every sweep value concurrently. Results are in value
// order; the first failure cancels the rest.
func (r *Runner) RunSweep(ctx context.Context, base *config.Config, s Sweep) ([]SweepResult, error) {
	values := s.Values()
	configs := make([]*config.Config, len(values))
	for i, v := range values {
		cfg, err := Apply(base, s.Target, v)
		if err != nil {
			return nil, err
		}
		configs[i] = cfg
	}

	out := make([]SweepResult, len(values))
	g, ctx := errgroup.WithContext(ctx)
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}
	for i, cfg := range configs {
		g.Go(func() error {
			res, err := r.run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", s.Target, values[i], err)
			}
			resp, err := analysis.StepResponse(res, cfg.Setpoint)
			if err != nil {
				resp = noResponse()
			}
			out[i] = SweepResult{Value: values[i], Final: res.Final(), Metrics: res.Metrics(), Response: resp}
			r.Logger.Debug("sweep point", "target", s.Target, "value", values[i], "final", res.Final().State)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Bifurcation sweeps the target and records the level extrema over the
// final tail fraction of each run.
func (r *Runner) Bifurcation(ctx context.Context, base *config.Config, s Sweep, tail, resolution float64) ([]analysis.BifurcationPoint, error) {
	run := func(ctx context.Context, v float64) (*dynamo.Results, error) {
		cfg, err := Apply(base, s.Target, v)
		if err != nil {
			return nil, err
		}
		return r.run(ctx, cfg)
	}
	return analysis.BifurcationDiagram(ctx, s.Values(), run, tail, resolution)
}
