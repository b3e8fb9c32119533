// Package optim tunes controller parameters by exhaustive grid search.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/experiment"
	"github.com/san-kum/tanksim/internal/sim"
)

var (
	ErrEmptyGrid     = errors.New("optim: empty grid")
	ErrNotTunable    = errors.New("optim: controller has no parameters to tune")
	ErrUnknownMetric = errors.New("optim: unknown metric")
)

// Axis is one controller parameter and the values tried for it.
type Axis struct {
	Name   string
	Values []float64
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

type GridSearch struct {
	axes []Axis
}

func NewGridSearch(axes ...Axis) *GridSearch {
	return &GridSearch{axes: axes}
}

// Candidates enumerates the cartesian product of the axes. The first axis
// varies slowest.
func (g *GridSearch) Candidates() []map[string]float64 {
	if len(g.axes) == 0 {
		return nil
	}
	var out []map[string]float64
	g.expand(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.axes) {
		*out = append(*out, current)
		return
	}
	axis := g.axes[depth]
	for _, v := range axis.Values {
		next := make(map[string]float64, len(current)+1)
		for k, cv := range current {
			next[k] = cv
		}
		next[axis.Name] = v
		g.expand(depth+1, next, out)
	}
}

// Candidate is one evaluated point of the grid.
type Candidate struct {
	Params map[string]float64
	Score  float64
}

// Outcome lists every candidate by ascending score.
type Outcome struct {
	Metric     string
	Best       Candidate
	Candidates []Candidate
}

// Search runs base once per candidate, each with a fresh controller whose
// parameters are base.ControllerParams overridden by the candidate, and
// returns the candidate minimising metric. Runs execute concurrently on at
// most workers goroutines.
func (g *GridSearch) Search(ctx context.Context, r *experiment.Registry, base *config.Config, metric string, workers int) (*Outcome, error) {
	grid := g.Candidates()
	if len(grid) == 0 {
		return nil, ErrEmptyGrid
	}

	exp, err := experiment.New(r, base)
	if err != nil {
		return nil, err
	}
	if exp.Controller() == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotTunable, base.Controller)
	}

	jobs := make([]sim.Job, len(grid))
	for i, params := range grid {
		merged := make(map[string]float64, len(base.ControllerParams)+len(params))
		for k, v := range base.ControllerParams {
			merged[k] = v
		}
		for k, v := range params {
			merged[k] = v
		}
		ctrl, err := r.GetController(base.Controller, merged)
		if err != nil {
			return nil, fmt.Errorf("candidate %v: %w", params, err)
		}
		jobs[i] = sim.Job{Config: experiment.SimConfig(base), Controller: ctrl}
	}

	ens := sim.NewEnsemble(exp.System(), exp.Integrator(), workers,
		func() []dynamo.Metric { return experiment.DefaultMetrics(base) })
	results, err := ens.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Metric: metric, Candidates: make([]Candidate, len(grid))}
	for i, res := range results {
		score, ok := res.Metric(metric)
		if !ok {
			return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownMetric, metric, res.MetricNames())
		}
		if math.IsNaN(score) {
			score = math.Inf(1)
		}
		out.Candidates[i] = Candidate{Params: grid[i], Score: score}
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		return out.Candidates[i].Score < out.Candidates[j].Score
	})
	out.Best = out.Candidates[0]
	return out, nil
}
