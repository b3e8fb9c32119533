package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// Job is one independent run of an Ensemble. Controllers carry state, so
// every job needs its own instance.
type Job struct {
	Config     Config
	Controller dynamo.Controller
}

// Ensemble runs independent simulations of the same system concurrently.
// Each job gets its own Simulator; the system must not be modified while an
// ensemble is running.
type Ensemble struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	workers    int
	metrics    func() []dynamo.Metric
	opts       []Option
}

// NewEnsemble bounds concurrency to workers, or GOMAXPROCS if workers <= 0.
// metrics, when set, is called once per job so no metric is shared.
func NewEnsemble(sys dynamo.System, integrator dynamo.Integrator, workers int, metrics func() []dynamo.Metric, opts ...Option) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{sys: sys, integrator: integrator, workers: workers, metrics: metrics, opts: opts}
}

// Run returns one result per job, in job order. The first failure cancels
// the remaining jobs and is returned.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*dynamo.Results, error) {
	results := make([]*dynamo.Results, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, job := range jobs {
		g.Go(func() error {
			opts := append([]Option(nil), e.opts...)
			if e.metrics != nil {
				opts = append(opts, WithMetrics(e.metrics()...))
			}
			s := New(e.sys, e.integrator, opts...)

			res, err := s.Run(ctx, job.Config, job.Controller)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
