// Package telemetry exports Prometheus metrics about simulation runs.
package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/tanksim/internal/dynamo"
)

const namespace = "tanksim"

// Run outcomes used as the status label.
const (
	OutcomeFinished = "finished"
	OutcomeCanceled = "canceled"
	OutcomeFailed   = "failed"
	OutcomeInvalid  = "invalid"
)

// Recorder holds the run metrics on a private registry, so several
// recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	Runs              *prometheus.CounterVec
	Steps             prometheus.Counter
	StepSize          prometheus.Histogram
	ControllerSamples prometheus.Counter
	ControllerErrors  prometheus.Counter
	RunDuration       prometheus.Histogram
	FinalError        prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Simulation runs by outcome",
			},
			[]string{"status"},
		),
		Steps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Integration steps recorded across all runs",
			},
		),
		StepSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_size_seconds",
				Help:      "Simulated time covered by one integration step",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
			},
		),
		ControllerSamples: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "controller_samples_total",
				Help:      "Controller invocations",
			},
		),
		ControllerErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "controller_errors_total",
				Help:      "Controller invocations that returned an error",
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock time of a run",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
		),
		FinalError: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "final_tracking_error",
				Help:      "Absolute tracking error at the end of the last finished run",
			},
		),
	}

	r.registry.MustRegister(
		r.Runs,
		r.Steps,
		r.StepSize,
		r.ControllerSamples,
		r.ControllerErrors,
		r.RunDuration,
		r.FinalError,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Outcome maps a run error to its status label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeFinished
	case errors.Is(err, dynamo.ErrCanceled):
		return OutcomeCanceled
	case errors.Is(err, dynamo.ErrControllerFailed):
		return OutcomeFailed
	}
	return OutcomeInvalid
}

// ObserveRun records the outcome of one run. res may be nil when err is set.
func (r *Recorder) ObserveRun(res *dynamo.Results, err error, wall time.Duration) {
	r.Runs.WithLabelValues(Outcome(err)).Inc()
	r.RunDuration.Observe(wall.Seconds())
	if err == nil && res != nil && res.Len() > 0 {
		e := res.Final().Error
		if e < 0 {
			e = -e
		}
		r.FinalError.Set(e)
	}
}

// RunObserver returns a sample observer for a single run. It tracks the
// previous sample, so each concurrent run needs its own.
func (r *Recorder) RunObserver() dynamo.Observer {
	return &stepObserver{rec: r}
}

type stepObserver struct {
	rec  *Recorder
	last float64
	seen bool
}

func (o *stepObserver) OnSample(s dynamo.Sample) {
	if !o.seen || s.Time < o.last {
		o.seen, o.last = true, s.Time
		return
	}
	o.rec.Steps.Inc()
	o.rec.StepSize.Observe(s.Time - o.last)
	o.last = s.Time
}

// InstrumentController wraps c so every invocation is counted. A nil
// controller stays nil.
func (r *Recorder) InstrumentController(c dynamo.Controller) dynamo.Controller {
	if c == nil {
		return nil
	}
	return &instrumented{Controller: c, rec: r}
}

type instrumented struct {
	dynamo.Controller
	rec *Recorder
}

func (c *instrumented) CalculateAction(states, times []float64, setpoint float64) (float64, error) {
	c.rec.ControllerSamples.Inc()
	u, err := c.Controller.CalculateAction(states, times, setpoint)
	if err != nil {
		c.rec.ControllerErrors.Inc()
	}
	return u, err
}

func (c *instrumented) Reset() {
	if r, ok := c.Controller.(dynamo.Resetter); ok {
		r.Reset()
	}
}

// WriteToTextfile writes the registry in the node_exporter textfile format.
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Handler serves the registry over HTTP.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
