package dynamo

import (
	"fmt"
	"math"
	"sort"
)

// Results is the immutable record of a finished run. Every column has one
// entry per recorded sample, the first being the initial condition.
type Results struct {
	time    []float64
	state   []float64
	errs    []float64
	action  []float64
	metrics map[string]float64
}

// NewResults copies the columns and metric values into a new record.
func NewResults(time, state, errs, action []float64, metrics map[string]float64) (*Results, error) {
	n := len(time)
	if len(state) != n || len(errs) != n || len(action) != n {
		return nil, fmt.Errorf("%w: time=%d state=%d error=%d action=%d",
			ErrLengthMismatch, n, len(state), len(errs), len(action))
	}
	r := &Results{
		time:    clone(time),
		state:   clone(state),
		errs:    clone(errs),
		action:  clone(action),
		metrics: make(map[string]float64, len(metrics)),
	}
	for k, v := range metrics {
		r.metrics[k] = v
	}
	return r, nil
}

// FromSamples builds a record from row-oriented samples.
func FromSamples(samples []Sample, metrics map[string]float64) *Results {
	r := &Results{
		time:    make([]float64, len(samples)),
		state:   make([]float64, len(samples)),
		errs:    make([]float64, len(samples)),
		action:  make([]float64, len(samples)),
		metrics: make(map[string]float64, len(metrics)),
	}
	for i, s := range samples {
		r.time[i] = s.Time
		r.state[i] = s.State
		r.errs[i] = s.Error
		r.action[i] = s.Action
	}
	for k, v := range metrics {
		r.metrics[k] = v
	}
	return r
}

func clone(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}

func (r *Results) Len() int { return len(r.time) }

func (r *Results) Times() []float64          { return clone(r.time) }
func (r *Results) States() []float64         { return clone(r.state) }
func (r *Results) TrackingErrors() []float64 { return clone(r.errs) }
func (r *Results) Actions() []float64        { return clone(r.action) }

func (r *Results) At(i int) Sample {
	return Sample{Time: r.time[i], State: r.state[i], Error: r.errs[i], Action: r.action[i]}
}

// Final returns the last sample, or the zero Sample for an empty record.
func (r *Results) Final() Sample {
	if len(r.time) == 0 {
		return Sample{}
	}
	return r.At(len(r.time) - 1)
}

// Duration is the simulated time covered by the record.
func (r *Results) Duration() float64 {
	if len(r.time) == 0 {
		return 0
	}
	return r.time[len(r.time)-1] - r.time[0]
}

// NearestIndex returns the index of the sample whose time is closest to t.
// Times are non-decreasing, so the lookup is a binary search.
func (r *Results) NearestIndex(t float64) int {
	n := len(r.time)
	if n == 0 {
		return -1
	}
	i := sort.SearchFloat64s(r.time, t)
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	if math.Abs(r.time[i]-t) < math.Abs(t-r.time[i-1]) {
		return i
	}
	return i - 1
}

func (r *Results) Metric(name string) (float64, bool) {
	v, ok := r.metrics[name]
	return v, ok
}

func (r *Results) MetricNames() []string {
	names := make([]string, 0, len(r.metrics))
	for k := range r.metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Metrics returns a copy of the frozen metric values.
func (r *Results) Metrics() map[string]float64 {
	out := make(map[string]float64, len(r.metrics))
	for k, v := range r.metrics {
		out[k] = v
	}
	return out
}
