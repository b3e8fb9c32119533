package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/tanksim/internal/dynamo"
)

func observeAll(m dynamo.Metric, samples []dynamo.Sample) float64 {
	m.Reset()
	for _, s := range samples {
		m.Observe(s)
	}
	return m.Value()
}

var ramp = []dynamo.Sample{
	{Time: 0, Error: 1, Action: 1},
	{Time: 0.5, Error: 0.5, Action: 1},
	{Time: 1.5, Error: -0.5, Action: 0.5},
	{Time: 2, Error: 0, Action: 0.5},
}

func TestErrorIntegrals(t *testing.T) {
	tests := []struct {
		name   string
		metric dynamo.Metric
		want   float64
	}{
		// 0.5*(1+0.5)*0.5 + 0.5*(0.5+0.5)*1 + 0.5*(0.5+0)*0.5
		{"iae", NewIAE(), 0.375 + 0.5 + 0.125},
		// 0.5*(1+0.25)*0.5 + 0.5*(0.25+0.25)*1 + 0.5*(0.25+0)*0.5
		{"ise", NewISE(), 0.3125 + 0.25 + 0.0625},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric.Name() != tt.name {
				t.Errorf("Name() = %s", tt.metric.Name())
			}
			if got := observeAll(tt.metric, ramp); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControlEffort(t *testing.T) {
	if got := observeAll(NewControlEffort(), ramp); got != 0.75 {
		t.Errorf("control effort = %v, want 0.75", got)
	}
	if got := NewControlEffort().Value(); got != 0 {
		t.Errorf("empty control effort = %v", got)
	}
}

func TestStability(t *testing.T) {
	if got := observeAll(NewStability(0.5), ramp); got != 0.75 {
		t.Errorf("stability = %v, want 0.75", got)
	}
	if got := NewStability(0.1).Value(); got != 1 {
		t.Errorf("empty stability = %v, want 1", got)
	}
}

func TestOvershoot(t *testing.T) {
	if got := observeAll(NewOvershoot(), ramp); got != 0.5 {
		t.Errorf("overshoot = %v, want 0.5", got)
	}
}

func TestDefaultsAreFresh(t *testing.T) {
	a, b := Defaults(0.02), Defaults(0.02)
	names := map[string]bool{}
	for i := range a {
		if a[i] == b[i] {
			t.Errorf("metric %s shared between calls", a[i].Name())
		}
		names[a[i].Name()] = true
	}
	if len(names) != len(a) {
		t.Errorf("duplicate metric names: %v", names)
	}
}
