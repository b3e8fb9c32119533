package analysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/tanksim/internal/dynamo"
)

func synthetic(n int, dt float64, f func(t float64) float64, setpoint float64) *dynamo.Results {
	samples := make([]dynamo.Sample, n)
	for i := range samples {
		t := float64(i) * dt
		x := f(t)
		samples[i] = dynamo.Sample{Time: t, State: x, Error: setpoint - x}
	}
	return dynamo.FromSamples(samples, nil)
}

func TestStepResponse_FirstOrder(t *testing.T) {
	tau := 2.0
	res := synthetic(3001, 0.01, func(t float64) float64 { return 0.7 * (1 - math.Exp(-t/tau)) }, 0.7)

	m, err := StepResponse(res, 0.7)
	if err != nil {
		t.Fatal(err)
	}

	if want := tau * math.Log(9); math.Abs(m.RiseTime-want) > 1e-3 {
		t.Errorf("rise time = %v, want %v", m.RiseTime, want)
	}
	if m.Overshoot != 0 {
		t.Errorf("overshoot = %v, want 0", m.Overshoot)
	}
	if want := tau * math.Log(50); !m.Settled || math.Abs(m.SettlingTime-want) > 0.02 {
		t.Errorf("settling time = %v (settled %v), want %v", m.SettlingTime, m.Settled, want)
	}
	if math.Abs(m.SteadyStateError) > 1e-4 {
		t.Errorf("steady-state error = %v", m.SteadyStateError)
	}
}

func TestStepResponse_Overshoot(t *testing.T) {
	// damped oscillation peaking 20% above the step
	res := synthetic(2001, 0.01, func(t float64) float64 {
		if t < 1 {
			return 1.2 * t
		}
		return 1 + 0.2*math.Exp(-(t-1))*math.Cos(math.Pi*(t-1))
	}, 1)

	m, err := StepResponse(res, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.Overshoot-20) > 1e-6 {
		t.Errorf("overshoot = %v%%, want 20%%", m.Overshoot)
	}
	if math.Abs(m.PeakTime-1) > 1e-9 {
		t.Errorf("peak time = %v, want 1", m.PeakTime)
	}
}

func TestStepResponse_Errors(t *testing.T) {
	res := synthetic(10, 0.1, func(float64) float64 { return 0.5 }, 0.5)
	if _, err := StepResponse(res, 0.5); !errors.Is(err, ErrNoStep) {
		t.Errorf("expected ErrNoStep, got %v", err)
	}

	oscillating := synthetic(100, 0.1, func(t float64) float64 { return 0.5 + 0.1*math.Sin(t) }, 0.7)
	m, err := StepResponse(oscillating, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if m.Settled || !math.IsNaN(m.SettlingTime) {
		t.Errorf("run should not settle: %+v", m)
	}
}

func TestResample(t *testing.T) {
	res := dynamo.FromSamples([]dynamo.Sample{
		{Time: 0, State: 0, Error: 1},
		{Time: 0.3, State: 0.3, Error: 0.7},
		{Time: 1.0, State: 1.0, Error: 0},
	}, nil)

	times, states, errs := Resample(res, 0.25)

	if len(times) != 5 {
		t.Fatalf("got %d samples, want 5", len(times))
	}
	for i, ti := range times {
		if math.Abs(states[i]-ti) > 1e-12 {
			t.Errorf("state at %v = %v", ti, states[i])
		}
		if math.Abs(errs[i]-(1-ti)) > 1e-12 {
			t.Errorf("error at %v = %v", ti, errs[i])
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	res := synthetic(2001, 0.01, func(t float64) float64 { return 0.7 + 0.05*math.Sin(2*math.Pi*0.5*t) }, 0.7)

	f, ok := DominantFrequency(res, 0.01)
	if !ok {
		t.Fatal("no frequency found")
	}
	if math.Abs(f-0.5) > 0.05 {
		t.Errorf("frequency = %v, want 0.5", f)
	}

	flat := synthetic(200, 0.01, func(float64) float64 { return 0.7 }, 0.7)
	if _, ok := DominantFrequency(flat, 0.01); ok {
		t.Error("flat response should have no dominant frequency")
	}
}

func TestCrossingsAndPeriod(t *testing.T) {
	res := synthetic(1001, 0.01, func(t float64) float64 { return math.Sin(2 * math.Pi * t / 2.5) }, 0)

	if p := CyclePeriod(res, 0.5); math.Abs(p-2.5) > 1e-3 {
		t.Errorf("period = %v, want 2.5", p)
	}
	if got := len(Crossings(res, 2)); got != 0 {
		t.Errorf("crossings above the signal: %d", got)
	}
}

func TestPhasePortrait(t *testing.T) {
	// h = t^2 has dh/dt = 2t = 2*sqrt(h)
	res := synthetic(101, 0.01, func(t float64) float64 { return t * t }, 1)

	p := NewPhasePortrait(res)
	if len(p.Points) != 99 {
		t.Fatalf("got %d points", len(p.Points))
	}
	for _, pt := range p.Points {
		if math.Abs(pt.Y-2*math.Sqrt(pt.X)) > 1e-9 {
			t.Errorf("rate at h=%v is %v", pt.X, pt.Y)
		}
	}

	art := PhasePortraitToASCII(p, 40, 10)
	if lines := strings.Count(art, "\n"); lines != 10 {
		t.Errorf("ascii has %d lines, want 10", lines)
	}
	if !strings.Contains(art, "•") {
		t.Error("ascii portrait has no points")
	}
}

func TestBifurcationDiagram(t *testing.T) {
	run := func(_ context.Context, amp float64) (*dynamo.Results, error) {
		return synthetic(1001, 0.01, func(t float64) float64 { return 0.5 + amp*math.Sin(2*math.Pi*t) }, 0.5), nil
	}

	data, err := BifurcationDiagram(context.Background(), []float64{0, 0.1}, run, 0.5, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if len(data[0].Values) != 1 {
		t.Errorf("constant run should have one value, got %v", data[0].Values)
	}
	if v := data[1].Values; len(v) != 2 || math.Abs(v[0]-0.4) > 1e-3 || math.Abs(v[1]-0.6) > 1e-3 {
		t.Errorf("cycle extrema = %v, want [0.4 0.6]", v)
	}
	if art := BifurcationToASCII(data, 20, 5); !strings.Contains(art, "•") {
		t.Error("ascii diagram empty")
	}

	if _, err := BifurcationDiagram(context.Background(), []float64{1}, run, 0, 1e-3); err == nil {
		t.Error("expected error for zero tail")
	}
	failing := func(context.Context, float64) (*dynamo.Results, error) { return nil, errors.New("boom") }
	if _, err := BifurcationDiagram(context.Background(), []float64{1}, failing, 0.5, 1e-3); err == nil {
		t.Error("expected run error")
	}
}
